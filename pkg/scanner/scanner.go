package scanner

import (
	"io"
	"sort"

	"github.com/cheggaaa/pb/v3"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/matcher"
	"github.com/aquasecurity/vulner/pkg/osadapter"
	"github.com/aquasecurity/vulner/pkg/report"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
)

var logger = log.WithPrefix("scan")

type Advisories interface {
	KnownExploited() (set.Set[string], error)
	Summaries(cpe string, knownExploited set.Set[string]) ([]types.CveSummary, error)
}

type Tracker interface {
	TicketsByCVE(cveID string) ([]string, error)
}

// Scanner matches the installed packages of every category against the feed
// and reports the CVEs of each matched CPE.
type Scanner struct {
	adapter     osadapter.Adapter
	advisories  Advisories
	writer      *report.Writer
	tracker     Tracker
	matcherOpts []matcher.Option
	progress    io.Writer
}

type Option func(*Scanner)

// WithTracker annotates every CVE with the tickets of the distribution tracker.
func WithTracker(t Tracker) Option {
	return func(s *Scanner) {
		s.tracker = t
	}
}

func WithMatcherOptions(opts ...matcher.Option) Option {
	return func(s *Scanner) {
		s.matcherOpts = append(s.matcherOpts, opts...)
	}
}

func WithProgress(w io.Writer) Option {
	return func(s *Scanner) {
		s.progress = w
	}
}

func New(adapter osadapter.Adapter, advisories Advisories, writer *report.Writer, opts ...Option) *Scanner {
	s := &Scanner{
		adapter:    adapter,
		advisories: advisories,
		writer:     writer,
		progress:   io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the findings once every category is reported. Only listing the packages or loading the feed
// aborts it, a CPE whose lookup or report fails is logged and listed in Summary.Failed.
func (s *Scanner) Scan(feedPath string) (report.Summary, error) {
	catPkgs, err := osadapter.AllCatPkgs(s.adapter)
	if err != nil {
		return report.Summary{}, xerrors.Errorf("package list error: %w", err)
	}

	idx, err := feed.Load(feedPath)
	if err != nil {
		return report.Summary{}, xerrors.Errorf("feed load error: %w", err)
	}

	kev, err := s.advisories.KnownExploited()
	if err != nil {
		logger.Warn("Known exploited catalog unavailable, CVEs won't be flagged", log.Err(err))
		kev = set.New[string]()
	}

	categories := lo.Keys(catPkgs)
	sort.Strings(categories)

	summary := report.Summary{
		Dir:        s.writer.Dir(),
		Categories: len(categories),
		Findings:   map[string][]types.CveSummary{},
	}

	m := matcher.New(idx, s.matcherOpts...)
	bar := pb.New(len(categories)).SetWriter(s.progress)
	bar.Start()
	defer bar.Finish()

	for _, category := range categories {
		pkgs := catPkgs[category]
		summary.Packages += len(pkgs)

		res := m.Match(pkgs)
		bar.Increment()
		if res.Empty() {
			logger.Info("No CPE matches, possible false negative", log.Category(category), log.Int("packages", len(pkgs)))
			continue
		}

		for _, cpe := range res.CPEs() {
			summary.CPEs++

			cves, err := s.summaries(cpe, kev)
			if err != nil {
				logger.Warn("CVE lookup failed, skipping CPE", log.Category(category), log.CPE(cpe), log.Err(err))
				summary.Failed = append(summary.Failed, cpe)
				continue
			}

			if _, err = s.writer.Write(category, cpe, cves); err != nil {
				logger.Warn("Report write failed, skipping CPE", log.Category(category), log.CPE(cpe), log.Err(err))
				summary.Failed = append(summary.Failed, cpe)
				continue
			}
			summary.Findings[category] = append(summary.Findings[category], cves...)
		}
	}
	return summary, nil
}

func (s *Scanner) summaries(cpe string, kev set.Set[string]) ([]types.CveSummary, error) {
	cves, err := s.advisories.Summaries(cpe, kev)
	if err != nil {
		return nil, xerrors.Errorf("CVE lookup error (%s): %w", cpe, err)
	}
	if s.tracker == nil {
		return cves, nil
	}

	for i, cve := range cves {
		tickets, err := s.tracker.TicketsByCVE(cve.ID)
		if err != nil {
			logger.Warn("Tracker lookup failed", log.String("cve", cve.ID), log.Err(err))
			continue
		}
		cves[i].Tickets = tickets
	}
	return cves, nil
}
