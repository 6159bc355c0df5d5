package matcher

import (
	"regexp"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/query"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
)

var logger = log.WithPrefix("matcher")

// PatternBuilder returns the sub-patterns of a package. No sub-pattern means nothing can match.
type PatternBuilder interface {
	Patterns(pkg types.Package) []string
}

// Result maps Package.Key to the CPEs matching the package.
type Result map[string]set.Set[string]

// CPEs returns the sorted union of every matched CPE.
func (r Result) CPEs() []string {
	cpes := set.NewOrdered[string]()
	for _, s := range r {
		cpes.Merge(s)
	}
	return cpes.Values()
}

// Empty reports whether no package matched anything.
func (r Result) Empty() bool {
	for _, s := range r {
		if s.Len() > 0 {
			return false
		}
	}
	return true
}

type Matcher struct {
	index   *feed.Index
	builder PatternBuilder
	workers int
}

type Option func(*Matcher)

// WithWorkers sets the number of packages matched concurrently. Zero or less means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithBuilder(b PatternBuilder) Option {
	return func(m *Matcher) {
		m.builder = b
	}
}

func New(index *feed.Index, opts ...Option) *Matcher {
	m := &Matcher{
		index:   index,
		builder: query.NewBuilder(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match evaluates every package against the in-memory index, one unit of work per package.
// A package whose pattern does not compile is logged and gets an empty result.
func (m *Matcher) Match(pkgs []types.Package) Result {
	var mu sync.Mutex
	result := make(Result, len(pkgs))

	var g errgroup.Group
	g.SetLimit(m.workers)
	for _, pkg := range pkgs {
		g.Go(func() error {
			matches := m.matchPackage(pkg)

			mu.Lock()
			defer mu.Unlock()
			if existing, ok := result[pkg.Key()]; ok {
				existing.Merge(matches)
				return nil
			}
			result[pkg.Key()] = matches
			return nil
		})
	}
	_ = g.Wait() // units never fail

	return result
}

func (m *Matcher) matchPackage(pkg types.Package) set.Set[string] {
	matches := set.New[string]()

	re, err := m.compile(pkg)
	if err != nil {
		logger.Error("Pattern compile error", log.Package(pkg.Key()), log.Err(err))
		return matches
	} else if re == nil {
		return matches
	}

	for _, cpe := range m.index.Entries() {
		if re.MatchString(cpe) {
			matches.Append(cpe)
		}
	}
	if matches.Len() == 0 {
		logger.Debug("No CPE matches, possible false negative", log.Package(pkg.Key()))
	}
	return matches
}

// MatchCombined scans the feed file once with the alternation of every package's sub-patterns
// and attributes each hit back to the packages whose own pattern matches it.
func (m *Matcher) MatchCombined(path string, pkgs []types.Package) (Result, error) {
	result := make(Result, len(pkgs))
	if len(pkgs) == 0 {
		return result, nil
	}

	compiled := make(map[string]*regexp.Regexp, len(pkgs))
	var patterns []string
	for _, pkg := range pkgs {
		key := pkg.Key()
		if _, ok := result[key]; !ok {
			result[key] = set.New[string]()
		}

		re, err := m.compile(pkg)
		if err != nil {
			logger.Error("Pattern compile error", log.Package(key), log.Err(err))
			continue
		} else if re == nil {
			continue
		}
		compiled[key] = re
		patterns = append(patterns, re.String())
	}

	hits, err := feed.Grep(strings.Join(lo.Uniq(patterns), "|"), path)
	if err != nil {
		return nil, xerrors.Errorf("combined match error: %w", err)
	}

	for _, cpe := range hits.Values() {
		for key, re := range compiled {
			if re.MatchString(cpe) {
				result[key].Append(cpe)
			}
		}
	}
	return result, nil
}

func (m *Matcher) compile(pkg types.Package) (*regexp.Regexp, error) {
	patterns := m.builder.Patterns(pkg)
	if len(patterns) == 0 {
		logger.Debug("No pattern for package", log.Package(pkg.Key()))
		return nil, nil
	}
	re, err := regexp.Compile(strings.Join(patterns, "|"))
	if err != nil {
		return nil, xerrors.Errorf("regexp compile error: %w", err)
	}
	return re, nil
}
