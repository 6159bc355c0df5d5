package advisory

import (
	"encoding/json"
	"time"

	"golang.org/x/xerrors"
	"k8s.io/utils/clock"

	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/kevc"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/nvd"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
)

const DefaultTTL = 24 * time.Hour

var logger = log.WithPrefix("advisory")

type CVEFetcher interface {
	FetchCVEsByCPE(cpe string) (nvd.Response, error)
}

type CatalogFetcher interface {
	Fetch() (kevc.Catalog, error)
}

// Lookup resolves CPEs to CVEs, caching API responses in the db.
type Lookup struct {
	cves    CVEFetcher
	catalog CatalogFetcher
	dbc     db.Operation
	ttl     time.Duration
	clock   clock.Clock
}

type Option func(*Lookup)

// WithDB enables the response cache. Without it every lookup hits the API.
func WithDB(dbc db.Operation) Option {
	return func(l *Lookup) {
		l.dbc = dbc
	}
}

func WithCatalogFetcher(f CatalogFetcher) Option {
	return func(l *Lookup) {
		l.catalog = f
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(l *Lookup) {
		l.ttl = ttl
	}
}

func WithClock(clock clock.Clock) Option {
	return func(l *Lookup) {
		l.clock = clock
	}
}

func NewLookup(cves CVEFetcher, opts ...Option) *Lookup {
	l := &Lookup{
		cves:    cves,
		catalog: kevc.NewClient(),
		ttl:     DefaultTTL,
		clock:   clock.RealClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CVEs returns the CVE API response of the CPE, from the cache while it is fresh.
func (l *Lookup) CVEs(cpe string) (nvd.Response, error) {
	if resp, ok := l.cached(cpe); ok {
		return resp, nil
	}

	resp, err := l.cves.FetchCVEsByCPE(cpe)
	if err != nil {
		return nvd.Response{}, xerrors.Errorf("CVE fetch error: %w", err)
	}

	if l.dbc != nil {
		b, err := json.Marshal(resp)
		if err != nil {
			return nvd.Response{}, xerrors.Errorf("json marshal error: %w", err)
		}
		entry := db.CVECacheEntry{
			FetchedAt: l.clock.Now().UTC(),
			Response:  b,
		}
		if err = l.dbc.PutCVECache(cpe, entry); err != nil {
			logger.Warn("Failed to cache CVEs", log.CPE(cpe), log.Err(err))
		}
	}
	return resp, nil
}

// cached never fails, a broken cache entry is refetched.
func (l *Lookup) cached(cpe string) (nvd.Response, bool) {
	if l.dbc == nil {
		return nvd.Response{}, false
	}

	entry, ok, err := l.dbc.GetCVECache(cpe)
	if err != nil {
		logger.Warn("Failed to read CVE cache", log.CPE(cpe), log.Err(err))
		return nvd.Response{}, false
	} else if !ok {
		return nvd.Response{}, false
	}

	if l.clock.Since(entry.FetchedAt) > l.ttl {
		logger.Debug("CVE cache expired", log.CPE(cpe), log.String("fetched_at", entry.FetchedAt.String()))
		return nvd.Response{}, false
	}

	var resp nvd.Response
	if err = json.Unmarshal(entry.Response, &resp); err != nil {
		logger.Warn("Broken CVE cache entry", log.CPE(cpe), log.Err(err))
		return nvd.Response{}, false
	}
	logger.Debug("Using cached CVEs", log.CPE(cpe))
	return resp, true
}

// Summaries condenses the CVEs of the CPE and flags the known exploited ones.
func (l *Lookup) Summaries(cpe string, knownExploited set.Set[string]) ([]types.CveSummary, error) {
	resp, err := l.CVEs(cpe)
	if err != nil {
		return nil, err
	}
	return nvd.Summaries(resp, knownExploited), nil
}

// KnownExploited returns the CVE IDs stored by the last sync, fetching the catalog when none are stored.
func (l *Lookup) KnownExploited() (set.Set[string], error) {
	if l.dbc != nil {
		kev, err := l.dbc.GetKnownExploited()
		if err != nil {
			return set.Set[string]{}, xerrors.Errorf("known exploited read error: %w", err)
		}
		if len(kev.CVEIDs) > 0 {
			return set.New(kev.CVEIDs...), nil
		}
		logger.Info("No known exploited catalog stored, fetching it")
	}

	catalog, err := l.catalog.Fetch()
	if err != nil {
		return set.Set[string]{}, xerrors.Errorf("known exploited catalog error: %w", err)
	}
	return kevc.CVEIDs(catalog), nil
}
