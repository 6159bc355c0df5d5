package vulndb

import (
	"io"
	"os"
	"sort"

	"golang.org/x/xerrors"
	"k8s.io/utils/clock"

	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/kevc"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/metadata"
	"github.com/aquasecurity/vulner/pkg/nvd"
	"github.com/aquasecurity/vulner/pkg/utils"
)

var logger = log.WithPrefix("sync")

type VulnDB interface {
	Sync(feedDir string) error
}

type FeedSource interface {
	FetchFeedChecksum() (string, error)
	DownloadFeed(dir string, progress io.Writer) (string, error)
}

type CatalogSource interface {
	Fetch() (kevc.Catalog, error)
}

// Core keeps a feed dir and the db in sync with the remote sources.
type Core struct {
	dbc      db.Operation
	feedSrc  FeedSource
	kevSrc   CatalogSource
	progress io.Writer
	clock    clock.Clock
}

type Option func(*Core)

func WithClock(clock clock.Clock) Option {
	return func(core *Core) {
		core.clock = clock
	}
}

func WithFeedSource(src FeedSource) Option {
	return func(core *Core) {
		core.feedSrc = src
	}
}

func WithCatalogSource(src CatalogSource) Option {
	return func(core *Core) {
		core.kevSrc = src
	}
}

func WithDB(dbc db.Operation) Option {
	return func(core *Core) {
		core.dbc = dbc
	}
}

// WithProgress renders the download progress to w.
func WithProgress(w io.Writer) Option {
	return func(core *Core) {
		core.progress = w
	}
}

func New(opts ...Option) *Core {
	core := &Core{
		dbc:      db.Config{},
		feedSrc:  nvd.NewClient(),
		kevSrc:   kevc.NewClient(),
		progress: os.Stderr,
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(core)
	}
	return core
}

// Sync downloads the match feed when it is missing or its checksum differs from the remote one,
// then stores the known exploited catalog and the sync metadata.
func (c Core) Sync(feedDir string) error {
	if err := os.MkdirAll(feedDir, 0o755); err != nil {
		return xerrors.Errorf("mkdir error: %w", err)
	}

	downloaded, err := c.syncFeed(feedDir)
	if err != nil {
		return xerrors.Errorf("feed sync error: %w", err)
	}

	path := feed.Path(feedDir)
	checksum, err := utils.FileChecksum(path)
	if err != nil {
		return xerrors.Errorf("checksum error: %w", err)
	}
	idx, err := feed.Load(path)
	if err != nil {
		return xerrors.Errorf("feed load error: %w", err)
	}

	kev, err := c.syncKnownExploited()
	if err != nil {
		return xerrors.Errorf("known exploited sync error: %w", err)
	}

	now := c.clock.Now().UTC()
	if err = c.dbc.SetMetadata(db.Metadata{
		Version:   db.SchemaVersion,
		UpdatedAt: now,
	}); err != nil {
		return xerrors.Errorf("failed to save metadata: %w", err)
	}

	md := metadata.Metadata{
		Version:        db.SchemaVersion,
		FeedChecksum:   checksum,
		FeedEntries:    idx.Len(),
		KnownExploited: kev,
		UpdatedAt:      now,
	}
	if downloaded {
		md.DownloadedAt = now
	}
	if err = metadata.NewClient(feedDir).Update(md); err != nil {
		return xerrors.Errorf("failed to store metadata: %w", err)
	}

	logger.Info("Sync completed", log.Int("feed_entries", md.FeedEntries), log.Int("known_exploited", kev))
	return nil
}

// syncFeed reports whether the feed was downloaded.
func (c Core) syncFeed(feedDir string) (bool, error) {
	path := feed.Path(feedDir)
	exists, err := utils.Exists(path)
	if err != nil {
		return false, xerrors.Errorf("feed stat error: %w", err)
	}

	if exists {
		remote, err := c.feedSrc.FetchFeedChecksum()
		if err != nil {
			return false, xerrors.Errorf("remote checksum error: %w", err)
		}
		local, err := utils.FileChecksum(path)
		if err != nil {
			return false, xerrors.Errorf("local checksum error: %w", err)
		}
		if local == remote {
			logger.Info("CPE match feed is up to date", log.FilePath(path))
			return false, nil
		}
		logger.Info("CPE match feed checksum changed", log.String("local", local), log.String("remote", remote))
	}

	gz, err := c.feedSrc.DownloadFeed(feedDir, c.progress)
	if err != nil {
		return false, xerrors.Errorf("download error: %w", err)
	}
	if _, err = utils.Gunzip(gz); err != nil {
		return false, xerrors.Errorf("gunzip error: %w", err)
	}
	return true, nil
}

func (c Core) syncKnownExploited() (int, error) {
	catalog, err := c.kevSrc.Fetch()
	if err != nil {
		return 0, xerrors.Errorf("catalog fetch error: %w", err)
	}

	ids := kevc.CVEIDs(catalog).Values()
	sort.Strings(ids)
	kev := db.KnownExploited{
		CatalogVersion: catalog.CatalogVersion,
		UpdatedAt:      c.clock.Now().UTC(),
		CVEIDs:         ids,
	}
	if err = c.dbc.PutKnownExploited(kev); err != nil {
		return 0, xerrors.Errorf("catalog store error: %w", err)
	}
	return len(ids), nil
}
