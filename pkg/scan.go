package pkg

import (
	"path/filepath"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/matcher"
	"github.com/aquasecurity/vulner/pkg/osadapter"
	"github.com/aquasecurity/vulner/pkg/report"
	"github.com/aquasecurity/vulner/pkg/scanner"
	trackerclient "github.com/aquasecurity/vulner/pkg/tracker"
)

var errMetaRepoNotRecursive = xerrors.New("the meta-repo can only be scanned recursively, use -r")

func scan(c *cli.Context) error {
	adapterOpts, err := adapterOptions(c.String("pkg-dir"), c.Bool("recursive"))
	if err != nil {
		return err
	}
	adapterOpts = append(adapterOpts, osadapter.WithNVDAdapter(c.Bool("nvd-adapter")))

	adapter, err := osadapter.New(adapterOpts...)
	if err != nil {
		return xerrors.Errorf("os adapter error: %w", err)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}

	lookup, closeDB, err := newLookup(c)
	if err != nil {
		return err
	}
	defer closeDB()

	outDir := c.String("out-dir")
	if outDir == "" {
		outDir = cfg.ScanResultsDir
	}

	opts := []scanner.Option{
		scanner.WithMatcherOptions(matcher.WithBuilder(builder), matcher.WithWorkers(cfg.Workers)),
		scanner.WithProgress(c.App.ErrWriter),
	}
	if adapter.Name() == osadapter.Funtoo && !c.Bool("no-tickets") {
		opts = append(opts, scanner.WithTracker(trackerclient.NewClient()))
	}

	s := scanner.New(adapter, lookup, report.NewWriter(outDir), opts...)
	summary, err := s.Scan(feed.Path(c.String("feed-dir")))
	if err != nil {
		return xerrors.Errorf("scan error: %w", err)
	}
	summary.Print(c.App.Writer)
	return nil
}

func adapterOptions(pkgDir string, recursive bool) ([]osadapter.Option, error) {
	if recursive {
		if pkgDir == "" {
			pkgDir = osadapter.MetaRepoPkgDir
		}
		return []osadapter.Option{osadapter.WithPkgDir(pkgDir), osadapter.WithMetaRepo(true)}, nil
	}

	if pkgDir == "" {
		return nil, nil
	}
	if filepath.Clean(pkgDir) == osadapter.MetaRepoPkgDir {
		return nil, errMetaRepoNotRecursive
	}
	return []osadapter.Option{osadapter.WithPkgDir(pkgDir)}, nil
}
