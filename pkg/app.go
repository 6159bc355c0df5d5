package pkg

import (
	"encoding/json"
	"io"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/config"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/query"
	"github.com/aquasecurity/vulner/pkg/utils"
)

const defaultFeedDir = "/tmp/vulner/feeds/json"

var feedDirFlag = cli.StringFlag{
	Name:   "feed-dir, d",
	Usage:  "directory of the CPE match feed",
	Value:  defaultFeedDir,
	EnvVar: "VULNER_FEED_DIR",
}

var nvdAPIKeyFlag = cli.StringFlag{
	Name:   "nvd-api-key",
	Usage:  "NVD API key, overrides the config file",
	EnvVar: "NVD_API_KEY",
}

func NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "vulner"
	app.Version = version
	app.Usage = "Match installed packages against the NVD CPE dictionary and report their CVEs"

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:   "debug",
			Usage:  "debug logging",
			EnvVar: "VULNER_DEBUG",
		},
		cli.StringFlag{
			Name:   "cache-dir",
			Usage:  "cache directory path",
			Value:  utils.CacheDir(),
			EnvVar: "VULNER_CACHE_DIR",
		},
		cli.StringFlag{
			Name:   "config",
			Usage:  "config file path",
			Value:  config.Path(),
			EnvVar: "VULNER_CONFIG",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.SetDebug(c.GlobalBool("debug"))
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:   "sync",
			Usage:  "download the CPE match feed and the known exploited catalog",
			Action: sync,
			Flags:  []cli.Flag{feedDirFlag},
		},
		{
			Name:      "cpe",
			Usage:     "match a JSON batch of packages against the CPE match feed",
			ArgsUsage: "[batch]",
			Action:    cpe,
			Flags: []cli.Flag{
				feedDirFlag,
				cli.BoolFlag{
					Name:  "combined",
					Usage: "scan the feed file once with a single combined pattern",
				},
			},
		},
		{
			Name:      "cve",
			Usage:     "look up the CVEs of a JSON batch of CPEs",
			ArgsUsage: "[batch]",
			Action:    cve,
			Flags: []cli.Flag{
				nvdAPIKeyFlag,
				cli.BoolFlag{
					Name:  "summary, s",
					Usage: "print CVE summaries instead of the full records",
				},
				cli.BoolFlag{
					Name:  "known-exploited, k",
					Usage: "flag known exploited CVEs in summaries",
				},
			},
		},
		{
			Name:   "scan",
			Usage:  "scan the installed packages and write a report per CPE",
			Action: scan,
			Flags: []cli.Flag{
				feedDirFlag,
				nvdAPIKeyFlag,
				cli.StringFlag{
					Name:   "out-dir, o",
					Usage:  "report directory, defaults to scan_results_dir of the config file",
					EnvVar: "VULNER_OUT_DIR",
				},
				cli.StringFlag{
					Name:   "pkg-dir, p",
					Usage:  "package database or meta-repo directory",
					EnvVar: "VULNER_PKG_DIR",
				},
				cli.BoolFlag{
					Name:  "recursive, r",
					Usage: "walk a meta-repo checkout instead of the installed package database",
				},
				cli.BoolFlag{
					Name:  "no-tickets, n",
					Usage: "don't look up distribution tracker tickets",
				},
				cli.BoolFlag{
					Name:  "nvd-adapter",
					Usage: "also match dev-libs packages with a lib prefix",
				},
			},
		},
		{
			Name:   "kev",
			Usage:  "print the known exploited vulnerabilities catalog",
			Action: kev,
		},
		{
			Name:   "tracker",
			Usage:  "print the open tickets of the distribution tracker",
			Action: tracker,
		},
	}

	return app
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return config.Config{}, xerrors.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func newBuilder(cfg config.Config) (*query.Builder, error) {
	if cfg.AliasFile == "" {
		return query.NewBuilder(), nil
	}
	aliases, err := query.LoadAliases(cfg.AliasFile)
	if err != nil {
		return nil, xerrors.Errorf("alias file error: %w", err)
	}
	return query.NewBuilder(query.WithAliases(aliases)), nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return xerrors.Errorf("json marshal error: %w", err)
	}
	if _, err = w.Write(append(b, '\n')); err != nil {
		return xerrors.Errorf("write error: %w", err)
	}
	return nil
}
