package pkg

import (
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/feed"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/matcher"
	"github.com/aquasecurity/vulner/pkg/utils"
	"github.com/aquasecurity/vulner/pkg/validator"
)

func cpe(c *cli.Context) error {
	input, err := utils.ReadInput(c.Args().First())
	if err != nil {
		return xerrors.Errorf("input error: %w", err)
	}
	pkgs, err := validator.Packages([]byte(input))
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		return printJSON(c.App.Writer, []string{})
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	builder, err := newBuilder(cfg)
	if err != nil {
		return err
	}
	opts := []matcher.Option{matcher.WithBuilder(builder), matcher.WithWorkers(cfg.Workers)}

	path := feed.Path(c.String("feed-dir"))
	var result matcher.Result
	if c.Bool("combined") {
		result, err = matcher.New(nil, opts...).MatchCombined(path, pkgs)
		if err != nil {
			return xerrors.Errorf("match error: %w", err)
		}
	} else {
		idx, err := feed.Load(path)
		if err != nil {
			return xerrors.Errorf("feed load error: %w", err)
		}
		result = matcher.New(idx, opts...).Match(pkgs)
	}

	if result.Empty() {
		log.Info("No CPE matches, possible false negative", log.Int("packages", len(pkgs)))
	}
	return printJSON(c.App.Writer, result.CPEs())
}
