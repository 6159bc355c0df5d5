package pkg

import (
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/advisory"
	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/nvd"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
	"github.com/aquasecurity/vulner/pkg/utils"
	"github.com/aquasecurity/vulner/pkg/validator"
)

func cve(c *cli.Context) error {
	input, err := utils.ReadInput(c.Args().First())
	if err != nil {
		return xerrors.Errorf("input error: %w", err)
	}
	cpes, err := validator.CPEs([]byte(input))
	if err != nil {
		return err
	}

	lookup, closeDB, err := newLookup(c)
	if err != nil {
		return err
	}
	defer closeDB()

	if !c.Bool("summary") {
		responses := make(map[string]nvd.Response, len(cpes))
		for _, cpe := range cpes {
			if responses[cpe], err = lookup.CVEs(cpe); err != nil {
				return xerrors.Errorf("CVE lookup error (%s): %w", cpe, err)
			}
		}
		return printJSON(c.App.Writer, responses)
	}

	kev := set.New[string]()
	if c.Bool("known-exploited") {
		if kev, err = lookup.KnownExploited(); err != nil {
			return err
		}
	}

	summaries := make(map[string][]types.CveSummary, len(cpes))
	for _, cpe := range cpes {
		if summaries[cpe], err = lookup.Summaries(cpe, kev); err != nil {
			return xerrors.Errorf("CVE lookup error (%s): %w", cpe, err)
		}
	}
	return printJSON(c.App.Writer, summaries)
}

// newLookup opens the CVE cache. Lookups go straight to the API when the db can't be opened.
func newLookup(c *cli.Context) (*advisory.Lookup, func(), error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	client := nvd.NewClient(nvd.WithAPIKey(cfg.NVDAPIKey(c.String("nvd-api-key"))))

	if err = db.Init(c.GlobalString("cache-dir")); err != nil {
		log.Warn("CVE cache unavailable", log.Err(err))
		return advisory.NewLookup(client), func() {}, nil
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			log.Warn("DB close error", log.Err(err))
		}
	}
	return advisory.NewLookup(client, advisory.WithDB(db.Config{})), closeDB, nil
}
