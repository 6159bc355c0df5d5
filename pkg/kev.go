package pkg

import (
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/kevc"
)

func kev(c *cli.Context) error {
	catalog, err := kevc.NewClient().Fetch()
	if err != nil {
		return xerrors.Errorf("known exploited catalog error: %w", err)
	}
	return printJSON(c.App.Writer, catalog)
}
