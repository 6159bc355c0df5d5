package pkg

import (
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/osadapter"
	trackerclient "github.com/aquasecurity/vulner/pkg/tracker"
)

func tracker(c *cli.Context) error {
	adapter, err := osadapter.New()
	if err != nil {
		return xerrors.Errorf("os adapter error: %w", err)
	}
	if adapter.Name() != osadapter.Funtoo {
		return xerrors.Errorf("%s has no tracker: %w", adapter.Name(), osadapter.ErrUnsupported)
	}

	tickets, err := trackerclient.NewClient().Open()
	if err != nil {
		return xerrors.Errorf("tracker error: %w", err)
	}
	return printJSON(c.App.Writer, tickets)
}
