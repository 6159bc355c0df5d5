package pkg

import (
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/db"
	"github.com/aquasecurity/vulner/pkg/vulndb"
)

func sync(c *cli.Context) error {
	if err := db.Init(c.GlobalString("cache-dir")); err != nil {
		return xerrors.Errorf("db initialize error: %w", err)
	}
	defer db.Close()

	core := vulndb.New(vulndb.WithProgress(c.App.ErrWriter))
	if err := core.Sync(c.String("feed-dir")); err != nil {
		return xerrors.Errorf("sync error: %w", err)
	}
	return nil
}
