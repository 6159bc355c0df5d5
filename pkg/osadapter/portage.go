package osadapter

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/types"
)

// NVD names several dev-libs packages with a "lib" prefix, e.g. dev-libs/xml2 vs libxml2.
var devLibsPrefix = map[string]string{
	"dev-libs": "lib",
}

var skippedCategories = map[string]struct{}{
	"virtual": {},
}

// portage reads the installed package database, <dir>/<category>/<name>-<version>.
type portage struct {
	name     string
	fs       afero.Fs
	dir      string
	prefixes map[string]string
}

func newPortage(name string, fs afero.Fs, dir string, prefixes map[string]string) *portage {
	return &portage{
		name:     name,
		fs:       fs,
		dir:      dir,
		prefixes: prefixes,
	}
}

func (p *portage) Name() string {
	return p.name
}

func (p *portage) Categories() ([]string, error) {
	logger.Info("Walking package dir", log.DirPath(p.dir))
	return listCategories(p.fs, p.dir)
}

func (p *portage) Packages(category string) ([]types.Package, error) {
	entries, err := afero.ReadDir(p.fs, filepath.Join(p.dir, category))
	if err != nil {
		return nil, xerrors.Errorf("package dir read error: %w", err)
	}

	var pkgs []types.Package
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pkgs = append(pkgs, parseEntry(entry.Name(), p.prefixes[category])...)
	}
	return pkgs, nil
}

func listCategories(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, xerrors.Errorf("category dir read error: %w", err)
	}

	var categories []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := skippedCategories[entry.Name()]; ok {
			logger.Debug("Skipping category", log.Category(entry.Name()))
			continue
		}
		categories = append(categories, entry.Name())
	}
	return categories, nil
}

// parseEntry converts a "<name>-<version>" entry, plus its prefixed variant when a prefix is set.
func parseEntry(entry, prefix string) []types.Package {
	var pkgs []types.Package
	if pkg, ok := types.ParsePackage(entry); ok {
		pkgs = append(pkgs, pkg)
	} else {
		logger.Debug("Skipping unversioned entry", log.String("entry", entry))
		return nil
	}

	if prefix != "" && !strings.HasPrefix(entry, prefix) {
		if pkg, ok := types.ParsePackage(prefix + entry); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	return pkgs
}
