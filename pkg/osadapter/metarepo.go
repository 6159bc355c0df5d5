package osadapter

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/set"
	"github.com/aquasecurity/vulner/pkg/types"
)

const ebuildExt = ".ebuild"

// metaRepo reads ebuilds of a Funtoo meta-repo checkout, <dir>/kits/<kit>/<category>/<pkg>/<name>-<version>.ebuild.
type metaRepo struct {
	fs       afero.Fs
	dir      string
	prefixes map[string]string
}

func newMetaRepo(fs afero.Fs, dir string, prefixes map[string]string) *metaRepo {
	return &metaRepo{
		fs:       fs,
		dir:      dir,
		prefixes: prefixes,
	}
}

func (m *metaRepo) Name() string {
	return Funtoo
}

func (m *metaRepo) kits() ([]string, error) {
	kitsDir := filepath.Join(m.dir, "kits")
	entries, err := afero.ReadDir(m.fs, kitsDir)
	if err != nil {
		return nil, xerrors.Errorf("kits dir read error: %w", err)
	}

	var kits []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			kits = append(kits, filepath.Join(kitsDir, entry.Name()))
		}
	}
	return kits, nil
}

// Categories returns the union of the categories of every kit.
// Only "<group>-<name>" directories are categories, which leaves out eclass, profiles and the like.
func (m *metaRepo) Categories() ([]string, error) {
	logger.Info("Walking meta-repo", log.DirPath(m.dir))
	kits, err := m.kits()
	if err != nil {
		return nil, err
	}

	categories := set.NewOrdered[string]()
	for _, kit := range kits {
		names, err := listCategories(m.fs, kit)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if strings.Contains(name, "-") {
				categories.Append(name)
			}
		}
	}
	return categories.Values(), nil
}

func (m *metaRepo) Packages(category string) ([]types.Package, error) {
	kits, err := m.kits()
	if err != nil {
		return nil, err
	}

	seen := set.New[string]()
	var pkgs []types.Package
	for _, kit := range kits {
		catDir := filepath.Join(kit, category)
		if ok, _ := afero.DirExists(m.fs, catDir); !ok {
			continue
		}

		ebuilds, err := afero.Glob(m.fs, filepath.Join(catDir, "*", "*"+ebuildExt))
		if err != nil {
			return nil, xerrors.Errorf("ebuild glob error: %w", err)
		}
		sort.Strings(ebuilds)

		for _, ebuild := range ebuilds {
			entry := strings.TrimSuffix(filepath.Base(ebuild), ebuildExt)
			for _, pkg := range parseEntry(entry, m.prefixes[category]) {
				if seen.Contains(pkg.Key()) {
					continue
				}
				seen.Append(pkg.Key())
				pkgs = append(pkgs, pkg)
			}
		}
	}
	return pkgs, nil
}
