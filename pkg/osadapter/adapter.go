package osadapter

import (
	"bufio"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/types"
)

const (
	Gentoo = "gentoo"
	Funtoo = "funtoo"

	DefaultPkgDir  = "/var/db/pkg"
	MetaRepoPkgDir = "/var/git/meta-repo"
)

var (
	ErrUnsupported = xerrors.New("unsupported OS")

	// /etc/os-release takes precedence over /usr/lib/os-release
	osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

	logger = log.WithPrefix("osadapter")
)

// Adapter lists the packages installed by a distribution's package manager, grouped by category.
type Adapter interface {
	Name() string
	Categories() ([]string, error)
	Packages(category string) ([]types.Package, error)
}

type options struct {
	fs         afero.Fs
	pkgDir     string
	nvdAdapter bool
	metaRepo   bool
}

type Option func(*options)

func WithFS(fs afero.Fs) Option {
	return func(opts *options) {
		opts.fs = fs
	}
}

func WithPkgDir(dir string) Option {
	return func(opts *options) {
		opts.pkgDir = dir
	}
}

// WithNVDAdapter also emits "lib"-prefixed names for dev-libs packages on Gentoo.
// Funtoo always does.
func WithNVDAdapter(enabled bool) Option {
	return func(opts *options) {
		opts.nvdAdapter = enabled
	}
}

// WithMetaRepo walks ebuilds of a Funtoo meta-repo checkout instead of the installed package database.
func WithMetaRepo(enabled bool) Option {
	return func(opts *options) {
		opts.metaRepo = enabled
	}
}

// New detects the running distribution and returns its adapter.
func New(opts ...Option) (Adapter, error) {
	o := &options{
		fs: afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(o)
	}

	id, err := DistroID(o.fs)
	if err != nil {
		return nil, xerrors.Errorf("distro detection error: %w", err)
	}
	logger.Info("Detected distro", log.String("id", id))

	return newAdapter(id, o)
}

func newAdapter(id string, o *options) (Adapter, error) {
	switch id {
	case Funtoo:
		if o.metaRepo {
			return newMetaRepo(o.fs, dirOr(o.pkgDir, MetaRepoPkgDir), devLibsPrefix), nil
		}
		return newPortage(Funtoo, o.fs, dirOr(o.pkgDir, DefaultPkgDir), devLibsPrefix), nil
	case Gentoo:
		if o.metaRepo {
			return nil, xerrors.Errorf("meta-repo scan on %s: %w", id, ErrUnsupported)
		}
		var prefixes map[string]string
		if o.nvdAdapter {
			prefixes = devLibsPrefix
		}
		return newPortage(Gentoo, o.fs, dirOr(o.pkgDir, DefaultPkgDir), prefixes), nil
	}
	return nil, xerrors.Errorf("distro %q: %w", id, ErrUnsupported)
}

// DistroID returns the ID field of os-release with quotes trimmed.
func DistroID(fs afero.Fs) (string, error) {
	for _, path := range osReleasePaths {
		f, err := fs.Open(path)
		if err != nil {
			logger.Debug("os-release not found", log.FilePath(path))
			continue
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if id, ok := strings.CutPrefix(line, "ID="); ok {
				return strings.Trim(id, `"'`), nil
			}
		}
		if err = scanner.Err(); err != nil {
			return "", xerrors.Errorf("%s read error: %w", path, err)
		}
		return "", xerrors.Errorf("no ID in %s: %w", path, ErrUnsupported)
	}
	return "", xerrors.Errorf("os-release not found: %w", ErrUnsupported)
}

// AllCatPkgs collects the packages of every category.
func AllCatPkgs(a Adapter) (map[string][]types.Package, error) {
	categories, err := a.Categories()
	if err != nil {
		return nil, xerrors.Errorf("%s category list error: %w", a.Name(), err)
	}

	catPkgs := make(map[string][]types.Package, len(categories))
	for _, category := range categories {
		pkgs, err := a.Packages(category)
		if err != nil {
			return nil, xerrors.Errorf("%s package list error (%s): %w", a.Name(), category, err)
		}
		catPkgs[category] = pkgs
	}
	return catPkgs, nil
}

func dirOr(dir, def string) string {
	if dir == "" {
		return def
	}
	return dir
}
