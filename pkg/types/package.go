package types

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/xerrors"
)

// pkgPattern splits "<name>-<version>" where the version starts with a digit.
// Go's regexp picks submatches leftmost-first like a backtracking engine, so the
// greedy name group ends at the rightmost "-<digit>" boundary.
var pkgPattern = regexp.MustCompile(`^(.+)-([0-9]+.*)$`)

type Version struct {
	Version string `json:"version"`
}

// Package is an installed package. A package may be known under several versions,
// e.g. the installed one and a live "9999" ebuild.
type Package struct {
	Name     string    `json:"name"`
	Versions []Version `json:"versions"`
}

func NewPackage(name string, versions ...string) Package {
	pkg := Package{Name: name}
	for _, v := range versions {
		pkg.Versions = append(pkg.Versions, Version{Version: v})
	}
	return pkg
}

// ParsePackage converts a package manager entry such as "rust-bin-1.58.1" into a Package.
// It returns false when the entry carries no version, e.g. a category marker.
func ParsePackage(raw string) (Package, bool) {
	m := pkgPattern.FindStringSubmatch(raw)
	if m == nil {
		return Package{}, false
	}
	return NewPackage(m[1], m[2]), true
}

// String renders the package as "<name>-<version>" with its first version, the inverse of ParsePackage.
func (p Package) String() string {
	if len(p.Versions) == 0 {
		return p.Name
	}
	return p.Name + "-" + p.Versions[0].Version
}

// Key identifies the package in match results as "<name>@<v1>,<v2>".
// "@" never appears in a package name or version, so names ending in "-<digit>" stay distinct.
func (p Package) Key() string {
	if len(p.Versions) == 0 {
		return p.Name
	}
	versions := make([]string, 0, len(p.Versions))
	for _, v := range p.Versions {
		versions = append(versions, v.Version)
	}
	return p.Name + "@" + strings.Join(versions, ",")
}

// UnmarshalJSON accepts both {"name", "versions": [{"version"}]} and the flat {"name", "version"} form.
func (p *Package) UnmarshalJSON(b []byte) error {
	var raw struct {
		Name     string    `json:"name"`
		Version  *string   `json:"version"`
		Versions []Version `json:"versions"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return xerrors.Errorf("package unmarshal error: %w", err)
	}

	p.Name = raw.Name
	p.Versions = raw.Versions
	if raw.Version != nil {
		p.Versions = append([]Version{{Version: *raw.Version}}, p.Versions...)
	}
	return nil
}
