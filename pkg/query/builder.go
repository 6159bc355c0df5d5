package query

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"github.com/aquasecurity/vulner/pkg/log"
	"github.com/aquasecurity/vulner/pkg/types"
)

//go:embed aliases.yaml
var aliasesYAML []byte

const (
	// anyUpdate accepts CPEs with an unset or not-applicable update field.
	anyUpdate = `[\*\-]`

	// edition, language, sw_edition, target_sw, target_hw, other
	trailingFields = `:[^:]+:[^:]+:[^:]+:(linux|\*):[^:]+:[^:]`
)

var (
	ErrNoPackages = xerrors.New("no packages to build a pattern from")

	revisionPattern = regexp.MustCompile(`-r[0-9]+$`)
	patchPattern    = regexp.MustCompile(`^(alpha|beta|pre|rc|p)[0-9]*$`)
	livePattern     = regexp.MustCompile(`^9{4,}$`)

	defaultBuilder = NewBuilder()
	logger         = log.WithPrefix("query")
)

type alias struct {
	vendor  string
	product string
}

// Builder turns packages into regular expressions matching CPE 2.3 formatted strings.
type Builder struct {
	aliases map[string]alias
}

type Option func(*Builder)

// WithAliases adds "<package name>: <vendor>:<product>" rewrites on top of the embedded table.
func WithAliases(aliases map[string]string) Option {
	return func(b *Builder) {
		b.addAliases(aliases)
	}
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		aliases: map[string]alias{},
	}

	var embedded map[string]string
	if err := yaml.Unmarshal(aliasesYAML, &embedded); err != nil {
		panic(err)
	}
	b.addAliases(embedded)

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// LoadAliases reads a YAML file of "<package name>: <vendor>:<product>" entries.
func LoadAliases(path string) (map[string]string, error) {
	eb := oops.With("file_path", path)

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eb.Wrapf(err, "alias file read error")
	}

	aliases := map[string]string{}
	if err = yaml.Unmarshal(b, &aliases); err != nil {
		return nil, eb.Wrapf(err, "alias file decode error")
	}
	return aliases, nil
}

func (b *Builder) addAliases(aliases map[string]string) {
	for name, vendorProduct := range aliases {
		vendor, product, ok := strings.Cut(vendorProduct, ":")
		if !ok || vendor == "" || product == "" {
			logger.Warn("Invalid alias, expected <vendor>:<product>",
				log.Package(name), log.String("alias", vendorProduct))
			continue
		}
		b.aliases[name] = alias{vendor: vendor, product: product}
	}
}

// Patterns returns one sub-pattern per version of the package.
// Live versions have no CPE counterpart and yield nothing.
func (b *Builder) Patterns(pkg types.Package) []string {
	var patterns []string
	for _, v := range pkg.Versions {
		version, update, ok := normalizeVersion(v.Version)
		if !ok {
			logger.Debug("Skipping version without CPE counterpart",
				log.Package(pkg.Name), log.String("version", v.Version))
			continue
		}
		patterns = append(patterns, b.anchor(pkg.Name)+":"+regexp.QuoteMeta(version)+":"+update+trailingFields)
	}
	return patterns
}

// Pattern combines the sub-patterns of every package into a single alternation.
// An empty result means nothing can match.
func (b *Builder) Pattern(pkgs []types.Package) (string, error) {
	if len(pkgs) == 0 {
		return "", ErrNoPackages
	}

	var patterns []string
	for _, pkg := range pkgs {
		patterns = append(patterns, b.Patterns(pkg)...)
	}
	return strings.Join(patterns, "|"), nil
}

func (b *Builder) anchor(name string) string {
	if a, ok := b.aliases[name]; ok {
		return regexp.QuoteMeta(a.vendor) + ":" + regexp.QuoteMeta(a.product)
	}
	return ":" + regexp.QuoteMeta(name)
}

// normalizeVersion drops the Portage revision and moves a patch marker such as "_p1"
// into the CPE update field.
func normalizeVersion(v string) (version, update string, ok bool) {
	version = revisionPattern.ReplaceAllString(v, "")
	if version == "" || livePattern.MatchString(version) {
		return "", "", false
	}

	update = anyUpdate
	if base, suffix, found := strings.Cut(version, "_"); found && base != "" {
		marker, _, _ := strings.Cut(suffix, "_")
		if patchPattern.MatchString(marker) {
			version = base
			update = "(" + regexp.QuoteMeta(marker) + `|\*)`
		}
	}
	return version, update, true
}

// BuildPattern builds the combined pattern with the embedded alias table.
func BuildPattern(pkgs []types.Package) (string, error) {
	return defaultBuilder.Pattern(pkgs)
}
