package validator

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/xerrors"

	"github.com/aquasecurity/vulner/pkg/types"
)

//go:embed schemas/*.json
var schemas embed.FS

var (
	ErrValidation = xerrors.New("validation error")

	packagesSchema = mustCompile("schemas/packages-batch.schema.json", "schemas/package.schema.json")
	cpesSchema     = mustCompile("schemas/cpe-batch.schema.json", "schemas/cpe.schema.json")
)

// Violation is a single schema violation at a JSON path.
type Violation struct {
	Field       string
	Description string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Description)
}

// Error lists every violation found in a batch.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d schema violation(s)", ErrValidation, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n- ")
		b.WriteString(v.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return ErrValidation
}

// Packages validates a package batch and decodes it.
func Packages(data []byte) ([]types.Package, error) {
	if err := validate(packagesSchema, data); err != nil {
		return nil, xerrors.Errorf("package batch: %w", err)
	}

	var pkgs []types.Package
	if err := json.Unmarshal(data, &pkgs); err != nil {
		return nil, xerrors.Errorf("package batch decode error: %w", err)
	}
	return pkgs, nil
}

// CPEs validates a batch of CPE 2.3 formatted strings and decodes it.
func CPEs(data []byte) ([]string, error) {
	if err := validate(cpesSchema, data); err != nil {
		return nil, xerrors.Errorf("CPE batch: %w", err)
	}

	var cpes []string
	if err := json.Unmarshal(data, &cpes); err != nil {
		return nil, xerrors.Errorf("CPE batch decode error: %w", err)
	}
	return cpes, nil
}

func validate(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return xerrors.Errorf("failed to run schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	e := &Error{}
	for _, desc := range result.Errors() {
		e.Violations = append(e.Violations, Violation{
			Field:       desc.Field(),
			Description: desc.Description(),
		})
	}
	return e
}

// mustCompile compiles the root schema with the schemas it references by $id.
func mustCompile(root string, refs ...string) *gojsonschema.Schema {
	sl := gojsonschema.NewSchemaLoader()
	sl.Draft = gojsonschema.Draft7
	for _, ref := range refs {
		if err := sl.AddSchemas(gojsonschema.NewBytesLoader(mustRead(ref))); err != nil {
			panic(fmt.Sprintf("%s: %s", ref, err))
		}
	}

	schema, err := sl.Compile(gojsonschema.NewBytesLoader(mustRead(root)))
	if err != nil {
		panic(fmt.Sprintf("%s: %s", root, err))
	}
	return schema
}

func mustRead(name string) []byte {
	b, err := schemas.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return b
}
