// Package validate checks documents against a compiled XML schema and
// reports every finding without stopping.
package validate

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
)

// Severity ranks a finding.
type Severity int

const (
	Warning Severity = iota
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// Finding is one schema violation.
type Finding struct {
	Severity Severity
	Line     int
	Column   int
	Code     string
	Path     string
	Message  string
}

// String renders the finding as a single audit line.
func (f Finding) String() string {
	return fmt.Sprintf("VALIDATION %s\t%d:%d\t%s", f.Severity, f.Line, f.Column, f.Message)
}

// Option configures schema loading.
type Option func(*options)

type options struct {
	allowMissingImports bool
}

// WithAllowMissingImports skips imports whose location cannot be resolved
// instead of failing to compile.
func WithAllowMissingImports(allow bool) Option {
	return func(o *options) { o.allowMissingImports = allow }
}

// Validator holds a schema compiled once and is safe for concurrent use.
type Validator struct {
	schema *xsd.Schema
	root   string
}

// New compiles the schema at root inside fsys. Nested includes and imports
// are looked up by file name inside fsys when their full location is not
// present.
func New(fsys fs.FS, root string, opts ...Option) (*Validator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	loadOpts := xsd.NewLoadOptions().WithAllowMissingImportLocations(o.allowMissingImports)
	schema, err := xsd.LoadWithOptions(flatFS{fsys: fsys}, root, loadOpts)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", root, err)
	}
	return &Validator{schema: schema, root: root}, nil
}

// NewFromDir compiles root from the schema bundle in dir.
func NewFromDir(dir, root string, opts ...Option) (*Validator, error) {
	return New(os.DirFS(dir), root, opts...)
}

// Root returns the schema entry point.
func (v *Validator) Root() string {
	return v.root
}

// Validate streams r through the schema. Findings are returned in the order
// the validator emits them; a nil slice means the document conforms. The
// error is non-nil only when validation itself could not run.
func (v *Validator) Validate(r io.Reader) ([]Finding, error) {
	err := v.schema.Validate(r)
	if err == nil {
		return nil, nil
	}
	violations, ok := xsderrors.AsValidations(err)
	if !ok {
		return nil, fmt.Errorf("validate: %w", err)
	}

	findings := make([]Finding, 0, len(violations))
	for _, viol := range violations {
		findings = append(findings, Finding{
			Severity: severityOf(viol.Code),
			Line:     viol.Line,
			Column:   viol.Column,
			Code:     viol.Code,
			Path:     viol.Path,
			Message:  viol.Message,
		})
	}
	return findings, nil
}

func severityOf(code string) Severity {
	switch code {
	case string(xsderrors.ErrXMLParse), string(xsderrors.ErrNoRoot), string(xsderrors.ErrSchemaNotLoaded):
		return Fatal
	default:
		return Error
	}
}

// flatFS falls back to the base name of a location, so an import of
// http://www.w3.org/1999/xhtml/driver.xsd resolves to driver.xsd in the
// bundle.
type flatFS struct {
	fsys fs.FS
}

func (f flatFS) Open(name string) (fs.File, error) {
	file, err := f.fsys.Open(name)
	if err == nil {
		return file, nil
	}
	base := path.Base(name)
	if base == name || base == "." || base == "/" {
		return nil, err
	}
	return f.fsys.Open(base)
}
