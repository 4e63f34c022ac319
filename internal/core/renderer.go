// renderer.go defines the dialect renderer abstraction and its registry.
//
// A Renderer turns a validated TableConfig into the CREATE TABLE statement
// one engine dialect understands. Implementations live in internal/dialect
// and register themselves at package init; entrypoints pull them in with a
// blank import. Registration is strict: a renderer that cannot map every
// canonical column type is a programming error and panics immediately, so a
// half-wired dialect never survives process start.
package core

import "fmt"

// Renderer produces dialect-specific DDL.
type Renderer interface {
	// Tag reports the dialect tag the renderer is registered under.
	Tag() string

	// TypeFor maps a canonical column type to the dialect's native type
	// name. Unknown types map to "". Custom column types bypass this
	// mapping entirely and are emitted verbatim.
	TypeFor(t ColumnType) string

	// ColumnDefs renders one "name type" definition per column, with the
	// identifier escaped in the dialect's style.
	ColumnDefs(schema ColumnSchema) []string

	// CreatePrefix renders the statement head up to, but not including,
	// the column list.
	CreatePrefix(table string) string

	// StorageClause renders the trailing clause that binds the table to
	// its storage format and location. It returns "" for formats that
	// need no clause and ErrUnsupportedStorageFormat for formats the
	// dialect cannot serve.
	StorageClause(cfg TableConfig) (string, error)

	// Render produces the complete CREATE TABLE statement.
	Render(cfg TableConfig) (string, error)
}

var renderers = NewRegistry[Renderer]("renderer")

// RegisterRenderer installs a renderer under its tag. It panics on duplicate
// tags and on renderers whose type map does not cover every canonical type.
func RegisterRenderer(r Renderer) {
	for _, t := range CanonicalTypes {
		if r.TypeFor(t) == "" {
			panic(fmt.Sprintf("renderer %q has no mapping for canonical type %s", r.Tag(), t))
		}
	}
	renderers.Register(r.Tag(), r)
}

// LookupRenderer resolves a dialect tag.
func LookupRenderer(tag string) (Renderer, bool) {
	return renderers.Lookup(tag)
}

// DialectTags reports the registered dialect tags in sorted order.
func DialectTags() []string {
	return renderers.Tags()
}
