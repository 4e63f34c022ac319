// importer.go defines the importer abstraction and the registry that maps
// import type tags to importer factories.
//
// An Importer adapts one kind of tabular input (delimited text, spreadsheet
// workbooks, fixed-width text, stored query results) to two views the rest
// of the pipeline consumes: an inferred column schema and a stream of string
// rows. Factories validate the variant-specific parts of an ImportConfig and
// return a configured importer.
//
// Factories for the file-backed variants register themselves at package init.
// The query-result variant needs a result store and is registered by the
// process entrypoint once one is configured.
package core

import (
	"context"
	"fmt"
)

// Importer reads one import variant.
//
// Both methods open the source independently; a Source must tolerate being
// opened once per call. InferSchema consumes at most sampleLimit data rows.
type Importer interface {
	// InferSchema determines column names and canonical types from the
	// source, sampling at most sampleLimit rows (DefaultSampleLimit when
	// sampleLimit <= 0).
	InferSchema(ctx context.Context, src Source, sampleLimit int) (ColumnSchema, error)

	// Rows streams every data row of the source in order. Header rows are
	// not part of the stream. The caller must close the returned stream.
	Rows(ctx context.Context, src Source) (RowStream, error)
}

// ImporterFactory builds an Importer from the variant-specific fields of an
// ImportConfig. Factories wrap ErrConfigValidation for missing or malformed
// parameters.
type ImporterFactory func(cfg ImportConfig) (Importer, error)

var importers = NewRegistry[ImporterFactory]("importer")

// RegisterImporter installs the factory for an import type tag. It panics if
// the tag is already taken; registration happens once at process start.
func RegisterImporter(t ImportType, factory ImporterFactory) {
	importers.Register(string(t), factory)
}

// SelectImporter resolves cfg.Type against the importer registry and builds
// the importer for it.
func SelectImporter(cfg ImportConfig) (Importer, error) {
	if cfg.Type == "" {
		return nil, configErrorf("import type is required")
	}
	factory, ok := importers.Lookup(string(cfg.Type))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImportType, cfg.Type)
	}
	return factory(cfg)
}

// ImportTypes reports the registered import type tags in sorted order.
func ImportTypes() []string {
	return importers.Tags()
}
