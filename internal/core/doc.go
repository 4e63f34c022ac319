// Package core implements the table-upload pipeline: it turns a user-supplied
// tabular source into a new table in a target analytical query engine.
//
// This package contains all domain logic independent of any transport layer.
// It can be driven by web handlers, CLI commands, or tests without
// modification.
//
// # Pipeline
//
// An upload moves through four components:
//
//  1. The importer selector resolves an [ImportConfig] to an [Importer]
//     variant (delimited file, spreadsheet, fixed-width, prior query result).
//  2. The importer infers a [ColumnSchema] from a bounded sample and exposes
//     the data as a single-pass [RowStream].
//  3. A dialect [Renderer] (registered per target SQL dialect) renders the
//     schema and storage settings into a CREATE TABLE statement.
//  4. The [Exporter] executes the statement against the target engine and
//     loads the rows, dropping the table again if loading fails.
//
// # Canonical Types
//
// Every inferred column carries one of five canonical types: BOOLEAN,
// DATETIME, FLOAT, INTEGER, STRING. A column may instead carry a custom,
// engine-native type expression (for example DECIMAL(10,2)) which bypasses
// canonical type mapping and is emitted into DDL verbatim. [IsCustomType]
// distinguishes the two from the stored value alone.
//
// # Registries
//
// Importer variants and dialect renderers register themselves at init time
// and the registries are read-only afterwards, so request handling needs no
// registry synchronization. Registration panics on duplicate tags; a dialect
// renderer additionally panics if its type map does not cover the canonical
// enumeration.
//
// # Failure Semantics
//
// [Exporter.Upload] is a small state machine (rendering, staging, creating,
// loading) with typed sentinel errors per stage. A load failure after table
// creation triggers exactly one drop-table attempt; the [LoadResult] reports
// whether the rollback succeeded so a caller can always tell "nothing
// happened" from "table exists but load failed" from "rollback also failed".
package core
