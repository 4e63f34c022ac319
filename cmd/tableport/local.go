// local.go holds the one-shot commands: preview, render and upload run the
// pipeline directly against a local file, with no server in between.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tableport/tableport/internal/config"
	"github.com/tableport/tableport/internal/core"
	"github.com/tableport/tableport/internal/engine"
	"github.com/tableport/tableport/internal/logging"
	"github.com/tableport/tableport/internal/storage"
)

// importFlags are the source options shared by every one-shot command.
// Query-result imports are a server feature; files are what a CLI has.
type importFlags struct {
	file        string
	typ         string
	delimiter   string
	header      bool
	sheet       int
	widths      []int
	sampleLimit int
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "path of the source file (required)")
	cmd.Flags().StringVar(&f.typ, "type", string(core.ImportDelimited), "import type: delimited, spreadsheet, fixed_width")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", `field delimiter for delimited sources (default ",")`)
	cmd.Flags().BoolVar(&f.header, "header", true, "first row is a header row")
	cmd.Flags().IntVar(&f.sheet, "sheet", 0, "sheet index for spreadsheet sources")
	cmd.Flags().IntSliceVar(&f.widths, "widths", nil, "column widths for fixed_width sources")
	cmd.Flags().IntVar(&f.sampleLimit, "sample-limit", 0, "rows inference examines (0 = default)")
	cmd.MarkFlagRequired("file")
}

func (f *importFlags) config() core.ImportConfig {
	return core.ImportConfig{
		Type:        core.ImportType(f.typ),
		Delimiter:   f.delimiter,
		Header:      f.header,
		Sheet:       f.sheet,
		Widths:      f.widths,
		SampleLimit: f.sampleLimit,
	}
}

func newPreviewCmd() *cobra.Command {
	var flags importFlags
	var rows int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Infer the column schema of a file and show sample rows",
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Setup("warn", "text")
			svc := core.NewService(nil, nil, nil, core.Options{
				SampleLimit: flags.sampleLimit,
				PreviewRows: rows,
			})
			res, err := svc.Preview(c.Context(), flags.config(), core.NewFileSource(flags.file))
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&rows, "rows", 10, "sample rows to include")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var flags importFlags
	var (
		dialect  string
		table    string
		format   string
		location string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Infer a schema and print the CREATE TABLE statement (dry run)",
		RunE: func(c *cobra.Command, _ []string) error {
			logging.Setup("warn", "text")
			renderer, ok := core.LookupRenderer(dialect)
			if !ok {
				return fmt.Errorf("unknown dialect %q (registered: %v)", dialect, core.DialectTags())
			}
			schema, err := inferSchema(c.Context(), &flags)
			if err != nil {
				return err
			}
			cfg := core.TableConfig{
				Name:     table,
				Schema:   schema,
				Format:   core.StorageFormat(format),
				Location: location,
			}
			if cfg.Format.External() {
				if cfg.Location == "" {
					return fmt.Errorf("format %s renders a storage clause: --location is required", cfg.Format)
				}
				if cfg.Format == core.FormatCSV {
					// Staged CSV always carries a header row; render the DDL
					// an upload would run.
					cfg.SkipHeader = true
				}
			}
			ddl, err := renderer.Render(cfg)
			if err != nil {
				return err
			}
			fmt.Println(ddl)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&dialect, "dialect", "", "dialect to render (required)")
	cmd.Flags().StringVar(&table, "table", "", "name of the table to create (required)")
	cmd.Flags().StringVar(&format, "format", string(core.FormatNative), "storage format: CSV, PARQUET, NATIVE")
	cmd.Flags().StringVar(&location, "location", "", "external storage location (required for CSV and PARQUET)")
	cmd.MarkFlagRequired("dialect")
	cmd.MarkFlagRequired("table")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var flags importFlags
	var (
		engineID    string
		enginesFile string
		table       string
		format      string
		location    string
		schemaFile  string
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file as a table on a configured engine",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

			if enginesFile == "" {
				enginesFile = cfg.Engines.File
			}
			catalog, err := engine.LoadCatalog(enginesFile)
			if err != nil {
				return err
			}
			store, err := storage.New(c.Context(), storage.Config{
				Kind:            cfg.Storage.Kind,
				Root:            cfg.Storage.Root,
				Bucket:          cfg.Storage.Bucket,
				Prefix:          cfg.Storage.Prefix,
				CredentialsFile: cfg.Storage.CredentialsFile,
			})
			if err != nil {
				return fmt.Errorf("open object store: %w", err)
			}
			svc := core.NewService(catalog, storage.NewStager(store), nil, core.Options{
				SampleLimit:   cfg.Upload.SampleLimit,
				BatchSize:     cfg.Upload.BatchSize,
				UploadTimeout: cfg.Upload.Timeout,
			})

			schema, err := loadSchema(schemaFile)
			if err != nil {
				return err
			}
			if schema == nil {
				if schema, err = inferSchema(c.Context(), &flags); err != nil {
					return err
				}
			}

			req := core.UploadRequest{
				Import:   flags.config(),
				EngineID: engineID,
				Table: core.TableConfig{
					Name:     table,
					Schema:   schema,
					Format:   core.StorageFormat(format),
					Location: location,
				},
			}
			res, uploadErr := svc.Upload(c.Context(), req, core.NewFileSource(flags.file))
			if res != nil {
				if err := printJSON(res); err != nil {
					return err
				}
			}
			return uploadErr
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&engineID, "engine", "", "engine id from the catalog (required)")
	cmd.Flags().StringVar(&enginesFile, "engines", "", "engine catalog file (default from config)")
	cmd.Flags().StringVar(&table, "table", "", "name of the table to create (required)")
	cmd.Flags().StringVar(&format, "format", string(core.FormatNative), "storage format: CSV, PARQUET, NATIVE")
	cmd.Flags().StringVar(&location, "location", "", "external storage location (assigned when empty)")
	cmd.Flags().StringVar(&schemaFile, "schema", "", `JSON schema file, [{"name":...,"type":...}]; inferred when omitted`)
	cmd.MarkFlagRequired("engine")
	cmd.MarkFlagRequired("table")
	return cmd
}

// inferSchema runs schema inference over the command's source file.
func inferSchema(ctx context.Context, flags *importFlags) (core.ColumnSchema, error) {
	imp, err := core.SelectImporter(flags.config())
	if err != nil {
		return nil, err
	}
	limit := flags.sampleLimit
	if limit <= 0 {
		limit = core.DefaultSampleLimit
	}
	return imp.InferSchema(ctx, core.NewFileSource(flags.file), limit)
}

// loadSchema reads a user-supplied schema file. An empty path means "infer".
func loadSchema(path string) (core.ColumnSchema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var schema core.ColumnSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return schema, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
