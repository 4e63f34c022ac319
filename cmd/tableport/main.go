package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// Dialect renderers register themselves at init; the drivers named in
	// the engine catalog must be linked here too.
	_ "github.com/ClickHouse/clickhouse-go/v2"
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/tableport/tableport/internal/dialect"
)

// dotenvLoaded records whether a .env file overrode the environment, so
// serve can log it after logging is configured.
var dotenvLoaded bool

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		dotenvLoaded = true
	}

	root := &cobra.Command{
		Use:           "tableport",
		Short:         "Upload tabular files as queryable tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newUploadCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
