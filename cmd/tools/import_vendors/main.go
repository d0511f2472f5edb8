package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"vendorbook-api/internal/config"
	"vendorbook-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "path to the .xlsx workbook")
		mappingPath = flag.String("mapping", "", "column mapping YAML (defaults to IMPORT_MAPPING or the built-in mapping)")
		dryRun      = flag.Bool("dry-run", false, "roll back instead of committing")
		maxErrors   = flag.Int("max-errors", 50, "abort after this many row errors")
		asJSON      = flag.Bool("json", false, "print the summary as JSON")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: import_vendors --file=vendors.xlsx [--mapping=vendors.yaml] [--dry-run] [--max-errors=50] [--json]")
		os.Exit(2)
	}

	cfg, err := config.LoadAndValidate()
	if err != nil {
		slog.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg)
	if *mappingPath == "" {
		*mappingPath = cfg.ImportMapping
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	f, err := os.Open(*filePath)
	if err != nil {
		logger.Error("failed to open workbook", slog.String("file", *filePath), slog.Any("error", err))
		os.Exit(1)
	}
	defer f.Close()

	summary, err := importer.ImportVendors(ctx, pool, f, importer.ImportOptions{
		MappingPath: *mappingPath,
		DryRun:      *dryRun,
		MaxErrors:   *maxErrors,
	})
	if err != nil {
		logger.Error("import failed", slog.String("run_id", summary.RunID), slog.Any("error", err))
		printSummary(summary, *asJSON)
		os.Exit(1)
	}
	printSummary(summary, *asJSON)
}

func printSummary(summary importer.ImportSummary, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(summary)
		return
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("IMPORT SUMMARY (run %s)\n", summary.RunID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total inserted: %d\n", summary.Inserted)
	fmt.Printf("Total updated: %d\n", summary.Updated)
	fmt.Printf("Total skipped: %d\n", summary.Skipped)
	fmt.Printf("Total errors: %d\n", summary.Errors)
	fmt.Printf("Dry run: %v\n", summary.DryRun)

	if len(summary.Sheets) == 0 {
		return
	}
	fmt.Println("\nSheet Details:")
	for _, sheet := range summary.Sheets {
		fmt.Printf("  %s: inserted=%d, updated=%d, skipped=%d, errors=%d\n",
			sheet.Name, sheet.Inserted, sheet.Updated, sheet.Skipped, sheet.Errors)
		for _, sample := range sheet.Samples {
			fmt.Printf("      Row %d: %s\n", sample.Row, sample.Message)
		}
	}
}
