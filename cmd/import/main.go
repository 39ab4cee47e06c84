// Command import loads the institution dataset from two name-keyed CSV
// sources, replacing whatever is currently stored.
//
// Usage:
//
//	import --primary ipeds.csv --secondary s3://datasets/cwur.csv [--dry-run] [--summary-out s3://datasets/last-import.json]
//	import migrate
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/app"
	"github.com/sahilchouksey/university-explorer/config"
	"github.com/sahilchouksey/university-explorer/database"
	"github.com/sahilchouksey/university-explorer/services"
	"github.com/sahilchouksey/university-explorer/services/spaces"
	"github.com/spf13/cobra"
)

var (
	primarySource   string
	secondarySource string
	summaryOut      string
	dryRun          bool
	timeout         time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace the institution dataset from two CSV sources",
	Long: `Reads the primary CSV (one row per institution) and left-joins the
secondary CSV onto it by trimmed institution name. Sources are local paths or
s3://bucket/key locations on the configured Spaces endpoint.`,
	SilenceUsage: true,
	RunE:         runImport,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema and run migrations without importing",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.Flags().StringVar(&primarySource, "primary", "", "primary CSV path or s3:// location (default IMPORT_PRIMARY_SOURCE)")
	rootCmd.Flags().StringVar(&secondarySource, "secondary", "", "secondary CSV path or s3:// location (default IMPORT_SECONDARY_SOURCE)")
	rootCmd.Flags().StringVar(&summaryOut, "summary-out", "", "also write the summary JSON to this path or s3:// location")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "merge and print the summary without writing")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall time limit")

	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEnv() (*config.EnvironmentVariable, error) {
	if err := config.LoadENV(); err != nil {
		log.Warn("Warning: .env file not found, using system environment variables")
	}
	return config.Get()
}

func runImport(cmd *cobra.Command, args []string) error {
	getEnv, err := loadEnv()
	if err != nil {
		return err
	}

	opts := services.ImportOptions{
		PrimarySource:   primarySource,
		SecondarySource: secondarySource,
		DryRun:          dryRun,
	}
	if opts.PrimarySource == "" {
		opts.PrimarySource = getEnv.IMPORT_PRIMARY_SOURCE
	}
	if opts.SecondarySource == "" {
		opts.SecondarySource = getEnv.IMPORT_SECONDARY_SOURCE
	}
	if opts.PrimarySource == "" {
		return errors.New("--primary is required (or set IMPORT_PRIMARY_SOURCE)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	objects, err := app.NewSpacesClient(getEnv)
	if err != nil {
		return err
	}
	// Fail before touching the database when a source is missing
	if err := checkSources(ctx, objects, opts.PrimarySource, opts.SecondarySource); err != nil {
		return err
	}

	importer, release, err := newImporter(objects, opts.DryRun)
	if err != nil {
		return err
	}
	defer release()

	summary, err := importer.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if summaryOut != "" {
		if err := writeSummary(ctx, objects, summaryOut, out); err != nil {
			return err
		}
	}
	return nil
}

// checkSources verifies every non-empty source exists
func checkSources(ctx context.Context, objects *spaces.SpacesClient, sources ...string) error {
	for _, source := range sources {
		if source == "" {
			continue
		}
		if !spaces.IsObjectURL(source) {
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("source %s: %w", source, err)
			}
			continue
		}
		if objects == nil {
			return fmt.Errorf("source %s: %w", source, services.ErrNoObjectStore)
		}
		exists, err := objects.FileExists(ctx, source)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("source %s does not exist", source)
		}
	}
	return nil
}

func writeSummary(ctx context.Context, objects *spaces.SpacesClient, location string, data []byte) error {
	if !spaces.IsObjectURL(location) {
		return os.WriteFile(location, data, 0o644)
	}
	if objects == nil {
		return fmt.Errorf("summary %s: %w", location, services.ErrNoObjectStore)
	}
	return objects.UploadBytes(ctx, location, data, "application/json")
}

// newImporter migrates the schema and connects the bulk loader, except for
// dry runs which never touch the database
func newImporter(objects *spaces.SpacesClient, dryRun bool) (*services.ImportService, func(), error) {
	var opener services.ObjectOpener
	if objects != nil {
		opener = objects
	}

	if dryRun {
		return services.NewImportService(nil, opener), func() {}, nil
	}

	store, err := database.StartGORM()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate: %w", err)
	}

	loader, err := database.Start()
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Init(); err != nil {
		loader.Close()
		return nil, nil, err
	}
	return services.NewImportService(loader, opener), func() { loader.Close() }, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if _, err := loadEnv(); err != nil {
		return err
	}

	store, err := database.StartGORM()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All migrations completed successfully")
	return nil
}
