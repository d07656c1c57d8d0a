package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sumandas0/farmstore/config"
	"github.com/sumandas0/farmstore/internal/api/handlers"
	"github.com/sumandas0/farmstore/internal/cache"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/observability"
	"github.com/sumandas0/farmstore/internal/security"
	"github.com/sumandas0/farmstore/internal/seed"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/internal/store/memory"
	"github.com/sumandas0/farmstore/internal/store/postgres"
)

var errNeedsPostgres = errors.New("this command requires store.type=postgres")

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE:  runMigrations,
	}
	cmd.Flags().Bool("status", false, "List pending migrations without applying them")
	cmd.Flags().Bool("reset", false, "Drop all tables before migrating")
	return cmd
}

func runMigrations(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Type != "postgres" {
		return errNeedsPostgres
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx := cmd.Context()
	pgStore, err := openPostgres(ctx, cfg, logger.GetZerologLogger(), false)
	if err != nil {
		return err
	}
	defer pgStore.Close()

	migrator := postgres.NewMigrator(pgStore.GetPool(), logger.GetZerologLogger())

	if status, _ := cmd.Flags().GetBool("status"); status {
		pending, err := migrator.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations")
		}
		for _, name := range pending {
			fmt.Fprintf(cmd.OutOrStdout(), "pending  %s\n", name)
		}
		return nil
	}

	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := migrator.Reset(ctx); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
	}

	applied, err := migrator.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s)\n", len(applied))
	return nil
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load seed documents into the database",
		RunE:  runSeed,
	}
	cmd.Flags().StringP("file", "f", "", "YAML seed file (defaults to the embedded sample catalog)")
	cmd.Flags().Bool("skip-existing", true, "Skip documents whose id already exists")
	return cmd
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Type != "postgres" {
		return errNeedsPostgres
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	file, _ := cmd.Flags().GetString("file")
	skipExisting, _ := cmd.Flags().GetBool("skip-existing")

	set, err := loadSeed(file)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pgStore, err := openPostgres(ctx, cfg, logger.GetZerologLogger(), cfg.Store.Database.MigrateOnStart)
	if err != nil {
		return err
	}
	defer pgStore.Close()

	written, err := seed.Apply(ctx, pgStore, set, skipExisting)
	if err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d document(s)\n", written, set.Count())
	return nil
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <collection> [key=value ...]",
		Short: "Run a listing query and print the result page as JSON",
		Long: "Runs a listing query with the same parameters the HTTP listing endpoints accept, e.g.\n" +
			"  farmstore query products category=과일 sort=price_low page_size=5",
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: models.CollectionNames(),
		RunE:      runQuery,
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	def, ok := models.LookupCollection(args[0])
	if !ok {
		return fmt.Errorf("unknown collection %q (expected one of %s)", args[0], strings.Join(models.CollectionNames(), ", "))
	}

	values := url.Values{}
	for _, arg := range args[1:] {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		values.Add(key, value)
	}

	ctx := cmd.Context()
	engine, err := newQueryEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	parser := handlers.NewListingParser(security.NewInputSanitizer(cfg.Security.Sanitizer), cfg.Query.MaxPageSize)
	page, err := engine.Query(ctx, def.Name, parser.Parse(def, values))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(page)
}

// newQueryEngine builds an engine without HTTP, metrics export or tracing.
func newQueryEngine(ctx context.Context, cfg *config.Config) (*core.Engine, error) {
	obs := integration.NewNoopObservabilityManager()

	var st store.DocumentStore
	if cfg.Store.Type == "postgres" {
		pgStore, err := openPostgres(ctx, cfg, obs.GetLogging().GetZerologLogger(), false)
		if err != nil {
			return nil, err
		}
		st = pgStore
	} else {
		st = memory.NewMemoryStore()
		set, err := loadSeed(cfg.Store.SeedFile)
		if err != nil {
			return nil, err
		}
		if _, err := seed.Apply(ctx, st, set, false); err != nil {
			return nil, err
		}
	}

	collation, err := cfg.CollationTag()
	if err != nil {
		st.Close()
		return nil, err
	}

	cm := cache.NewCacheAwareManager(cache.NewManager(st, cfg.Cache.SnapshotTTL), nil)
	engine, err := core.NewEngine(st, cm, obs,
		core.WithCatalogEngine(catalog.NewEngine(
			catalog.WithCollation(collation),
			catalog.WithHighlights(cfg.Query.Highlights),
		)),
		core.WithCartPolicy(cfg.Cart),
	)
	if err != nil {
		st.Close()
		return nil, err
	}
	return engine, nil
}
