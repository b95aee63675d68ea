// Command importer reconciles accounting CSV extracts into the canonical
// store. It is invoked once per file (or once per drop-folder sweep) by an
// external scheduler; the exit code tells the scheduler whether the run
// succeeded.
//
// Usage:
//
//	importer -kind customer export.csv
//	importer -dir /var/lib/importer/drop
//	importer -kind invoice -dry-run invoices.csv
//	importer -validate -kind invoice invoices.csv
//	importer -ping
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/quickledger/importer/internal/config"
	"github.com/quickledger/importer/internal/csvio"
	"github.com/quickledger/importer/internal/engine"
	"github.com/quickledger/importer/internal/logging"
	"github.com/quickledger/importer/internal/schema"
	"github.com/quickledger/importer/internal/store"
)

func main() {
	// Load .env if present (Overload overwrites existing env vars).
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	var (
		kindFlag   = flag.String("kind", "", "entity kind of the input files: customer, invoice, receipt")
		dirFlag    = flag.String("dir", "", "drop folder to sweep instead of processing file arguments")
		dryRun     = flag.Bool("dry-run", false, "reconcile against an in-memory store; nothing is persisted")
		validate   = flag.Bool("validate", false, "parse and normalize only; the store is never touched")
		ping       = flag.Bool("ping", false, "check database connectivity and exit")
		batchSize  = flag.Int("batch-size", 0, "rows per transaction (overrides IMPORT_BATCH_SIZE)")
		errorLimit = flag.Int("error-limit", -1, "abort after this many row errors, 0 = unlimited (overrides IMPORT_ERROR_LIMIT)")
		aliasFile  = flag.String("aliases", "", "TOML file with extra CSV header aliases (overrides IMPORT_ALIASES)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if *batchSize > 0 {
		cfg.Import.BatchSize = *batchSize
	}
	if *errorLimit >= 0 {
		cfg.Import.ErrorLimit = *errorLimit
	}
	if *dirFlag != "" {
		cfg.Import.Dir = *dirFlag
	}
	if *aliasFile != "" {
		cfg.Import.AliasFile = *aliasFile
	}

	if cfg.Import.AliasFile != "" {
		if err := schema.LoadAliases(cfg.Import.AliasFile); err != nil {
			slog.Error("failed to load header aliases", "file", cfg.Import.AliasFile, "error", err)
			os.Exit(2)
		}
	}

	ctx := context.Background()

	if *ping {
		_, cleanup, err := openStore(ctx, cfg, false)
		if err != nil {
			slog.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		cleanup()
		fmt.Println("ok")
		return
	}

	if *validate {
		if *kindFlag == "" || flag.NArg() == 0 {
			fmt.Fprintln(os.Stderr, "usage: importer -validate -kind <customer|invoice|receipt> file.csv ...")
			os.Exit(2)
		}
		if !validateFiles(*kindFlag, flag.Args()) {
			os.Exit(1)
		}
		return
	}

	st, cleanup, err := openStore(ctx, cfg, *dryRun)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(2)
	}
	defer cleanup()

	runner := &engine.Runner{
		Store:      st,
		BatchSize:  cfg.Import.BatchSize,
		ErrorLimit: cfg.Import.ErrorLimit,
	}

	ok := false
	switch {
	case cfg.Import.Dir != "":
		ok = sweepDir(ctx, runner, cfg.Import.Dir)
	case *kindFlag != "" && flag.NArg() > 0:
		ok = processFiles(ctx, runner, *kindFlag, flag.Args())
	default:
		fmt.Fprintln(os.Stderr, "usage: importer -kind <customer|invoice|receipt> file.csv ...")
		fmt.Fprintln(os.Stderr, "       importer -dir <drop-folder>")
		os.Exit(2)
	}

	if !ok {
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config, dryRun bool) (store.Store, func(), error) {
	if dryRun {
		return store.NewMemory(), func() {}, nil
	}

	if cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is not set")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	return store.NewPostgres(pool), pool.Close, nil
}

// processFiles runs the given files as one kind. Returns true when every
// file succeeded.
func processFiles(ctx context.Context, runner *engine.Runner, kindName string, files []string) bool {
	def, ok := schema.Get(store.Kind(strings.ToLower(kindName)))
	if !ok {
		slog.Error("unknown entity kind", "kind", kindName)
		return false
	}

	allOK := true
	for _, path := range files {
		if !processFile(ctx, runner, def, path) {
			allOK = false
		}
	}
	return allOK
}

// validateFiles parses and normalizes every row of the given files without
// opening a store. Returns true when no row fails.
func validateFiles(kindName string, files []string) bool {
	def, ok := schema.Get(store.Kind(strings.ToLower(kindName)))
	if !ok {
		slog.Error("unknown entity kind", "kind", kindName)
		return false
	}

	allOK := true
	for _, path := range files {
		if !validateFile(def, path) {
			allOK = false
		}
	}
	return allOK
}

func validateFile(def schema.Definition, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("failed to open file", "file", path, "error", err)
		return false
	}
	defer f.Close()

	src, err := csvio.NewSource(f)
	if err != nil {
		slog.Error("failed to read file", "file", path, "error", err)
		return false
	}

	rows, bad := 0, 0
	for {
		row, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			slog.Error("failed to read row", "file", path, "error", err)
			return false
		}

		rows++
		if _, err := engine.Normalize(row, def); err != nil {
			bad++
			fmt.Printf("  %s: %v\n", filepath.Base(path), err)
		}
	}

	fmt.Printf("%s: %d rows, %d invalid\n", filepath.Base(path), rows, bad)
	return bad == 0
}

// sweepDir scans each kind's subdirectory of the drop folder and moves every
// handled file into a per-day processed/ or failed/ subfolder.
func sweepDir(ctx context.Context, runner *engine.Runner, dir string) bool {
	allOK := true

	for _, def := range schema.All() {
		kindDir := filepath.Join(dir, def.Directory)
		entries, err := os.ReadDir(kindDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			slog.Error("failed to read drop folder", "dir", kindDir, "error", err)
			allOK = false
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
				continue
			}

			path := filepath.Join(kindDir, entry.Name())
			ok := processFile(ctx, runner, def, path)
			if err := archiveFile(path, ok); err != nil {
				slog.Error("failed to move handled file", "file", path, "error", err)
				allOK = false
			}
			if !ok {
				allOK = false
			}
		}
	}
	return allOK
}

// processFile reconciles one CSV file and prints its report. Returns the
// run's success verdict.
func processFile(ctx context.Context, runner *engine.Runner, def schema.Definition, path string) bool {
	log := logging.WithRun(string(def.Kind), filepath.Base(path))
	runner.Logger = log

	f, err := os.Open(path)
	if err != nil {
		log.Error("failed to open file", "error", err)
		return false
	}
	defer f.Close()

	src, err := csvio.NewSource(f)
	if err != nil {
		log.Error("failed to read file", "error", err)
		return false
	}

	log.Info("run started", "batch_size", runner.BatchSize, "error_limit", runner.ErrorLimit)
	run, err := runner.Run(ctx, src, def)
	if err != nil {
		log.Error("run failed", "error", err)
		return false
	}

	summary := engine.Summarize(run)
	fmt.Print(engine.FormatReport(run))
	log.Info("run finished",
		"rows", summary.Rows,
		"created", summary.Created,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"errors", summary.Errored,
		"duration", summary.Duration.Round(time.Millisecond),
		"success", summary.Success,
	)
	return summary.Success
}

// archiveFile moves a handled file into <dir>/processed/<day>/ or
// <dir>/failed/<day>/ next to where it was picked up.
func archiveFile(path string, ok bool) error {
	outcome := "processed"
	if !ok {
		outcome = "failed"
	}

	day := time.Now().Format("2006-01-02")
	destDir := filepath.Join(filepath.Dir(path), outcome, day)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(destDir, filepath.Base(path)))
}
