package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Fulvio75/fpdb/internal/aggregation"
	"github.com/Fulvio75/fpdb/internal/core/cache"
	corecfg "github.com/Fulvio75/fpdb/internal/core/config"
	"github.com/Fulvio75/fpdb/internal/core/lock"
	"github.com/Fulvio75/fpdb/internal/core/storage/postgres"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlite"
	"github.com/Fulvio75/fpdb/internal/core/storage/sqlstore"
	"github.com/Fulvio75/fpdb/internal/ingestion"
	"github.com/Fulvio75/fpdb/internal/migrations"
	"github.com/Fulvio75/fpdb/internal/projection"
	"github.com/Fulvio75/fpdb/internal/server"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type flags struct {
	config      string
	mode        string
	input       string
	kind        string
	tourneyType int64
	resumeAfter int64
}

func main() {
	var f flags
	flag.StringVar(&f.config, "config", "fpdb.yaml", "Path to configuration file")
	flag.StringVar(&f.mode, "mode", "serve", "serve | import | rebuild | watch | timezone")
	flag.StringVar(&f.input, "input", "", "Comma separated record files for -mode import")
	flag.StringVar(&f.kind, "kind", "all", "Cache to rebuild: all, sessions or a cache table name")
	flag.Int64Var(&f.tourneyType, "tourney-type", 0, "Restrict a rebuild to one tourney type")
	flag.Int64Var(&f.resumeAfter, "resume-after", 0, "Resume an interrupted rebuild after this hand id")
	flag.Parse()

	// 0. Initialize Logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := corecfg.Load(f.config)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)})))

	opts, err := aggregation.OptionsFromConfig(cfg)
	if err != nil {
		slog.Error("Invalid import configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 2. Initialize Storage
	db, dialect, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(db.DB, cfg.Database.Driver, cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	store := sqlstore.New(db, dialect)
	insertLock := lock.New(store, cfg.Lock.RetryDuration())
	importer := aggregation.NewImporter(store, opts).WithLock(insertLock, cfg.Lock.Wait)
	loader := ingestion.NewFileLoader(ingestion.NewFormatRegistry(), importer, store)

	switch f.mode {
	case "serve":
		err = serve(ctx, cfg, store, importer, loader)
	case "import":
		err = importFiles(ctx, loader, f.input)
	case "rebuild":
		err = insertLock.With(ctx, cfg.Lock.Wait, func(ctx context.Context) error {
			return rebuild(ctx, aggregation.NewRebuilder(store, opts), f)
		})
	case "watch":
		err = watch(ctx, cfg, loader)
	case "timezone":
		err = insertLock.With(ctx, cfg.Lock.Wait, func(ctx context.Context) error {
			return aggregation.NewRebuilder(store, opts).UpdateTimezone(ctx, opts.Location)
		})
	default:
		err = fmt.Errorf("unknown mode %q", f.mode)
	}
	if err != nil {
		slog.Error("Stopped with error", "mode", f.mode, "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete", "mode", f.mode)
}

func openDatabase(ctx context.Context, cfg corecfg.DatabaseConfig) (*sqlx.DB, sqlstore.Dialect, error) {
	dialect, err := sqlstore.ParseDialect(cfg.Driver)
	if err != nil {
		return nil, 0, err
	}
	var db *sqlx.DB
	switch cfg.Driver {
	case migrations.DriverPostgres:
		db, err = postgres.Open(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns, !cfg.AutoMigrate)
	default:
		db, err = sqlite.Open(ctx, cfg.DSN)
	}
	return db, dialect, err
}

func serve(ctx context.Context, cfg *corecfg.Config, store *sqlstore.Store, importer *aggregation.Importer, loader *ingestion.FileLoader) error {
	ingestionSvc := ingestion.NewService(importer, cfg.Server.MaxBodySizeMB)
	projectionSvc := projection.NewService(store,
		projection.ParamsFromConfig(cfg.Hud, cfg.Import), cfg.Hud.CacheSize, cfg.Hud.TTL())

	srv := server.New(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port), store.DB(), cfg.Server.Mode)
	srv.Mount(ingestionSvc, projectionSvc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if cfg.Watch.Dir != "" {
		g.Go(func() error { return watch(ctx, cfg, loader) })
	}
	return g.Wait()
}

func importFiles(ctx context.Context, loader *ingestion.FileLoader, input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("-input is required for -mode import")
	}
	var errs []error
	for _, path := range strings.Split(input, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		report, err := loader.ImportFile(ctx, path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("Imported file", "path", path, "stored", report.Stored, "duplicates", report.Duplicates, "errors", report.Errors)
	}
	return errors.Join(errs...)
}

func watch(ctx context.Context, cfg *corecfg.Config, loader *ingestion.FileLoader) error {
	if cfg.Watch.Dir == "" {
		return errors.New("watch.dir is required for -mode watch")
	}
	scheduler := aggregation.NewScheduler(cfg.Watch.TickInterval(), cfg.Watch.MaxBatchesPerTick, loader)
	watcher, err := ingestion.NewWatcher(cfg.Watch.Dir, ingestion.NewFormatRegistry(), scheduler, cfg.Watch.SettleDuration())
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return scheduler.Start(ctx) })
	return g.Wait()
}

func rebuild(ctx context.Context, r *aggregation.Rebuilder, f flags) error {
	switch strings.ToLower(f.kind) {
	case "all":
		return r.RebuildAll(ctx)
	case "sessions":
		_, err := r.RebuildSessions(ctx)
		return err
	}
	kind, err := cache.ParseKind(f.kind)
	if err != nil {
		return err
	}
	sel := cache.SelectAll()
	if f.tourneyType != 0 {
		sel = cache.SelectTourneyType(f.tourneyType)
	}
	p, err := r.Rebuild(ctx, kind, sel, aggregation.RebuildOptions{ResumeAfter: f.resumeAfter})
	var re *aggregation.RebuildError
	if errors.As(err, &re) {
		slog.Error("Rebuild interrupted, rerun with -resume-after", "kind", kind.String(), "resume_after", re.LastCompletedHandID)
	}
	if err != nil {
		return err
	}
	slog.Info("Rebuild finished", "kind", kind.String(), "pages", p.Pages, "lines", p.Lines, "duration", p.Duration)
	return nil
}

func logLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
