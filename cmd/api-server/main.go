package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/internal/events"
	"github.com/faciam-dev/guidecms/internal/logger"
	"github.com/faciam-dev/guidecms/internal/server"
	"github.com/faciam-dev/guidecms/pkg/metrics"
	"github.com/faciam-dev/guidecms/pkg/migrator"
	"github.com/faciam-dev/guidecms/pkg/util"
)

func main() {
	dsn := flag.String("dsn", util.GetEnv("DSN", ""), "database DSN")
	driver := flag.String("driver", util.GetEnv("DB_DRIVER", ""), "database driver (detected from the DSN when empty)")
	addr := flag.String("addr", util.GetEnv("ADDR", ":8080"), "listen address")
	openapi := flag.String("openapi", "", "write OpenAPI JSON and exit")
	migrate := flag.Bool("migrate", false, "apply pending migrations before serving")
	flag.Parse()

	cfg, err := server.ConfigFromEnv()
	logger.Set(logger.New(os.Stdout, cfg.LogFormat, util.GetEnv("LOG_LEVEL", "info")))
	if err != nil {
		logger.L.Error("config", "err", err)
		os.Exit(1)
	}

	if *dsn == "" {
		logger.L.Error("a database DSN is required (-dsn or DSN)")
		os.Exit(1)
	}
	if *driver == "" {
		detected, err := util.DetectDriver(*dsn)
		if err != nil {
			logger.L.Error("detect driver", "dsn", *dsn, "err", err)
			os.Exit(1)
		}
		*driver = detected
	}
	cfg.Driver, cfg.DSN = *driver, *dsn

	db, err := sql.Open(*driver, util.OpenDSN(*driver, *dsn))
	if err != nil {
		logger.L.Error("db open", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *migrate {
		m, err := migrator.New(*driver, cfg.TablePrefix)
		if err != nil {
			logger.L.Error("migrator", "err", err)
			os.Exit(1)
		}
		if err := m.Up(ctx, db, 0); err != nil {
			logger.L.Error("migrate", "err", err)
			os.Exit(1)
		}
	}

	app, err := server.New(ctx, db, cfg)
	if err != nil {
		logger.L.Error("build server", "err", err)
		os.Exit(1)
	}

	if *openapi != "" {
		data, err := json.MarshalIndent(app.API.OpenAPI(), "", "  ")
		if err != nil {
			logger.L.Error("marshal openapi", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(filepath.Clean(*openapi), data, 0o600); err != nil {
			logger.L.Error("write openapi", "err", err)
			os.Exit(1)
		}
		return
	}

	if cfg.SchemaFile != "" {
		w := registry.NewWatcher(cfg.SchemaFile, app.Static, 0, logger.L)
		w.OnReload = func() { app.Cache.Invalidate() }
		cancel, err := w.Start(ctx)
		if err != nil {
			logger.L.Error("watch schema file", "path", cfg.SchemaFile, "err", err)
			os.Exit(1)
		}
		defer cancel()
	}

	metrics.StartFieldGauge(ctx, app.Fields, 30*time.Second)
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Cron(util.GetEnv("ORPHAN_SCAN_CRON", "0 3 * * *")).Do(app.Orphans.RunScan, ctx); err != nil {
		logger.L.Error("schedule orphan scan", "err", err)
	}
	s.StartAsync()
	defer s.Stop()

	srv := &http.Server{
		Addr:         *addr,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.L.Error("shutdown", "err", err)
		}
	}()

	logger.L.Info("listening", "addr", *addr, "driver", *driver, "table_prefix", cfg.TablePrefix)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("server error", "err", err)
		os.Exit(1)
	}
	if events.Default != nil {
		events.Default.Wait()
	}
}
