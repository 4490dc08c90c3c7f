package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradecatalog/internal/api"
	"tradecatalog/internal/catalog"
	"tradecatalog/internal/config"
	"tradecatalog/internal/images"
	"tradecatalog/internal/logger"
	"tradecatalog/internal/pipeline"
	"tradecatalog/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	must(err)
	must(cfg.Require("HTTP_ADDR", cfg.HTTPAddr))

	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := catalog.NewService(db, catalog.NewSorter(cfg.Locale), pipeline.NewRefGenerator(cfg.RefPrefix, cfg.RefWidth), log)
	router := api.NewRouter(api.RouterParams{
		Catalog:  svc,
		XLSX:     pipeline.NewXLSXExporter(images.NewClient(cfg, log), cfg.ImageFetchConcurrency, cfg.Location(), log),
		Metadata: db,
		Options: api.Options{
			Import:          pipeline.ImportOptions{AutoReference: cfg.ImportAutoReference},
			CSV:             pipeline.CSVOptions{ImageBaseURL: cfg.ImageBaseURL, Location: cfg.Location()},
			MaxUploadBytes:  cfg.ImportMaxBytes,
			RateLimitPerMin: cfg.APIRateLimitPerMin,
		},
		Logger: log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DBPath).Msg("catalog api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		must(err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	must(srv.Shutdown(shutdownCtx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
