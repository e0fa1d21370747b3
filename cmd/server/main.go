package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"series-orderer/internal/cohort"
	"series-orderer/internal/platform/config"
	"series-orderer/internal/platform/logger"
	"series-orderer/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

func main() {
	_ = config.Load()

	settings, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(settings.LogLevel, settings.LogFormat)

	store, err := openStore(settings)
	if err != nil {
		log.Error("open store failed", "driver", settings.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	repo := cohort.NewStoreRepository(store)
	svc := cohort.NewService(repo)
	met := metrics.New()
	h := cohort.NewHandler(svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met, "/metrics"))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() {
			if n, err := repo.PatientCount(r.Context()); err == nil {
				met.SetKnownPatients(n)
			}
		}).ServeHTTP(w, r)
	})
	h.Routes(r)

	addr := ":" + settings.Port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", settings.Port,
		"store_driver", settings.StoreDriver,
		"log_level", settings.LogLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func openStore(s config.Settings) (cohort.Store, error) {
	if s.StoreDriver == config.StoreSQLite {
		return cohort.OpenSQLiteStore(s.SQLitePath)
	}
	return cohort.NewInMemoryStore(), nil
}
