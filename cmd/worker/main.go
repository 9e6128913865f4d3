package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storyforge/narrative-search/internal/bootstrap"
	"github.com/storyforge/narrative-search/internal/config"
	"github.com/storyforge/narrative-search/internal/observability/logging"
)

const serviceName = "worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, serviceName, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go serveMetrics(cfg.WorkerMetricsPort, app)

	// Safety net for missed events: rebuild when the snapshot outlives its TTL.
	go func() {
		ticker := time.NewTicker(cfg.StalenessCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if app.Dictionary.Age() > cfg.DictionaryTTL {
					if app.Dictionary.ForceRefresh() {
						logger.Info("stale_dictionary_rebuild_started", "age", app.Dictionary.Age().String())
					}
				}
			}
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeCorpusChanged(ctx, func(handlerCtx context.Context, reason string) error {
		logger.Info("corpus_changed", "reason", reason)
		refreshCtx, cancel := context.WithTimeout(handlerCtx, cfg.RebuildTimeout)
		defer cancel()
		return app.Dictionary.Refresh(refreshCtx)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func serveMetrics(port string, app *bootstrap.App) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.DictionaryMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("worker metrics server error: %v", err)
	}
}
