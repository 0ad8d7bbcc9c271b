package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/garmcloud/internal/config"
	"example.com/garmcloud/internal/gateway"
	"example.com/garmcloud/internal/storage/blob"
	httptransport "example.com/garmcloud/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up object store: %v", err)
	}

	dispatcher := gateway.NewConverterClient(cfg.GPXConverterURL, cfg.FITConverterURL, cfg.ForwardTimeout)
	handler := gateway.NewHandler(store, dispatcher, gateway.WithDispatchTimeout(cfg.DispatchTimeout))

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.TrackUploadConfig(cfg.HTTPAddress), logger(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gateway listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func newBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.BlobBackend == config.BlobBackendMemory {
		return blob.NewMemoryStore(), nil
	}
	return blob.NewGCSStore(ctx, cfg.BlobBucket, cfg.BlobCredentialsFile)
}
