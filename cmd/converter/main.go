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
	"example.com/garmcloud/internal/converter"
	"example.com/garmcloud/internal/parser"
	httptransport "example.com/garmcloud/internal/transport/http"
)

func main() {
	cfg := config.Load()

	forwarder := converter.NewIngestClient(cfg.IngestURL, cfg.ForwardTimeout)

	mux := http.NewServeMux()
	mux.Handle("/convert/gpx", converter.NewHandler(parser.GPX{}, forwarder))
	mux.Handle("/convert/fit", converter.NewHandler(parser.FIT{}, forwarder))
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.TrackUploadConfig(cfg.HTTPAddress), mux)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("converter listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
