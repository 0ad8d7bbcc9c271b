package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/garmcloud/internal/config"
	"example.com/garmcloud/internal/ingest"
	"example.com/garmcloud/internal/persistence/postgres"
	"example.com/garmcloud/internal/storage/blob"
	httptransport "example.com/garmcloud/internal/transport/http"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up object store: %v", err)
	}

	repo := postgres.NewRepository(pool)

	var sinkOpts []ingest.Option
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()
		sinkOpts = append(sinkOpts, ingest.WithPublisher(ingest.NewEventPublisher(producer, cfg.IngestTopic)))
	}

	sink := ingest.NewSink(store, repo, sinkOpts...)
	handler := ingest.NewHandler(sink)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.TrackUploadConfig(cfg.HTTPAddress), mux)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("ingest listening on %s", cfg.HTTPAddress)
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
