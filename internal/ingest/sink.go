// Package ingest makes converted activities durable. It is the only
// component that writes: the raw activity JSON goes to the object store
// (the retrieval path's source of truth) and the decoded rows go to the
// relational store as a rebuildable secondary index.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"example.com/garmcloud/internal/domain"
	"example.com/garmcloud/internal/observability"
	"example.com/garmcloud/internal/storage/blob"
)

// Stages of the dual write, reported in IngestError.
const (
	StageObjectStore     = "object_store"
	StageRelationalStore = "relational_store"
)

// RecordStore is the relational side of the dual write.
type RecordStore interface {
	Save(ctx context.Context, activity *domain.Activity) error
}

// Publisher emits an event after a completed ingest. Delivery is
// best-effort; a publish failure never fails the ingest.
type Publisher interface {
	Publish(ctx context.Context, event ActivityIngested) error
}

// ActivityIngested is emitted once both writes of an ingest have landed.
type ActivityIngested struct {
	UUID        string    `json:"uuid"`
	Converter   string    `json:"converter"`
	RecordCount int       `json:"record_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// IngestError reports a failed dual write. BlobWritten distinguishes a
// partial success (document stored, rows missing) from a clean failure;
// there is no compensating rollback either way.
type IngestError struct {
	UUID        string
	Stage       string
	BlobWritten bool
	Err         error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s failed at %s (document written: %t): %v", e.UUID, e.Stage, e.BlobWritten, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Sink performs the dual write.
type Sink struct {
	blobs     blob.Store
	rows      RecordStore
	publisher Publisher
	logger    *log.Logger
}

// Option configures optional Sink behaviour.
type Option func(*Sink)

// WithPublisher attaches a post-ingest event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Sink) { s.publisher = p }
}

// WithLogger overrides the sink's logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// NewSink builds a Sink over the two stores.
func NewSink(blobs blob.Store, rows RecordStore, opts ...Option) *Sink {
	s := &Sink{
		blobs:  blobs,
		rows:   rows,
		logger: log.New(log.Writer(), "[ingest] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores raw (the activity JSON exactly as received) under
// {uuid}.json, then replaces the relational rows for the decoded activity.
// Re-ingesting a uuid overwrites the document and replaces the rows; it
// never duplicates. The object store is written first so a retrievable
// document is always a complete one.
func (s *Sink) Ingest(ctx context.Context, uuid string, raw []byte, activity *domain.Activity) (string, error) {
	start := time.Now()

	if err := s.blobs.Put(ctx, uuid+".json", raw); err != nil {
		observability.RecordIngest("blob_error", time.Since(start))
		return "", &IngestError{UUID: uuid, Stage: StageObjectStore, Err: err}
	}

	if err := s.rows.Save(ctx, activity); err != nil {
		observability.RecordIngest("db_error", time.Since(start))
		return "", &IngestError{UUID: uuid, Stage: StageRelationalStore, BlobWritten: true, Err: err}
	}

	observability.RecordIngest("ok", time.Since(start))
	s.logger.Printf("activity %s ingested (%d records)", uuid, len(activity.Records))

	if s.publisher != nil {
		event := ActivityIngested{
			UUID:        uuid,
			Converter:   activity.Converter,
			RecordCount: len(activity.Records),
			OccurredAt:  time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Printf("publish for %s failed: %v", uuid, err)
		}
	}

	return uuid, nil
}
