// Package gateway exposes the public upload and retrieval surface. An
// upload is answered with a correlation uuid before conversion starts; a
// retrieval reads only the object store, so a document becomes visible
// exactly when the ingest write lands.
package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/garmcloud/internal/observability"
	"example.com/garmcloud/internal/parser"
	"example.com/garmcloud/internal/storage/blob"
)

const pingResponse = "garmcloud gateway ping: service is up and running."

// Handler serves the combined upload/retrieval endpoint.
type Handler struct {
	store           blob.Store
	dispatcher      Dispatcher
	stagingDir      string
	dispatchTimeout time.Duration
	logger          *log.Logger
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithLogger overrides the handler's logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithStagingDir overrides the directory uploads are staged in.
func WithStagingDir(dir string) Option {
	return func(h *Handler) { h.stagingDir = dir }
}

// WithDispatchTimeout bounds the asynchronous converter handoff.
func WithDispatchTimeout(d time.Duration) Option {
	return func(h *Handler) { h.dispatchTimeout = d }
}

// NewHandler builds a Handler.
func NewHandler(store blob.Store, dispatcher Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		store:           store,
		dispatcher:      dispatcher,
		stagingDir:      os.TempDir(),
		dispatchTimeout: 2 * time.Minute,
		logger:          log.New(log.Writer(), "[gateway] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires the endpoint to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", h.root)
}

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.retrieve(w, r)
	case http.MethodPost:
		h.upload(w, r)
	default:
		http.Error(w, "unsupported method", http.StatusBadRequest)
	}
}

// retrieve returns the stored JSON document for a uuid. Any failure to
// read the document collapses to 404: a caller cannot tell "never
// uploaded" from "still converting" from "conversion failed".
func (h *Handler) retrieve(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "missing uuid", http.StatusBadRequest)
		return
	}

	if id == "ping" {
		observability.RecordRetrieval("ping")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(pingResponse))
		return
	}

	data, err := h.store.Get(r.Context(), id+".json")
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			h.logger.Printf("blob read for %s failed: %v", id, err)
		}
		observability.RecordRetrieval("miss")
		http.Error(w, id, http.StatusNotFound)
		return
	}

	observability.RecordRetrieval("hit")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// upload accepts a multipart "file" field, stages it under a fresh uuid,
// and answers with that uuid. The converter handoff runs in the background;
// its outcome is observable only through later retrievals.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		observability.RecordUploadRejection("no_file")
		http.Error(w, "no file was uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !parser.Supported(ext) {
		observability.RecordUploadRejection("unsupported_extension")
		http.Error(w, "unsupported file extension", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		observability.RecordUploadRejection("unreadable_body")
		http.Error(w, "unable to read file", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		observability.RecordUploadRejection("empty_file")
		http.Error(w, "uploaded file is empty", http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	staged := filepath.Join(h.stagingDir, id+ext)
	if err := os.WriteFile(staged, data, 0o600); err != nil {
		h.logger.Printf("staging %s failed: %v", header.Filename, err)
		http.Error(w, "unable to stage file", http.StatusInternalServerError)
		return
	}
	h.logger.Printf("file %s staged as %s", header.Filename, filepath.Base(staged))

	label := converterLabel(ext)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.dispatchTimeout)
		defer cancel()
		if err := h.dispatcher.Dispatch(ctx, staged, id); err != nil {
			// The uploader already has its uuid; the only visible symptom
			// of this failure is that the uuid never becomes retrievable.
			h.logger.Printf("dispatch for %s failed: %v", id, err)
			observability.RecordDispatchFailure(label)
		}
	}()

	observability.RecordUpload(ext)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(id))
}

func converterLabel(ext string) string {
	if p, ok := parser.ForExtension(ext); ok {
		return p.Label()
	}
	return "unknown"
}
