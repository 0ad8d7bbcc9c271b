// Package converter serves the per-format conversion endpoints. Each
// endpoint owns one format parser; a successful parse is forwarded to the
// ingestion sink, which makes the activity durable.
package converter

import (
	"fmt"
	"io"
	"log"
	"net/http"

	"example.com/garmcloud/internal/observability"
	"example.com/garmcloud/internal/parser"
)

// Handler converts uploads for a single source format.
type Handler struct {
	parser    parser.Parser
	forwarder Forwarder
	logger    *log.Logger
}

// Option configures optional Handler behaviour.
type Option func(*Handler)

// WithLogger overrides the handler's logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler builds a Handler around one parser.
func NewHandler(p parser.Parser, forwarder Forwarder, opts ...Option) *Handler {
	h := &Handler{
		parser:    p,
		forwarder: forwarder,
		logger:    log.New(log.Writer(), fmt.Sprintf("[%s] ", p.Label()), log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.probe(w, r)
	case http.MethodPost:
		h.convert(w, r)
	default:
		http.Error(w, "unsupported method", http.StatusBadRequest)
	}
}

func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("uuid") != "ping" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s ping: service is up and running.", h.parser.Label())
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "missing uuid", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file was uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		http.Error(w, "no file was uploaded", http.StatusBadRequest)
		return
	}

	activity, err := h.parser.Parse(data, id)
	if err != nil {
		// Nothing gets persisted for a failed parse; the uuid simply
		// never becomes retrievable.
		h.logger.Printf("parse for %s failed: %v", id, err)
		observability.RecordConversion(h.parser.Label(), "parse_error")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.forwarder.Forward(r.Context(), activity); err != nil {
		h.logger.Printf("forward for %s failed: %v", id, err)
		observability.RecordConversion(h.parser.Label(), "forward_error")
		http.Error(w, "unable to forward activity", http.StatusBadRequest)
		return
	}

	observability.RecordConversion(h.parser.Label(), "ok")
	h.logger.Printf("activity %s with %d records sent to ingest", id, len(activity.Records))
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s json with uuid %s sent to ingest.", h.parser.Label(), id)
}
