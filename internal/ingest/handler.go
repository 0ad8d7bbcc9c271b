package ingest

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"example.com/garmcloud/internal/domain"
)

const pingResponse = "garmcloud ingest ping: service is up and running."

// Handler exposes the sink over HTTP for the converter services.
type Handler struct {
	sink   *Sink
	logger *log.Logger
}

// HandlerOption configures optional Handler behaviour.
type HandlerOption func(*Handler)

// WithHandlerLogger overrides the handler's logger.
func WithHandlerLogger(logger *log.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler builds a Handler.
func NewHandler(sink *Sink, opts ...HandlerOption) *Handler {
	h := &Handler{
		sink:   sink,
		logger: log.New(log.Writer(), "[ingest] ", log.LstdFlags),
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
		h.probe(w, r)
	case http.MethodPost:
		h.ingest(w, r)
	default:
		http.Error(w, "unsupported method", http.StatusBadRequest)
	}
}

func (h *Handler) probe(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "missing uuid", http.StatusBadRequest)
		return
	}
	if id != "ping" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pingResponse))
}

// ingest accepts the activity JSON produced by a converter. The body is
// stored verbatim as the retrievable document and decoded for the
// relational rows.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uuid")
	if id == "" {
		http.Error(w, "missing uuid", http.StatusBadRequest)
		return
	}

	converter := r.URL.Query().Get("converter")
	if converter == "" {
		converter = "unknown"
	}
	h.logger.Printf("received %s json for %s", converter, id)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	var activity domain.Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		http.Error(w, "invalid activity json: "+err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.sink.Ingest(r.Context(), id, raw, &activity)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(stored))
}
