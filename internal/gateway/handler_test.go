package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"example.com/garmcloud/internal/storage/blob"
)

type stubDispatcher struct {
	mu     sync.Mutex
	calls  []string
	staged []string
	done   chan struct{}
	err    error
}

func newStubDispatcher() *stubDispatcher {
	return &stubDispatcher{done: make(chan struct{}, 1024)}
}

func (d *stubDispatcher) Dispatch(_ context.Context, stagedPath, id string) error {
	d.mu.Lock()
	d.calls = append(d.calls, id)
	d.staged = append(d.staged, stagedPath)
	d.mu.Unlock()
	d.done <- struct{}{}
	return d.err
}

func (d *stubDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestHandler(t *testing.T, store blob.Store, dispatcher Dispatcher) *Handler {
	t.Helper()
	return NewHandler(store, dispatcher,
		WithLogger(quietLogger()),
		WithStagingDir(t.TempDir()),
		WithDispatchTimeout(time.Second),
	)
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestRetrievePingShortCircuits(t *testing.T) {
	handler := newTestHandler(t, &failingStore{}, newStubDispatcher())

	req := httptest.NewRequest(http.MethodGet, "/?uuid=ping", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if rr.Body.String() != pingResponse {
		t.Fatalf("unexpected ping body: %q", rr.Body.String())
	}
}

func TestRetrieveMissingUUIDIsClientError(t *testing.T) {
	handler := newTestHandler(t, blob.NewMemoryStore(), newStubDispatcher())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestRetrieveUnknownUUIDIsNotFound(t *testing.T) {
	handler := newTestHandler(t, blob.NewMemoryStore(), newStubDispatcher())

	req := httptest.NewRequest(http.MethodGet, "/?uuid=never-ingested", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

// failingStore simulates a broken object store: reads must still collapse
// to the uniform not-found result.
type failingStore struct{}

func (failingStore) Put(context.Context, string, []byte) error { return errors.New("store down") }
func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}

func TestRetrieveStoreErrorIsIndistinguishableFromNotFound(t *testing.T) {
	broken := newTestHandler(t, &failingStore{}, newStubDispatcher())
	empty := newTestHandler(t, blob.NewMemoryStore(), newStubDispatcher())

	var codes []int
	for _, handler := range []*Handler{broken, empty} {
		req := httptest.NewRequest(http.MethodGet, "/?uuid=abc", nil)
		rr := httptest.NewRecorder()
		handler.root(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusNotFound || codes[1] != http.StatusNotFound {
		t.Fatalf("expected uniform 404, got %v", codes)
	}
}

func TestRetrieveReturnsDocumentVerbatim(t *testing.T) {
	store := blob.NewMemoryStore()
	doc := []byte(`{"uuid":"abc","converter":"GpxConverter","records":[]}`)
	if err := store.Put(context.Background(), "abc.json", doc); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	handler := newTestHandler(t, store, newStubDispatcher())

	req := httptest.NewRequest(http.MethodGet, "/?uuid=abc", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if !bytes.Equal(rr.Body.Bytes(), doc) {
		t.Fatalf("document was not returned verbatim: %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	dispatcher := newStubDispatcher()
	handler := newTestHandler(t, blob.NewMemoryStore(), dispatcher)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if dispatcher.callCount() != 0 {
		t.Fatalf("dispatcher must not be called for a rejected upload")
	}
}

func TestUploadRejectsUnsupportedExtensionBeforeDispatch(t *testing.T) {
	dispatcher := newStubDispatcher()
	handler := newTestHandler(t, blob.NewMemoryStore(), dispatcher)

	req := uploadRequest(t, "track.txt", []byte("not a track"))
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if dispatcher.callCount() != 0 {
		t.Fatalf("dispatcher must not be called for unsupported extensions")
	}
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	dispatcher := newStubDispatcher()
	handler := newTestHandler(t, blob.NewMemoryStore(), dispatcher)

	req := uploadRequest(t, "ride.gpx", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
	if dispatcher.callCount() != 0 {
		t.Fatalf("dispatcher must not be called for empty uploads")
	}
}

func TestUploadReturnsUUIDAndDispatchesAsync(t *testing.T) {
	dispatcher := newStubDispatcher()
	stagingDir := t.TempDir()
	handler := NewHandler(blob.NewMemoryStore(), dispatcher,
		WithLogger(quietLogger()),
		WithStagingDir(stagingDir),
		WithDispatchTimeout(time.Second),
	)

	req := uploadRequest(t, "ride.GPX", []byte("<gpx/>"))
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	id := rr.Body.String()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("response body is not a uuid: %q", id)
	}

	select {
	case <-dispatcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher was never invoked")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if dispatcher.calls[0] != id {
		t.Fatalf("dispatched uuid %q does not match response %q", dispatcher.calls[0], id)
	}
	if got := filepath.Base(dispatcher.staged[0]); got != id+".gpx" {
		t.Fatalf("staged file %q not named by uuid and lowercased extension", got)
	}
	if _, err := os.Stat(dispatcher.staged[0]); err != nil {
		t.Fatalf("staged file missing at dispatch time: %v", err)
	}
}

func TestUploadIdentifiersAreUnique(t *testing.T) {
	dispatcher := newStubDispatcher()
	dispatcher.done = make(chan struct{}, 20000)
	handler := newTestHandler(t, blob.NewMemoryStore(), dispatcher)

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		req := uploadRequest(t, "ride.gpx", []byte("<gpx/>"))
		rr := httptest.NewRecorder()
		handler.root(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("upload %d failed with %d", i, rr.Code)
		}
		id := rr.Body.String()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate identifier %q after %d uploads", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestUnsupportedMethodIsClientError(t *testing.T) {
	handler := newTestHandler(t, blob.NewMemoryStore(), newStubDispatcher())

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}
