package ingest

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/garmcloud/internal/storage/blob"
)

func newTestHandler(store blob.Store, rows RecordStore) *Handler {
	return NewHandler(NewSink(store, rows, WithLogger(discardLogger())), WithHandlerLogger(discardLogger()))
}

func TestHandlerPing(t *testing.T) {
	handler := newTestHandler(blob.NewMemoryStore(), newFakeRecordStore())

	req := httptest.NewRequest(http.MethodGet, "/?uuid=ping", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, pingResponse, rr.Body.String())
}

func TestHandlerRejectsMissingUUID(t *testing.T) {
	handler := newTestHandler(blob.NewMemoryStore(), newFakeRecordStore())

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/", nil)
		rr := httptest.NewRecorder()
		handler.root(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, method)
	}
}

func TestHandlerRejectsInvalidJSON(t *testing.T) {
	store := blob.NewMemoryStore()
	handler := newTestHandler(store, newFakeRecordStore())

	req := httptest.NewRequest(http.MethodPost, "/?uuid=abc", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Zero(t, store.Len(), "nothing may be stored for a rejected body")
}

func TestHandlerStoresBodyVerbatim(t *testing.T) {
	store := blob.NewMemoryStore()
	rows := newFakeRecordStore()
	handler := newTestHandler(store, rows)

	body := []byte(`{"uuid":"abc","converter":"FitConverter","total_dist_in_km":10.5,"records":[{"activity_uuid":"abc","timestamp":"2020-06-01 17:09:57"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/?uuid=abc", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "abc", rr.Body.String())

	doc, err := store.Get(req.Context(), "abc.json")
	require.NoError(t, err)
	require.Equal(t, body, doc)
	require.Equal(t, 1, rows.saves["abc"])
}

func TestHandlerLogsConverterLabel(t *testing.T) {
	var buf bytes.Buffer
	handler := NewHandler(
		NewSink(blob.NewMemoryStore(), newFakeRecordStore(), WithLogger(discardLogger())),
		WithHandlerLogger(log.New(&buf, "", 0)),
	)

	body := []byte(`{"uuid":"abc","converter":"GpxConverter","records":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/?uuid=abc&converter=GpxConverter", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, buf.String(), "GpxConverter")
	require.Contains(t, buf.String(), "abc")
}

func TestHandlerUnsupportedMethod(t *testing.T) {
	handler := newTestHandler(blob.NewMemoryStore(), newFakeRecordStore())

	req := httptest.NewRequest(http.MethodDelete, "/?uuid=abc", nil)
	rr := httptest.NewRecorder()
	handler.root(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
