package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/cliphist/internal/api"
	"go.klb.dev/cliphist/internal/grpcservice"
	"go.klb.dev/cliphist/internal/history"
	"go.klb.dev/cliphist/internal/hub"
)

type activatorFunc func(history.Entry) error

func (f activatorFunc) Activate(e history.Entry) error { return f(e) }

func newServer(t *testing.T, token string) (*hub.Hub, *httptest.Server) {
	t.Helper()
	h := hub.New(history.NewStore())
	ts := httptest.NewServer(New(grpcservice.New(h, token, api.DaemonInfo{Version: "test"})))
	t.Cleanup(ts.Close)
	return h, ts
}

func do(t *testing.T, method, url, contentType, body string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHTTP_AddAndFetch(t *testing.T) {
	h, ts := newServer(t, "")

	resp := do(t, http.MethodPost, ts.URL+"/v1/history", "text/html; charset=utf-8", "<b>hi</b>", SourceHeader, "curl")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	added := decode[api.AddResponse](t, resp)
	assert.True(t, added.Added)

	resp = do(t, http.MethodPost, ts.URL+"/v1/history", "text/html", "<b>hi</b>")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "duplicate of head")

	head, err := h.At(0)
	require.NoError(t, err)
	assert.Equal(t, "text/html", head.MIME)
	assert.Equal(t, "curl", head.Metadata[history.MetaSource])

	resp = do(t, http.MethodGet, ts.URL+"/v1/history/0", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<b>hi</b>", string(body))

	resp = do(t, http.MethodGet, ts.URL+"/v1/history", "", "")
	list := decode[api.ListResponse](t, resp)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "**hi**", list.Entries[0].Description)
}

func TestHTTP_DefaultContentType(t *testing.T) {
	h, ts := newServer(t, "")
	do(t, http.MethodPost, ts.URL+"/v1/history", "", "raw")
	head, err := h.At(0)
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", head.MIME)
}

func TestHTTP_IndexErrors(t *testing.T) {
	h, ts := newServer(t, "")
	h.Add(history.NewEntry([]byte("a"), "text/plain", nil), "test")

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/v1/history/7", "", "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, ts.URL+"/v1/history/x", "", "").StatusCode)

	resp := do(t, http.MethodDelete, ts.URL+"/v1/history/7", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[api.RemoveResponse](t, resp).Removed)

	resp = do(t, http.MethodDelete, ts.URL+"/v1/history/0", "", "")
	assert.True(t, decode[api.RemoveResponse](t, resp).Removed)
	assert.Equal(t, 0, h.Count())
}

func TestHTTP_Activate(t *testing.T) {
	h, ts := newServer(t, "")
	h.Add(history.NewEntry([]byte("a"), "text/plain", nil), "test")

	resp := do(t, http.MethodPost, ts.URL+"/v1/history/0/activate", "", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "no activator")

	h.SetActivator(activatorFunc(func(history.Entry) error { return nil }))
	resp = do(t, http.MethodPost, ts.URL+"/v1/history/0/activate", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", decode[api.ActivateResponse](t, resp).Entry.MIME)
}

func TestHTTP_Auth(t *testing.T) {
	_, ts := newServer(t, "s3cret")

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, ts.URL+"/v1/status", "", "").StatusCode)

	resp := do(t, http.MethodGet, ts.URL+"/v1/status", "", "", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", decode[api.StatusResponse](t, resp).Version)
}
