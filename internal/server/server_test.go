package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diningguide/internal/services"
	"diningguide/internal/testutils"
	"diningguide/pkg/diningtypes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server   *Server
	catalog  *services.CatalogService
	provider *testutils.MockProvider
	dir      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	imagesDir := filepath.Join(dir, "images")
	testutils.WriteFile(t, imagesDir, "pizza_north.png", "png-bytes")

	catalog := services.NewCatalogService()
	catalog.SetProvider(services.NewCSVCatalog(testutils.WriteCatalog(t, dir), imagesDir))
	require.NoError(t, catalog.Initialize())

	provider := testutils.NewMockProvider("Head to North.")
	srv := New(Config{Host: "127.0.0.1", Port: 0, ImagesDir: imagesDir}, catalog, provider)
	return &testServer{server: srv, catalog: catalog, provider: provider, dir: dir}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		var data []byte
		switch v := body.(type) {
		case string:
			data = []byte(v)
		default:
			var err error
			data, err = json.Marshal(v)
			require.NoError(t, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Root(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.catalog.Load(context.Background())
	require.NoError(t, err)

	rec := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status diningtypes.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "Dining Hall API", status.Message)
	assert.Equal(t, 4, status.TotalItems)
}

func TestServer_ListFoods(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/foods", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var items []diningtypes.FoodItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 4)
	assert.Equal(t, "Pizza_North", items[0].ID)
	assert.Equal(t, "/images/pizza_north.png", items[0].ImageURL)
	assert.Contains(t, rec.Body.String(), `"diningHall":"North"`)
}

func TestServer_ListFoodsUnavailable(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.SetProvider(services.NewCSVCatalog(filepath.Join(ts.dir, "missing.csv"), ""))

	rec := ts.do(t, http.MethodGet, "/api/foods", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var failure diningtypes.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Contains(t, failure.Error, "catalog unavailable")
}

func TestServer_Reload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status diningtypes.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "Data reloaded", status.Message)
	assert.Equal(t, 4, status.TotalItems)
}

func TestServer_Chat(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/chat", diningtypes.ChatRequest{
		System: "You are a helpful dining hall assistant.",
		Messages: []diningtypes.CompletionMessage{
			{Role: diningtypes.RoleAssistant, Content: "Hi!"},
			{Role: diningtypes.RoleUser, Content: "Where should I eat?"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var reply diningtypes.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Head to North.", reply.Reply)

	calls := ts.provider.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "You are a helpful dining hall assistant.", calls[0].SystemPrompt)
	assert.Len(t, calls[0].History, 2)
}

func TestServer_ChatInvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{name: "malformed json", body: `{"messages": [`},
		{name: "no messages", body: diningtypes.ChatRequest{System: "x"}},
		{name: "bad role", body: `{"messages":[{"role":"system","content":"hi"}]}`},
		{name: "blank content", body: `{"messages":[{"role":"user","content":"  "}]}`},
		{name: "ends with assistant", body: `{"messages":[{"role":"user","content":"hi"},{"role":"assistant","content":"yo"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, ts.provider.CallCount())
		})
	}
}

func TestServer_ChatProviderFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.provider.FailNext(errors.New("anthropic API key not configured"))

	rec := ts.do(t, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var failure diningtypes.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &failure))
	assert.Equal(t, "anthropic API key not configured", failure.Error)
}

func TestServer_ChatWithoutProvider(t *testing.T) {
	ts := newTestServer(t)
	srv := New(Config{ImagesDir: ts.dir}, ts.catalog, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "no completion provider configured")
}

func TestServer_RemoteClientRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	httpServer := httptest.NewServer(ts.server.Handler())
	defer httpServer.Close()

	client := services.NewRemoteClient(httpServer.URL, services.HTTPClientOptions{Timeout: 2 * time.Second})
	reply, err := client.Complete(context.Background(), "system", []diningtypes.CompletionMessage{
		{Role: diningtypes.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Head to North.", reply)

	catalog := services.NewHTTPCatalog(httpServer.URL, services.HTTPClientOptions{Timeout: 2 * time.Second})
	items, err := catalog.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	provider := body["provider"].(map[string]interface{})
	assert.Equal(t, "mock", provider["name"])
	assert.Equal(t, true, provider["configured"])
}

func TestServer_StaticImages(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/images/pizza_north.png", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/api/reload", nil)
	ts.do(t, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	out := rec.Body.String()
	assert.Contains(t, out, `dining_http_requests_total{method="GET",path="/api/reload",status="200"} 1`)
	assert.Contains(t, out, `dining_chat_completions_total{outcome="success",provider="mock"} 1`)
	assert.Contains(t, out, "dining_catalog_items 4")
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/foods", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Addr(t *testing.T) {
	ts := newTestServer(t)
	srv := New(Config{Host: "0.0.0.0", Port: 8000, ImagesDir: ts.dir}, ts.catalog, nil)
	assert.Equal(t, "0.0.0.0:8000", srv.Addr())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	ts := newTestServer(t)
	srv := New(Config{Host: "127.0.0.1", Port: 0, ImagesDir: ts.dir}, ts.catalog, ts.provider)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
