// Package main contains integration tests for the API server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/regions/internal/config"
	"github.com/onnwee/regions/internal/region"
)

const triangleBody = `{"name":"Paulista","type":"polygon","coordinates":[
	{"lat":-23.55,"lng":-46.63},{"lat":-23.55,"lng":-46.62},{"lat":-23.56,"lng":-46.62}]}`

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:               0,
		Env:                "test",
		LogLevel:           "error",
		PersistBackend:     backend,
		PersistDir:         t.TempDir(),
		PersistKeyPrefix:   "regions:",
		AutosaveDelayMS:    50,
		GeometryPrecise:    true,
		HistoryLimit:       100,
		RateLimitPerMinute: 1000,
	}
}

// syncBuffer is a bytes.Buffer safe for the server goroutine to write to.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startApp(t *testing.T, cfg *config.Config) (*app, *httptest.Server) {
	t.Helper()
	a, err := newApp(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApp_ServesRoutesAndMetrics(t *testing.T) {
	a, srv := startApp(t, testConfig(t, "memory"))
	defer a.close(context.Background())

	if resp := get(t, srv.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected health status 200, got %d", resp.StatusCode)
	}
	if resp := get(t, srv.URL+"/ready"); resp.StatusCode != http.StatusOK {
		t.Errorf("expected ready status 200, got %d", resp.StatusCode)
	}

	resp := post(t, srv.URL+"/regions", triangleBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header from middleware chain")
	}
	if resp.Header.Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("expected X-RateLimit-Limit 1000, got %q", resp.Header.Get("X-RateLimit-Limit"))
	}

	metrics := get(t, srv.URL+"/metrics")
	body, _ := io.ReadAll(metrics.Body)
	for _, name := range []string{"region_mutations_total", "change_feed_connections", "persist_loads_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("expected metric %s in scrape output", name)
		}
	}
}

func TestApp_UnknownRoute(t *testing.T) {
	a, srv := startApp(t, testConfig(t, "memory"))
	defer a.close(context.Background())

	resp := get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}
}

func TestApp_CloseFlushesAndRestores(t *testing.T) {
	cfg := testConfig(t, "file")
	cfg.AutosaveDelayMS = 60_000

	a, srv := startApp(t, cfg)
	if resp := post(t, srv.URL+"/regions", triangleBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.StatusCode)
	}
	if err := a.close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	b, srv2 := startApp(t, cfg)
	defer b.close(context.Background())

	resp := get(t, srv2.URL+"/regions")
	var list struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if list.Count != 1 {
		t.Errorf("expected 1 restored region, got %d", list.Count)
	}

	history := get(t, srv2.URL+"/history")
	var hv region.HistoryView
	if err := json.NewDecoder(history.Body).Decode(&hv); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if !hv.CanUndo {
		t.Error("expected restored history to allow undo")
	}
}

func TestApp_ChangeFeed(t *testing.T) {
	a, srv := startApp(t, testConfig(t, "memory"))
	defer a.close(context.Background())

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/regions"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial change feed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.broadcaster.ConnectionCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	post(t, srv.URL+"/regions", triangleBody)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var change region.Change
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatalf("failed to read change: %v", err)
	}
	if change.Type != string(region.OpCreate) {
		t.Errorf("expected change type %q, got %q", region.OpCreate, change.Type)
	}
	if len(change.RegionIDs) != 1 {
		t.Errorf("expected 1 region id, got %d", len(change.RegionIDs))
	}
}

func TestApp_InvalidBackend(t *testing.T) {
	cfg := testConfig(t, "floppy")
	if _, err := newApp(context.Background(), cfg, discardLogger()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

// TestRun_GracefulShutdown starts the real server and stops it with SIGTERM.
func TestRun_GracefulShutdown(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find available port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	cfg := testConfig(t, "file")
	cfg.Port = port

	var logBuf syncBuffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	done := make(chan error, 1)
	go func() { done <- run(cfg, logger) }()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server failed to stop in time")
	}

	logs := logBuf.String()
	startIdx := strings.Index(logs, "starting server")
	shutdownIdx := strings.Index(logs, "shutting down server")
	stoppedIdx := strings.Index(logs, "server stopped")

	if startIdx == -1 || shutdownIdx == -1 || stoppedIdx == -1 {
		t.Fatalf("expected start, shutdown and stop log messages, got:\n%s", logs)
	}
	if startIdx > shutdownIdx {
		t.Error("expected 'starting server' to come before 'shutting down server'")
	}
	if shutdownIdx > stoppedIdx {
		t.Error("expected 'shutting down server' to come before 'server stopped'")
	}
}
