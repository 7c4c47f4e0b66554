package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adpilot/adpilot/internal/bus"
	"github.com/adpilot/adpilot/internal/store"
)

// memLogs is an in-memory LogStore for handler tests.
type memLogs struct {
	entries []store.LogEntry
	err     error
}

func (m *memLogs) Append(_ context.Context, e store.LogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLogs) Recent(_ context.Context, limit int) ([]store.LogEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return m.entries[:limit], nil
}

func newTestServer(logs *memLogs) *httptest.Server {
	s := NewServer(logs, bus.NewBroadcaster())
	return httptest.NewServer(s.mux)
}

// TestHealthz verifies the health endpoint.
func TestHealthz(t *testing.T) {
	ts := newTestServer(&memLogs{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

// TestLogsEndpoint verifies recent logs are returned with the requested
// limit.
func TestLogsEndpoint(t *testing.T) {
	logs := &memLogs{}
	for i := 0; i < 5; i++ {
		logs.Append(context.Background(), store.LogEntry{TenantID: 1, Level: "INFO", Message: "event"})
	}
	ts := newTestServer(logs)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs?limit=3")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK   bool             `json:"ok"`
		Logs []store.LogEntry `json:"logs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || len(body.Logs) != 3 {
		t.Fatalf("body = ok=%v with %d logs, want 3", body.OK, len(body.Logs))
	}
}

// TestLogsEndpointEmpty verifies an empty store yields an empty array, not
// null.
func TestLogsEndpointEmpty(t *testing.T) {
	ts := newTestServer(&memLogs{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["logs"]) != "[]" {
		t.Fatalf("logs = %s, want []", body["logs"])
	}
}

// TestLogsEndpointStoreFailure verifies a store error maps to 500.
func TestLogsEndpointStoreFailure(t *testing.T) {
	ts := newTestServer(&memLogs{err: errors.New("db down")})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/logs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}
