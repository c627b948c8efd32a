package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/parley/internal/metrics"
	"github.com/zulandar/parley/internal/session"
)

type fakeSessions []session.Info

func (f fakeSessions) Snapshot() []session.Info { return f }

type fakeQueue struct{ n, c int }

func (f fakeQueue) Len() int { return f.n }
func (f fakeQueue) Cap() int { return f.c }

func newTestServer(t *testing.T, sessions fakeSessions, q fakeQueue) *Server {
	t.Helper()
	s, err := NewServer(ServerOpts{Sessions: sessions, Queue: q})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	gin.SetMode(gin.TestMode)
	return s
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer_Required(t *testing.T) {
	if _, err := NewServer(ServerOpts{Queue: fakeQueue{}}); err == nil || !strings.Contains(err.Error(), "sessions is required") {
		t.Errorf("err = %v, want sessions is required", err)
	}
	if _, err := NewServer(ServerOpts{Sessions: fakeSessions{}}); err == nil || !strings.Contains(err.Error(), "queue is required") {
		t.Errorf("err = %v, want queue is required", err)
	}
}

func TestNewServer_DefaultPort(t *testing.T) {
	s := newTestServer(t, nil, fakeQueue{})
	if s.port != DefaultPort {
		t.Errorf("port = %d, want %d", s.port, DefaultPort)
	}
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, nil, fakeQueue{}), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestSessions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sessions := fakeSessions{
		{ChannelID: "C1", Turns: 3, LastActive: now, Idle: 90 * time.Second},
		{ChannelID: "C2", Turns: 11, LastActive: now, Idle: time.Second},
	}
	rec := get(t, newTestServer(t, sessions, fakeQueue{}), "/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Count    int           `json:"count"`
		Sessions []sessionView `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || len(body.Sessions) != 2 {
		t.Fatalf("count = %d, sessions = %d", body.Count, len(body.Sessions))
	}
	if body.Sessions[0].ChannelID != "C1" || body.Sessions[0].Turns != 3 || body.Sessions[0].IdleSec != 90 {
		t.Errorf("sessions[0] = %+v", body.Sessions[0])
	}
}

func TestSessions_Empty(t *testing.T) {
	rec := get(t, newTestServer(t, nil, fakeQueue{}), "/sessions")
	if !strings.Contains(rec.Body.String(), `"sessions":[]`) {
		t.Errorf("body = %s, want empty list", rec.Body.String())
	}
}

func TestQueue(t *testing.T) {
	rec := get(t, newTestServer(t, nil, fakeQueue{n: 4, c: 100}), "/queue")
	var v queueView
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Depth != 4 || v.Capacity != 100 {
		t.Errorf("queue = %+v", v)
	}
}

func TestMetrics(t *testing.T) {
	metrics.MessagesReceived.Inc()
	rec := get(t, newTestServer(t, nil, fakeQueue{}), "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "parley_messages_received_total") {
		t.Error("metrics output missing parley_messages_received_total")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, err := NewServer(ServerOpts{Sessions: fakeSessions{}, Queue: fakeQueue{}, Port: 18090 + int(time.Now().UnixNano()%1000)})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
