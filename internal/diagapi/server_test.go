package diagapi

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/memoster/reviewcore/internal/batch"
	"github.com/memoster/reviewcore/internal/config"
	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/gesture"
	"github.com/memoster/reviewcore/internal/review"
	"github.com/memoster/reviewcore/internal/scheduler"
	"github.com/memoster/reviewcore/internal/session"
	"github.com/memoster/reviewcore/internal/store"
)

type fakeStorage struct {
	mu    sync.Mutex
	items map[string]domain.Item
}

func (s *fakeStorage) PutItem(item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]domain.Item)
	}
	s.items[item.ID] = item
	return nil
}
func (s *fakeStorage) AppendRecord(id string, record domain.ReviewRecord) error { return nil }
func (s *fakeStorage) LoadAllItems() ([]domain.Item, error)                     { return nil, nil }
func (s *fakeStorage) LoadHistory(id string) ([]domain.ReviewRecord, error)     { return nil, nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	clock := domain.ClockFunc(func() time.Time { return time.UnixMilli(1_700_000_000_000) })
	storage := &fakeStorage{}
	st, err := store.New(storage, 100, 100, 50)
	if err != nil {
		t.Fatalf("store.New() error: %v", err)
	}
	sched := scheduler.New(clock.Now)
	t.Cleanup(sched.Close)
	writer := batch.New(storage, clock, config.Batch{IntervalMs: 5_000, SizeThreshold: 10, AutoSaveMs: 30_000},
		t.TempDir()+"/backup.json", t.TempDir()+"/pending.json", nil)

	cfg := session.Config{
		ReviewParams:          review.Params{BaseIntervalMs: 10_000, MinIntervalMs: 5_000},
		GestureThresholds:     gesture.Thresholds{DoubleTapWindow: 300 * time.Millisecond, LongPress: 500 * time.Millisecond, FlingDistancePx: 100, FlingVelocity: 50},
		AccidentalThresholdMs: 200,
	}
	hub := NewEventHub()
	mgr := session.New(cfg, st, sched, writer, NewHubNotifier(hub, NoopNotifier{}), clock)
	return NewServer(mgr, hub)
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestServer_Status(t *testing.T) {
	srv := newTestServer(t)
	srv.mgr.StartSession()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
