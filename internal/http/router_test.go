package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-xbot/internal/config"
	"github.com/tbourn/go-xbot/internal/engage"
	"github.com/tbourn/go-xbot/internal/http/handlers"
	"github.com/tbourn/go-xbot/internal/quota"
	"github.com/tbourn/go-xbot/internal/scheduler"
)

type stubSched struct{}

func (stubSched) Status() scheduler.Status { return scheduler.Status{Running: true} }

func (stubSched) RunNow(ctx context.Context, id string) error { return scheduler.ErrUnknownJob }

func (stubSched) PauseJob(id string) error { return scheduler.ErrUnknownJob }

func (stubSched) ResumeJob(id string) error { return scheduler.ErrUnknownJob }

type stubEngine struct{}

func (stubEngine) Stats() engage.Stats { return engage.Stats{} }
func (stubEngine) DeepScan(ctx context.Context, days int) (engage.CycleStats, error) {
	return engage.CycleStats{}, nil
}
func (stubEngine) ForceStartupCheck()   {}
func (stubEngine) ResetProcessedCache() {}

type stubQuota struct{}

func (stubQuota) Status() quota.Status {
	return quota.Status{Usage: map[quota.Kind]int{}, Limits: map[quota.Kind]int{}}
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	r := gin.New()
	RegisterRoutes(r, Deps{Sched: stubSched{}, Engine: stubEngine{}, Quota: stubQuota{}}, cfg)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r := newRouter(t)
	w := get(r, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	r := newRouter(t)
	if w := get(r, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
}

func TestRouter_StatusEndpointsWired(t *testing.T) {
	r := newRouter(t)
	for _, path := range []string{"/api/v1/status", "/api/v1/scheduler", "/api/v1/quota", "/api/v1/engagement"} {
		if w := get(r, path); w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, w.Code)
		}
	}
}

func TestRouter_UnknownRouteEnvelope(t *testing.T) {
	r := newRouter(t)
	w := get(r, "/nope")
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d", w.Code)
	}
	var resp handlers.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if resp.Code != handlers.ErrCodeNotFound {
		t.Fatalf("got code %q", resp.Code)
	}
	if resp.RequestID == "" {
		t.Fatal("expected a request id on the error envelope")
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := newRouter(t)
	req := httptest.NewRequest(http.MethodDelete, "/health", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("got %d", w.Code)
	}
}

func TestRouter_RunUnknownJobIs404(t *testing.T) {
	r := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/ghost/run", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("got %d: %s", w.Code, w.Body)
	}
}
