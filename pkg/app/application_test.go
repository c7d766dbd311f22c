package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomdesk/pkg/config"
	"roomdesk/pkg/contracts"
	"roomdesk/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Hour,
		MaxRequestSize:    1024,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
	}
}

func TestApplication_Routes(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(
		contracts.RoutesFunc(func(r *httprouter.Router) {
			r.GET("/api/v1/rooms", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				_, _ = w.Write([]byte("rooms"))
			})
		}),
		contracts.RoutesFunc(func(r *httprouter.Router) {
			r.GET("/health", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
				_, _ = w.Write([]byte("healthy"))
			})
		}),
	)
	defer a.runHooks()

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/rooms", "rooms"},
		{"/health", "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("GET %s = %d %q", tt.path, w.Code, w.Body.String())
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("expected request id header")
			}
		})
	}
}

func TestApplication_ShutdownHooksRunInReverse(t *testing.T) {
	a := NewApplication(testConfig())
	a.SetApp(contracts.RoutesFunc(func(*httprouter.Router) {}), contracts.RoutesFunc(func(*httprouter.Router) {}))

	var order []int
	a.OnShutdown(func() { order = append(order, 1) })
	a.OnShutdown(func() { order = append(order, 2) })
	a.gracefulShutdown()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Errorf("hook order = %v, want [2 1]", order)
	}
}
