package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomdesk/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(context.Context) error { return m.err }

type loadedFlag bool

func (l loadedFlag) Loaded() bool { return bool(l) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		pingErr     error
		loaded      bool
		wantStatus  int
		wantContain string
	}{
		{"health always ok", "/health", errors.New("down"), false, http.StatusOK, `"ok"`},
		{"ready", "/ready", nil, true, http.StatusOK, `"catalog":"ok"`},
		{"ready while catalog loads", "/ready", nil, false, http.StatusOK, `"catalog":"loading"`},
		{"storage down", "/ready", errors.New("down"), true, http.StatusServiceUnavailable, `"database":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(mockPinger{err: tt.pingErr}, loadedFlag(tt.loaded), logger.Discard()).RegisterRoutes(router)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantContain) {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.wantContain)
			}
		})
	}
}
