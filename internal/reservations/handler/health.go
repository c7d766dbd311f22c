package handler

import (
	"context"
	"net/http"
	"time"

	httputil "roomdesk/pkg/http"
	"roomdesk/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Catalog  string `json:"catalog,omitempty"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// CatalogState reports whether rooms and teams have loaded.
type CatalogState interface {
	Loaded() bool
}

type HealthHandler struct {
	storage Pinger
	catalog CatalogState
	log     *logger.Logger
}

func NewHealthHandler(storage Pinger, catalog CatalogState, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		storage: storage,
		catalog: catalog,
		log:     log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready fails while storage is unreachable. A catalog that has not loaded
// yet is reported but does not fail readiness.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	catalog := "loading"
	if h.catalog.Loaded() {
		catalog = "ok"
	}

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "unavailable",
			Database: "error",
			Catalog:  catalog,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "ready",
		Database: "ok",
		Catalog:  catalog,
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
