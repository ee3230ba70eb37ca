package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/events"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Broker   string `json:"broker,omitempty"`
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	db        Pinger
	publisher events.Publisher
	log       *zap.Logger
}

// NewHealthHandler creates the probe handler.
func NewHealthHandler(database Pinger, publisher events.Publisher, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: database, publisher: publisher, log: log}
}

func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	_ = WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	resp := healthResponse{Status: "ready", Database: "ok", Broker: "ok"}
	status := http.StatusOK

	if err := h.db.Ping(); err != nil {
		h.log.Error("Database health check failed", zap.Error(err))
		resp.Database = "error"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if !h.publisher.IsHealthy() {
		h.log.Error("Broker health check failed")
		resp.Broker = "error"
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	_ = WriteJSON(w, status, resp)
}

// RegisterRoutes mounts the probes on router.
func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/healthz", h.Health)
	router.GET("/readyz", h.Ready)
}
