package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bookstore/services/library/internal/events"
)

// NewRouter assembles the API, probes and metrics behind the middleware stack.
func NewRouter(api *Handler, database Pinger, publisher events.Publisher, gatherer prometheus.Gatherer, log *zap.Logger) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND", Message: "route not found"})
	})

	api.RegisterRoutes(router)
	NewHealthHandler(database, publisher, log).RegisterRoutes(router)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	var handler http.Handler = router
	handler = MaxRequestSize(maxRequestBytes)(handler)
	handler = RequestLogging(log)(handler)
	handler = Recovery(log)(handler)
	return handler
}
