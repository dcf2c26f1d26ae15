// Package api exposes jobs, their event streams and the configuration over
// HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattxander12/forex-trader/internal/hub"
	"github.com/mattxander12/forex-trader/internal/job"
	"github.com/mattxander12/forex-trader/internal/logger"
	"github.com/mattxander12/forex-trader/internal/metrics"
	"github.com/mattxander12/forex-trader/internal/runner"
)

// Deps are the collaborators of a Server.
type Deps struct {
	Runner     *runner.Runner
	Dispatcher *job.Dispatcher
	Hub        *hub.Hub
	Metrics    *metrics.Recorder
	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
}

type Server struct {
	runner     *runner.Runner
	dispatcher *job.Dispatcher
	hub        *hub.Hub
	metrics    *metrics.Recorder
	gatherer   prometheus.Gatherer
	log        *logger.Logger
	upgrader   websocket.Upgrader
	router     *mux.Router
}

func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		runner:     deps.Runner,
		dispatcher: deps.Dispatcher,
		hub:        deps.Hub,
		metrics:    deps.Metrics,
		gatherer:   gatherer,
		log:        log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}

	s.router = s.routes()

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.recoverPanics, s.observe)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/backtest", s.submitBacktest).Methods(http.MethodPost)
	v1.HandleFunc("/train", s.submitTrain).Methods(http.MethodPost)
	v1.HandleFunc("/stream/{jobId}", s.streamSSE).Methods(http.MethodGet)
	v1.HandleFunc("/stream", s.streamSSE).Methods(http.MethodGet)
	v1.HandleFunc("/ws/{jobId}", s.streamWebSocket).Methods(http.MethodGet)
	v1.HandleFunc("/result/{jobId}", s.result).Methods(http.MethodGet)
	v1.HandleFunc("/jobs/{jobId}", s.jobStatus).Methods(http.MethodGet)
	v1.HandleFunc("/config", s.config).Methods(http.MethodGet)
	v1.HandleFunc("/config/schema", s.configSchema).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return router
}
