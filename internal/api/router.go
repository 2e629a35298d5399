// v1
// internal/api/router.go

package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vpp-edge/metersim/internal/config"
	"github.com/vpp-edge/metersim/internal/dataset"
	"github.com/vpp-edge/metersim/internal/observability"
	"github.com/vpp-edge/metersim/internal/state"
)

// Server carries the status-query surface: read-only views over the shared
// snapshot and the dataset. Handlers never mutate state.
type Server struct {
	log     *slog.Logger
	store   *state.Store
	ds      *dataset.Dataset
	metrics *observability.Metrics

	topic     string
	assetID   string
	co2Factor float64
	p2pPrice  float64
	window    int
}

func NewServer(cfg config.Config, store *state.Store, ds *dataset.Dataset,
	metrics *observability.Metrics, log *slog.Logger) *Server {
	return &Server{
		log:       log.With(slog.String("component", "api")),
		store:     store,
		ds:        ds,
		metrics:   metrics,
		topic:     cfg.Topic,
		assetID:   cfg.AssetID,
		co2Factor: cfg.CO2FactorKgPerKWh,
		p2pPrice:  cfg.P2PPriceUSD,
		window:    cfg.InsightsWindow,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/", s.metrics.WrapHandler("/", http.HandlerFunc(s.handleIndex))).Methods("GET")
	r.Handle("/health", s.metrics.WrapHandler("/health", http.HandlerFunc(s.handleHealth))).Methods("GET")
	r.Handle("/status", s.metrics.WrapHandler("/status", http.HandlerFunc(s.handleStatusPage))).Methods("GET")
	r.Handle("/api/status", s.metrics.WrapHandler("/api/status", http.HandlerFunc(s.handleAPIStatus))).Methods("GET")
	r.Handle("/api/insights", s.metrics.WrapHandler("/api/insights", http.HandlerFunc(s.handleInsights))).Methods("GET")
	r.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.log.Info("http routes registered")
	return r
}
