// Package adminhttp exposes a read-only view of engine state plus
// Prometheus metrics for operators of the lending admin process.
package adminhttp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nhbchain/crypto"
	"nhbchain/native/lending"
)

// Metrics are the gauges refreshed on every GET /reserves/{addr}, reflecting the reserve's
// state at the moment it was last looked up through this server.
type Metrics struct {
	utilization   *prometheus.GaugeVec
	cumulativeApr *prometheus.GaugeVec
}

// NewMetrics registers the admin-process gauges with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		utilization: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lendingd",
			Subsystem: "reserve",
			Name:      "utilization_ratio",
			Help:      "Borrowed/(available+borrowed) utilization ratio for a reserve, sampled on read.",
		}, []string{"reserve"}),
		cumulativeApr: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "lendingd",
			Subsystem: "reserve",
			Name:      "cumulative_borrow_rate",
			Help:      "Cumulative borrow rate index for a reserve, sampled on read.",
		}, []string{"reserve"}),
	}
}

// Server hosts the chi router backing the admin HTTP surface.
type Server struct {
	engine  *lending.Engine
	metrics *Metrics
	router  chi.Router
}

// New builds the admin HTTP handler. engine must already be wired to the
// host's state store via SetState.
func New(engine *lending.Engine, metrics *Metrics) *Server {
	s := &Server{engine: engine, metrics: metrics, router: chi.NewRouter()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/markets/{addr}", s.getMarket)
	s.router.Get("/reserves/{addr}", s.getReserve)
	s.router.Get("/obligations/{addr}", s.getObligation)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	market, err := s.engine.Market(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, market)
}

func (s *Server) getReserve(w http.ResponseWriter, r *http.Request) {
	addrStr := chi.URLParam(r, "addr")
	addr, err := crypto.DecodeAddress(addrStr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reserve, err := s.engine.Reserve(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if s.metrics != nil {
		if util, err := reserve.UtilizationRate(); err == nil {
			s.metrics.utilization.WithLabelValues(addrStr).Set(util.Decimal().Float64())
		}
		s.metrics.cumulativeApr.WithLabelValues(addrStr).Set(reserve.Liquidity.CumulativeBorrowRate.Float64())
	}
	writeJSON(w, reserve)
}

func (s *Server) getObligation(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "addr"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	obligation, err := s.engine.Obligation(addr)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, obligation)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
