// Package server hosts the service's network surfaces: the HTTP query API
// with probe and metrics endpoints, and a gRPC endpoint exposing health and
// reflection.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/query"
	"SynthLedger/internal/store"
)

// HTTPServer serves the read-only query API.
type HTTPServer struct {
	srv     *http.Server
	log     zerolog.Logger
	queries *query.Service
	metrics *observability.Metrics
}

func NewHTTPServer(
	addr string,
	queries *query.Service,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *HTTPServer {
	s := &HTTPServer{
		log:     log,
		queries: queries,
		metrics: metrics,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.LivenessHandler)
	mux.HandleFunc("/readyz", health.ReadinessHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/exchange", s.handleExchange)
	mux.HandleFunc("/v1/markets", s.handleMarkets)
	mux.HandleFunc("/v1/markets/", s.handleMarket)
	mux.HandleFunc("/v1/accounts/", s.handleAccount)
	mux.HandleFunc("/v1/prices/", s.handlePrice)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, then drains with a 5s grace
// period.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) handleExchange(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "exchange", func() (interface{}, error) {
		return s.queries.Exchange(r.Context())
	})
}

func (s *HTTPServer) handleMarkets(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, "markets", func() (interface{}, error) {
		return s.queries.Markets(r.Context())
	})
}

func (s *HTTPServer) handleMarket(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Path[len("/v1/markets/"):]
	index, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		s.writeError(w, "market", http.StatusBadRequest, "invalid market index")
		return
	}
	s.respond(w, r, "market", func() (interface{}, error) {
		return s.queries.Market(r.Context(), uint16(index))
	})
}

func (s *HTTPServer) handleAccount(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Path[len("/v1/accounts/"):]
	owner, err := uuid.Parse(raw)
	if err != nil {
		s.writeError(w, "account", http.StatusBadRequest, "invalid owner id")
		return
	}
	s.respond(w, r, "account", func() (interface{}, error) {
		return s.queries.Account(r.Context(), owner)
	})
}

func (s *HTTPServer) handlePrice(w http.ResponseWriter, r *http.Request) {
	feed := r.URL.Path[len("/v1/prices/"):]
	if feed == "" {
		s.writeError(w, "price", http.StatusBadRequest, "missing feed")
		return
	}
	s.respond(w, r, "price", func() (interface{}, error) {
		return s.queries.Price(r.Context(), feed)
	})
}

func (s *HTTPServer) respond(w http.ResponseWriter, r *http.Request, endpoint string, fn func() (interface{}, error)) {
	start := time.Now()

	v, err := fn()
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, oracle.ErrUnknownFeed) {
			code = http.StatusNotFound
		}
		s.writeError(w, endpoint, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)

	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, endpoint string, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})

	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}
