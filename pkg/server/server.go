// Package server implements the HTTP classifier service queried by the agent.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/itohio/gowqm/pkg/classify"
	"github.com/itohio/gowqm/pkg/metrics"
	"github.com/itohio/gowqm/pkg/rules"
	"github.com/itohio/gowqm/pkg/sample"
	"github.com/itohio/gowqm/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultHistoryLimit is the number of records /history returns without a limit.
	DefaultHistoryLimit = 50
	// DefaultAlertLimit is the number of records /alerts returns without a limit.
	DefaultAlertLimit = 20
	// AlertWindow is the number of most recent records /alerts searches.
	AlertWindow = store.DefaultCapacity
	// Version is reported by /status.
	Version = "1.0.0"
)

// Server answers classification requests and serves the stored history.
type Server struct {
	store    store.Store
	metrics  *metrics.Service
	gatherer prometheus.Gatherer
	started  time.Time
}

// New creates a Server. m and g may be nil.
func New(st store.Store, m *metrics.Service, g prometheus.Gatherer) *Server {
	return &Server{store: st, metrics: m, gatherer: g, started: time.Now()}
}

// Router returns the request router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/historico", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	r.HandleFunc("/alertas", s.handleAlerts).Methods(http.MethodGet)
	r.HandleFunc("/test", s.handleTest).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler(s.gatherer)).Methods(http.MethodGet)

	return r
}

// Handler returns the router wrapped with access logging.
func (s *Server) Handler() http.Handler {
	return handlers.LoggingHandler(os.Stdout, s.Router())
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Classifier service listening on %s (store: %s)", addr, s.store.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	reading, err := parseReading(r)
	if err != nil {
		log.Printf("Rejected classification request: %v", err)
		if s.metrics != nil {
			s.metrics.ObserveRejected()
		}
		writeText(w, http.StatusBadRequest, "ERRO: "+err.Error())
		return
	}

	if !rules.Plausible(reading) {
		log.Printf("Warning: reading outside sensor range: %s", reading)
	}

	score := rules.Score(reading)
	label := rules.Classify(reading)
	log.Printf("Classified %s: score %d -> %s", reading, score, label)

	if err := s.store.Save(r.Context(), store.NewRecord(reading, score, label)); err != nil {
		log.Printf("Failed to store reading: %v", err)
		if s.metrics != nil {
			s.metrics.ObserveStoreError()
		}
	}
	if s.metrics != nil {
		s.metrics.ObservePrediction(label)
	}

	writeText(w, http.StatusOK, label.String())
}

// parseReading reads ph, turbidity and chlorine (required) and conductivity
// (optional, 0 when absent) from the query string.
func parseReading(r *http.Request) (sample.Reading, error) {
	q := r.URL.Query()
	for _, name := range []string{"ph", "turbidity", "chlorine"} {
		if !q.Has(name) {
			return sample.Reading{}, fmt.Errorf("missing required parameters: ph, turbidity, chlorine")
		}
	}

	var (
		values [4]float32
		names  = [4]string{"ph", "turbidity", "chlorine", "conductivity"}
	)
	for i, name := range names {
		v := q.Get(name)
		if v == "" && name == "conductivity" {
			continue
		}
		f, err := strconv.ParseFloat(v, 32)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return sample.Reading{}, fmt.Errorf("invalid %s %q: must be a number", name, v)
		}
		values[i] = float32(f)
	}

	return sample.Reading{
		Timestamp:    time.Now(),
		PH:           values[0],
		Turbidity:    values[1],
		Chlorine:     values[2],
		Conductivity: values[3],
	}, nil
}

type statusResponse struct {
	Server    string       `json:"server"`
	Store     string       `json:"store"`
	StoreOK   bool         `json:"store_ok"`
	Error     string       `json:"error,omitempty"`
	Uptime    string       `json:"uptime"`
	Timestamp time.Time    `json:"timestamp"`
	Stats     *store.Stats `json:"stats,omitempty"`
	Version   string       `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Server:    "ONLINE",
		Store:     s.store.Name(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   Version,
	}

	st, err := s.store.Stats(r.Context())
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	resp.StoreOK = true
	resp.Stats = &st
	writeJSON(w, http.StatusOK, resp)
}

type historyResponse struct {
	Success  bool           `json:"success"`
	Total    int            `json:"total"`
	Readings []store.Record `json:"readings"`
	Error    string         `json:"error,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, DefaultHistoryLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, historyResponse{Error: err.Error()})
		return
	}

	recs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to read history: %v", err)
		writeJSON(w, http.StatusInternalServerError, historyResponse{Error: err.Error()})
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Success: true, Total: len(recs), Readings: recs})
}

// handleAlerts returns the most recent readings that were not potable
// (suspect or non-potable) among the last AlertWindow records.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, DefaultAlertLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, historyResponse{Error: err.Error()})
		return
	}

	recs, err := s.store.Recent(r.Context(), AlertWindow)
	if err != nil {
		log.Printf("Failed to read alerts: %v", err)
		writeJSON(w, http.StatusInternalServerError, historyResponse{Error: err.Error()})
		return
	}

	alerts := make([]store.Record, 0, limit)
	for _, rec := range recs {
		if len(alerts) == limit {
			break
		}
		if rec.Label != classify.Potable {
			alerts = append(alerts, rec)
		}
	}

	writeJSON(w, http.StatusOK, historyResponse{Success: true, Total: len(alerts), Readings: alerts})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTest classifies a fixed sample reading without storing it.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	rd := sample.Reading{Chlorine: 1.8, Turbidity: 3.5, Conductivity: 450, PH: 7.2}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "TEST OK %s score=%d reading=%+v", rules.Classify(rd), rules.Score(rd), rd)
}

const index = `Water quality classifier

Endpoints:
  GET /data?ph=X&turbidity=Y&chlorine=Z&conductivity=W  classify a reading
  GET /status                                           service and store status
  GET /history?limit=N                                  recent readings (default 50)
  GET /alerts?limit=N                                   recent readings not potable (default 20)
  GET /test                                             classify a fixed sample reading
  GET /health                                           liveness
  GET /metrics                                          prometheus metrics
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, index)
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
		writeText(w, http.StatusInternalServerError, "ERRO: failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
