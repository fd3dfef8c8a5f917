// v2
// internal/httpapi/server.go
package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"irrinet/controller/internal/config"
	"irrinet/controller/internal/daylog"
	"irrinet/controller/internal/engine"
	"irrinet/controller/internal/metrics"
)

// Server bundles dependencies for the status/config HTTP surface.
type Server struct {
	Engine  *engine.Engine
	DayLog  *daylog.Log
	Metrics *metrics.Metrics
	Log     *slog.Logger
}

// Handler builds the routed, request-logged handler tree.
func (s *Server) Handler(accessLog io.Writer) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.Health).Methods("GET")
	r.HandleFunc("/status", s.Status).Methods("GET")
	r.HandleFunc("/log", s.DailyLog).Methods("GET")
	r.HandleFunc("/config", s.PostConfig).Methods("POST")
	r.Handle("/metrics", s.Metrics.Handler()).Methods("GET")

	return handlers.LoggingHandler(accessLog, r)
}

// Health is a lightweight liveness endpoint (GET only).
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
}

// Status returns the current derived irrigation state as JSON (GET only).
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.Engine.Snapshot())
}

// DailyLog serves the raw CSV decision log (GET only).
func (s *Server) DailyLog(w http.ResponseWriter, r *http.Request) {
	b, err := s.DayLog.RawCSV()
	if err != nil {
		s.Log.Error("daily log read failed", slog.String("error", err.Error()))
		s.respondError(w, http.StatusInternalServerError, "daily log unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// PostConfig replaces the active planting configuration. The replacement is
// validated here and applied by the control loop between ticks, so a 202 is
// returned rather than a 200.
func (s *Server) PostConfig(w http.ResponseWriter, r *http.Request) {
	var pc config.PlantingConfig
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&pc); err != nil {
		s.respondError(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return
	}
	if err := s.Engine.QueueConfig(pc); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.Log.Info("configuration replacement queued",
		slog.String("crop", string(pc.Crop)),
		slog.String("planting_date", pc.PlantingDate))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "queued"})
}

func (s *Server) respondError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}
