// Package api serves the car's status and recorded runs over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/racecar/internal/db"
	"github.com/banshee-data/racecar/internal/hardware"
	"github.com/banshee-data/racecar/internal/httputil"
	"github.com/banshee-data/racecar/internal/lidar"
	"github.com/banshee-data/racecar/internal/monitoring"
	"github.com/banshee-data/racecar/internal/vehicle"
	"github.com/banshee-data/racecar/internal/version"
)

// ANSI escape codes for request logs
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// StatusSource reports the live control loop state.
type StatusSource interface {
	Status() vehicle.Status
}

// BridgeStatser reports serial bridge counters.
type BridgeStatser interface {
	Stats() hardware.Stats
}

// ScanSource supplies the latest LIDAR revolution. The bridge passed to
// NewServer may implement it.
type ScanSource interface {
	LidarSamples() lidar.Scan
}

type Server struct {
	status StatusSource
	db     *db.DB
	bridge BridgeStatser
}

// NewServer returns a server over the live loop and the telemetry store.
// Any of them may be nil; their endpoints then report unavailable.
func NewServer(status StatusSource, database *db.DB, bridge BridgeStatser) *Server {
	return &Server{status: status, db: database, bridge: bridge}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/version", s.showVersion)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/sessions/ticks", s.listTicks)
	mux.HandleFunc("/api/sessions/transitions", s.listTransitions)
	mux.HandleFunc("/api/charts/run", s.showRunChart)
	mux.HandleFunc("/api/charts/scan", s.showScanChart)
	return mux
}

type statusResponse struct {
	Vehicle *vehicle.Status `json:"vehicle,omitempty"`
	Bridge  *hardware.Stats `json:"bridge,omitempty"`
}

func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var resp statusResponse
	if s.status != nil {
		st := s.status.Status()
		resp.Vehicle = &st
	}
	if s.bridge != nil {
		stats := s.bridge.Stats()
		resp.Bridge = &stats
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) showVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, version.Current())
}

// requireDB writes an error and returns false when telemetry is off or the
// method is not GET.
func (s *Server) requireDB(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return false
	}
	if s.db == nil {
		httputil.ServiceUnavailable(w, "telemetry disabled")
		return false
	}
	return true
}

// sessionID reads the id parameter and checks the session exists.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "missing 'id' parameter")
		return "", false
	}
	if _, err := s.db.Session(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNoSession) {
			httputil.NotFound(w, err.Error())
		} else {
			httputil.InternalServerError(w, err.Error())
		}
		return "", false
	}
	return id, true
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}
	sessions, err := s.db.Sessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list sessions: %v", err))
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) listTicks(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	ticks, err := s.db.Ticks(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read ticks: %v", err))
		return
	}
	if ticks == nil {
		ticks = []db.Tick{}
	}
	httputil.WriteJSONOK(w, ticks)
}

func (s *Server) listTransitions(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	transitions, err := s.db.Transitions(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to read transitions: %v", err))
		return
	}
	if transitions == nil {
		transitions = []db.Transition{}
	}
	httputil.WriteJSONOK(w, transitions)
}
