package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/markethours"
	"github.com/saistv/corolla-trading-bot/internal/store/sqlite"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   4096,
	EnableCompression: true,
	// Dashboard is served from a different origin in dev.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the hub and the REST endpoints onto an http.ServeMux.
type Server struct {
	Hub      *Hub
	Signals  *sqlite.Reader
	Started  time.Time
	DemoMode bool
}

func NewServer(hub *Hub, signals *sqlite.Reader, demoMode bool) *Server {
	return &Server{
		Hub:      hub,
		Signals:  signals,
		Started:  time.Now(),
		DemoMode: demoMode,
	}
}

// RegisterRoutes mounts the WS and REST handlers.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/signals", s.handleSignals)
	mux.HandleFunc("/api/snapshots/latest", s.handleLatest)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}
	// last_ts lets a reconnecting client skip replay of state it
	// already holds.
	s.Hub.HandleWSRequest(conn, r.URL.Query().Get("last_ts"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		return
	}

	now := time.Now()
	out := StatusOut{
		Symbol:       s.Hub.Symbol,
		Uptime:       now.Sub(s.Started).Round(time.Second).String(),
		SessionOpen:  markethours.IsSessionOpen(now),
		SessionState: markethours.StatusString(now),
		Clients:      s.Hub.ClientCount(),
		DemoMode:     s.DemoMode,
	}
	if s.Signals != nil {
		if recs, err := s.Signals.Signals(1000); err == nil {
			out.SignalCount = len(recs)
			if len(recs) > 0 {
				out.LastBarTS = recs[0].TS
			}
		}
	}

	writeJSON(w, out)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	if s.Signals == nil {
		http.Error(w, `{"error":"signal store not configured"}`, http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	recs, err := s.Signals.Signals(limit)
	if err != nil {
		slog.Error("signal query failed", "err", err)
		http.Error(w, `{"error":"query failed"}`, http.StatusInternalServerError)
		return
	}

	out := make([]SignalOut, 0, len(recs))
	for _, rec := range recs {
		out = append(out, SignalOut{
			ID:        rec.ID,
			WindowID:  rec.WindowID,
			Symbol:    rec.Symbol,
			Direction: rec.Direction,
			Strength:  rec.Strength,
			TS:        rec.TS,
		})
	}
	writeJSON(w, out)
}

// handleLatest serves the hub's latest-per-channel cache: the same
// payloads a fresh WS client receives as initial state.
func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		return
	}
	writeJSON(w, s.Hub.GetLatestAll())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "err", err)
	}
}
