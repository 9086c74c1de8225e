// Package api exposes the engine over HTTP: a JSON ingest endpoint at
// the detector boundary, snapshot queries for scores and identities,
// and a websocket feed broadcasting each tick's result.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/vigil-data/vigil.watch/internal/db"
	"github.com/vigil-data/vigil.watch/internal/engine"
	"github.com/vigil-data/vigil.watch/internal/monitoring"
)

type Server struct {
	pipeline *engine.Pipeline
	db       *db.DB // nil disables persistence
	hub      *Hub

	// lastAlertTick throttles persisted non-NORMAL alerts per identity.
	// Guarded by mu; ingest is nominally serial but the HTTP layer does
	// not enforce that.
	lastAlertTick map[int]int
	mu            sync.Mutex
}

// NewServer wires the pipeline and optional database into an HTTP
// server. The returned server's hub is already running.
func NewServer(pipeline *engine.Pipeline, database *db.DB) *Server {
	hub := NewHub()
	go hub.Run()
	return &Server{
		pipeline:      pipeline,
		db:            database,
		hub:           hub,
		lastAlertTick: make(map[int]int),
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/ticks", s.handleIngestTick)
	mux.HandleFunc("/api/scores", s.handleScores)
	mux.HandleFunc("/api/identities", s.handleIdentities)
	mux.HandleFunc("/api/alerts", s.handleAlerts)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Vigil behaviour server!"))
}

// handleIngestTick accepts one tick's detections, runs the engine, and
// returns the tick result. This is the external detector boundary.
func (s *Server) handleIngestTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var in engine.TickInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, fmt.Sprintf("invalid tick input: %v", err), http.StatusBadRequest)
		return
	}
	if in.Tick <= 0 {
		http.Error(w, "tick must be positive", http.StatusBadRequest)
		return
	}

	result := s.pipeline.ProcessTick(in)
	s.persist(result)
	s.hub.Broadcast(result)

	writeJSON(w, result)
}

// persist writes score samples for every identity and alert rows for
// capture emissions and throttled non-NORMAL levels.
func (s *Server) persist(result engine.TickResult) {
	if s.db == nil {
		return
	}

	captured := make(map[int]bool, len(result.Captures))
	for _, id := range result.Captures {
		captured[id] = true
	}

	throttle := s.pipeline.Config().AlertThrottleTicks

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range result.Scores {
		sample := db.ScoreSample{
			SessionID:   s.pipeline.SessionID,
			Tick:        result.Tick,
			TrackID:     id,
			Score:       rec.Score,
			Level:       string(rec.Level),
			StaySeconds: rec.StayDuration,
		}
		if err := s.db.RecordScoreSample(sample); err != nil {
			monitoring.Logf("failed to record score sample: %v", err)
		}

		if rec.Level == engine.LevelNormal {
			continue
		}
		// Capture emissions always produce an alert row; other
		// non-NORMAL ticks are throttled to avoid one row per frame.
		if !captured[id] {
			if last, ok := s.lastAlertTick[id]; ok && result.Tick-last < throttle {
				continue
			}
		}
		s.lastAlertTick[id] = result.Tick

		alert := db.Alert{
			ID:        uuid.NewString(),
			SessionID: s.pipeline.SessionID,
			TrackID:   id,
			Tick:      result.Tick,
			Level:     string(rec.Level),
			Score:     rec.Score,
			Factors:   rec.Factors,
		}
		if err := s.db.RecordAlert(alert); err != nil {
			monitoring.Logf("failed to record alert: %v", err)
		}
	}
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scores, tick := s.pipeline.LatestScores()
	writeJSON(w, map[string]any{"tick": tick, "scores": scores})
}

func (s *Server) handleIdentities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.pipeline.Identities())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	alerts, err := s.db.RecentAlerts(limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve alerts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, alerts)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.pipeline.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode response: %v", err)
	}
}
