// Package network - handlers.go
// HTTP surface of the clinic server: the WebSocket upgrade, the state
// snapshot endpoint and the replay viewer over the event history.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clinicrush/server/internal/engine"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/infra/storage"
	"github.com/clinicrush/server/internal/platform/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The clinic frontend is served from a separate origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request to a WebSocket session and starts
// the client pumps.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Error("WebSocket upgrade failed: " + err.Error())
			return
		}
		client := NewClient(hub, conn)
		client.Register()
		go client.WritePump()
		go client.ReadPump()
	}
}

// StateHandler serves the current simulation snapshot.
type StateHandler struct {
	controller *engine.SimulationController
}

// NewStateHandler creates the snapshot endpoint handler.
func NewStateHandler(controller *engine.SimulationController) *StateHandler {
	return &StateHandler{controller: controller}
}

// HandleState returns the full display state.
// GET /api/state
func (sh *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sh.controller.Snapshot())
}

// ReplayHandler exposes the event history: the live in-memory log and
// the journaled sessions with their recomputed outcomes.
type ReplayHandler struct {
	eventLog    *events.EventLog
	sessionRepo storage.SessionRepository
	summarizer  *storage.Summarizer
	logger      *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(el *events.EventLog, sessions storage.SessionRepository, summarizer *storage.Summarizer, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		eventLog:    el,
		sessionRepo: sessions,
		summarizer:  summarizer,
		logger:      log,
	}
}

// ReplayResponse is the API response for the live replay.
type ReplayResponse struct {
	TotalEvents int                `json:"total_events"`
	FilteredBy  string             `json:"filtered_by,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Events      []events.GameEvent `json:"events"`
}

// HandleReplay returns the in-memory event history of the current run.
// GET /api/replay?type=TREATMENT_COMPLETED&level=N
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	eventType := r.URL.Query().Get("type")
	levelStr := r.URL.Query().Get("level")

	allEvents := rh.eventLog.Replay()
	filterDesc := ""

	filtered := make([]events.GameEvent, 0, len(allEvents))
	for _, e := range allEvents {
		if eventType != "" {
			if string(e.Type) != eventType {
				continue
			}
			filterDesc = "type " + eventType
		}
		if levelStr != "" {
			level, _ := strconv.Atoi(levelStr)
			if e.Level != level {
				continue
			}
			filterDesc = "level " + levelStr
		}
		filtered = append(filtered, e)
	}

	response := ReplayResponse{
		TotalEvents: len(filtered),
		FilteredBy:  filterDesc,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	}

	rh.logger.Event("REPLAY_SERVED", "", "Events:"+strconv.Itoa(len(filtered)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// HandleSessions lists the most recent journaled sessions.
// GET /api/sessions?limit=N
func (rh *ReplayHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := rh.sessionRepo.ListRecent(r.Context(), limit)
	if err != nil {
		rh.logger.Error("Failed to list sessions: " + err.Error())
		jsonError(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"sessions":     sessions,
	})
}

// HandleSessionAudit recomputes one session's outcome from its journal.
// GET /api/sessions/audit?session_id=XXX
func (rh *ReplayHandler) HandleSessionAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		jsonError(w, "Missing session_id", http.StatusBadRequest)
		return
	}

	stored, err := rh.sessionRepo.GetBySessionID(r.Context(), sessionID)
	if err != nil {
		jsonError(w, "Failed to load session", http.StatusInternalServerError)
		return
	}
	if stored == nil {
		jsonError(w, "Session not found", http.StatusNotFound)
		return
	}

	rebuilt, err := rh.summarizer.RebuildResult(r.Context(), sessionID)
	if err != nil {
		jsonError(w, "Failed to rebuild session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"stored":   stored,
		"rebuilt":  rebuilt,
		"consistent": stored.FinalScore == rebuilt.Score &&
			stored.PatientsServed == rebuilt.PatientsServed,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/replay", rh.HandleReplay)
	mux.HandleFunc("/api/sessions", rh.HandleSessions)
	mux.HandleFunc("/api/sessions/audit", rh.HandleSessionAudit)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
