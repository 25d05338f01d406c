// Package network - scoreboard.go
// Read-only JSON API: live scoreboard, event replay and the persisted
// recap rebuilt from the SQLite ledger.
package network

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/medward/triage-server/internal/engine"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/infra/storage"
	"github.com/medward/triage-server/internal/platform/logger"
)

// ScoreboardHandler serves the spectator-facing read API.
type ScoreboardHandler struct {
	engine        *engine.Engine
	reconstructor *storage.Reconstructor
	gameID        string
	logger        *logger.Logger
}

// NewScoreboardHandler creates the read API bound to one game.
func NewScoreboardHandler(eng *engine.Engine, rec *storage.Reconstructor, gameID string, log *logger.Logger) *ScoreboardHandler {
	return &ScoreboardHandler{
		engine:        eng,
		reconstructor: rec,
		gameID:        gameID,
		logger:        log,
	}
}

// ScoreboardResponse is the live game view.
type ScoreboardResponse struct {
	Phase        engine.Phase       `json:"phase"`
	Round        int                `json:"round"`
	FinishReason string             `json:"finish_reason,omitempty"`
	PendingTeams []string           `json:"pending_teams"`
	Rankings     []engine.Ranking   `json:"rankings"`
	Teams        []engine.TeamState `json:"teams"`
}

// Scoreboard handles GET /api/scoreboard.
func (sh *ScoreboardHandler) Scoreboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := ScoreboardResponse{
		Phase:        sh.engine.Phase(),
		Round:        sh.engine.CurrentRound(),
		FinishReason: sh.engine.FinishReason(),
		PendingTeams: sh.engine.PendingTeams(),
		Rankings:     sh.engine.Rankings(),
		Teams:        sh.engine.TeamStates(),
	}

	writeJSON(w, resp)
}

// ReplayEvent is a sanitized event for public viewing.
type ReplayEvent struct {
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"`
	Round     int         `json:"round"`
	Type      string      `json:"type"`
	TeamID    string      `json:"team_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

// ReplayResponse is the API response for event replay.
type ReplayResponse struct {
	GameID      string        `json:"game_id"`
	TotalEvents int           `json:"total_events"`
	FilteredBy  string        `json:"filtered_by,omitempty"`
	Events      []ReplayEvent `json:"events"`
}

// Replay handles GET /api/replay with optional ?team=, ?round=, ?type=
// filters against the in-memory event log.
func (sh *ScoreboardHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	team := r.URL.Query().Get("team")
	eventType := r.URL.Query().Get("type")
	round := -1
	if raw := r.URL.Query().Get("round"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "Invalid round", http.StatusBadRequest)
			return
		}
		round = parsed
	}

	all := sh.engine.GetEventLog().Replay()
	resp := ReplayResponse{
		GameID:      sh.gameID,
		TotalEvents: len(all),
		FilteredBy:  filterLabel(team, eventType, round),
		Events:      make([]ReplayEvent, 0, len(all)),
	}

	for _, e := range all {
		if team != "" && e.TeamID != team {
			continue
		}
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if round >= 0 && e.Round != round {
			continue
		}
		resp.Events = append(resp.Events, sanitize(e))
	}

	writeJSON(w, resp)
}

// RecapResponse carries state rebuilt from the persisted ledger.
type RecapResponse struct {
	GameID    string                              `json:"game_id"`
	Hospitals map[string]*storage.RebuiltHospital `json:"hospitals"`
	Timeline  []storage.RecapEvent                `json:"timeline"`
}

// Recap handles GET /api/recap. Unlike Replay it reads from SQLite, so it
// also covers events from before the last server restart.
func (sh *ScoreboardHandler) Recap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hospitals, timeline, err := sh.reconstructor.Rebuild(r.Context(), sh.gameID)
	if err != nil {
		sh.logger.Error("Recap rebuild failed: " + err.Error())
		http.Error(w, "Failed to rebuild game state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, RecapResponse{
		GameID:    sh.gameID,
		Hospitals: hospitals,
		Timeline:  timeline,
	})
}

func sanitize(e events.GameEvent) ReplayEvent {
	return ReplayEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp.Format("15:04:05"),
		Round:     e.Round,
		Type:      string(e.Type),
		TeamID:    e.TeamID,
		Payload:   e.Payload,
	}
}

func filterLabel(team, eventType string, round int) string {
	label := ""
	if team != "" {
		label += "team=" + team + " "
	}
	if eventType != "" {
		label += "type=" + eventType + " "
	}
	if round >= 0 {
		label += "round=" + strconv.Itoa(round)
	}
	return label
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
