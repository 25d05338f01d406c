// Package storage - reconstructor.go
// Rebuilds hospital state from the event ledger: state = f(events).
// Backs the replay endpoint and lets snapshots be cross-checked after a
// crash.
package storage

import (
	"context"
	"fmt"

	"github.com/medward/triage-server/internal/domain/department"
)

// Reconstructor replays persisted events into hospital states.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RebuiltHospital holds the reconstructed state for one team.
type RebuiltHospital struct {
	TeamID       string         `json:"team_id"`
	Score        int            `json:"score"`
	Beds         map[string]int `json:"beds"`
	Admitted     int            `json:"admitted"`
	Referred     int            `json:"referred"`
	CorrectCount int            `json:"correct_count"`
	WrongCount   int            `json:"wrong_count"`
}

// RecapEvent is a human-readable line for the replay view.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	Round     int    `json:"round"`
	EventType string `json:"event_type"`
	TeamID    string `json:"team_id,omitempty"`
	Summary   string `json:"summary"`
}

// Rebuild replays all events for a game and returns per-team state plus a
// recap timeline. The last GAME_STARTED event wins: earlier games in the
// same ledger are discarded, matching how the engine resets on start.
func (r *Reconstructor) Rebuild(ctx context.Context, gameID string) (map[string]*RebuiltHospital, []RecapEvent, error) {
	events, err := r.eventRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load events for rebuild: %w", err)
	}

	hospitals := make(map[string]*RebuiltHospital)
	var recap []RecapEvent

	fresh := func(teamID string) *RebuiltHospital {
		beds := make(map[string]int, len(department.Registry))
		for _, d := range department.Registry {
			beds[string(d.Name)] = d.Capacity
		}
		return &RebuiltHospital{TeamID: teamID, Beds: beds}
	}

	for _, e := range events {
		switch e.EventType {
		case "GAME_STARTED":
			hospitals = make(map[string]*RebuiltHospital)
			recap = recap[:0]
			if teams, ok := e.Payload["teams"].([]interface{}); ok {
				for _, t := range teams {
					if name, ok := t.(string); ok {
						hospitals[name] = fresh(name)
					}
				}
			}
			recap = append(recap, RecapEvent{
				Timestamp: e.Timestamp.Format("15:04:05"),
				EventType: e.EventType,
				Summary:   fmt.Sprintf("Game started with %d teams", len(hospitals)),
			})

		case "PATIENT_ADMITTED":
			h := hospitals[e.TeamID]
			if h == nil {
				h = fresh(e.TeamID)
				hospitals[e.TeamID] = h
			}
			h.Admitted++
			h.CorrectCount++
			if dept, ok := e.Payload["correct_department"].(string); ok && h.Beds[dept] > 0 {
				h.Beds[dept]--
			}
			recap = append(recap, recapLine(e, fmt.Sprintf("%s admitted a patient to %v", e.TeamID, e.Payload["correct_department"])))

		case "PATIENT_REFERRED":
			h := hospitals[e.TeamID]
			if h == nil {
				h = fresh(e.TeamID)
				hospitals[e.TeamID] = h
			}
			h.Referred++
			h.CorrectCount++
			recap = append(recap, recapLine(e, fmt.Sprintf("%s referred a patient, no beds in %v", e.TeamID, e.Payload["correct_department"])))

		case "MISDIAGNOSIS":
			h := hospitals[e.TeamID]
			if h == nil {
				h = fresh(e.TeamID)
				hospitals[e.TeamID] = h
			}
			h.WrongCount++
			recap = append(recap, recapLine(e, fmt.Sprintf("%s misdiagnosed, correct was %v", e.TeamID, e.Payload["correct_department"])))

		case "SCORE_CHANGE":
			if h := hospitals[e.TeamID]; h != nil {
				if newScore, ok := e.Payload["new_score"].(float64); ok {
					h.Score = int(newScore)
				}
			}

		case "ROUND_STARTED", "GAME_FINISHED":
			recap = append(recap, recapLine(e, summaryFor(e)))
		}
	}

	return hospitals, recap, nil
}

func recapLine(e GameEvent, summary string) RecapEvent {
	return RecapEvent{
		Timestamp: e.Timestamp.Format("15:04:05"),
		Round:     e.Round,
		EventType: e.EventType,
		TeamID:    e.TeamID,
		Summary:   summary,
	}
}

func summaryFor(e GameEvent) string {
	switch e.EventType {
	case "ROUND_STARTED":
		return fmt.Sprintf("Round %d: new patient for %s", e.Round, e.TeamID)
	case "GAME_FINISHED":
		return fmt.Sprintf("Game over after round %d (%v)", e.Round, e.Payload["reason"])
	default:
		return e.EventType
	}
}
