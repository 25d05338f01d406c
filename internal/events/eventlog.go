// Package events provides the append-only log of game events.
// Every state change in a game passes through here, so the scoreboard,
// spectators and the replay endpoint all read from the same history.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeGameStarted        EventType = "GAME_STARTED"
	EventTypeRoundStarted       EventType = "ROUND_STARTED"
	EventTypeDiagnosisSubmitted EventType = "DIAGNOSIS_SUBMITTED"
	EventTypePatientAdmitted    EventType = "PATIENT_ADMITTED"
	EventTypePatientReferred    EventType = "PATIENT_REFERRED"
	EventTypeMisdiagnosis       EventType = "MISDIAGNOSIS"
	EventTypeScoreChange        EventType = "SCORE_CHANGE"
	EventTypeGameFinished       EventType = "GAME_FINISHED"
)

// GameEvent represents an immutable record of something that happened in a
// game. TeamID is empty for game-wide events.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	TeamID    string      `json:"team_id"`
	Round     int         `json:"round"`
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log. An optional persister receives
// a write-through copy of every event.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once appended.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		// Write through to persistent storage off the hot path.
		go func(e GameEvent) {
			_ = el.persister.Append(e)
		}(event)
	}
}

// GetByTeam returns all events belonging to a specific team.
func (el *EventLog) GetByTeam(teamID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.TeamID == teamID {
			result = append(result, e)
		}
	}
	return result
}

// GetByRound returns all events that occurred during a specific round.
func (el *EventLog) GetByRound(round int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Round == round {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns the full history of events for state reconstruction and
// the replay endpoint.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return el.events
}

// Len returns the number of appended events.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
