// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	TeamID    string                 `json:"team_id" db:"team_id"`
	Round     int                    `json:"round" db:"round"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByGameID retrieves all events for a specific game (for replay).
	GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error)

	// GetByTeamID retrieves all events belonging to a team.
	GetByTeamID(ctx context.Context, gameID, teamID string) ([]GameEvent, error)

	// GetByRound retrieves all events from a specific round.
	GetByRound(ctx context.Context, gameID string, round int) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error)
}

// HospitalSnapshot represents the current state of a team's hospital for
// quick reads and restart recovery. Beds is department name -> remaining.
type HospitalSnapshot struct {
	TeamID       string         `json:"team_id" db:"team_id"`
	GameID       string         `json:"game_id" db:"game_id"`
	Score        int            `json:"score" db:"score"`
	Beds         map[string]int `json:"beds" db:"beds"`
	Admitted     int            `json:"admitted" db:"admitted"`
	Referred     int            `json:"referred" db:"referred"`
	CorrectCount int            `json:"correct_count" db:"correct_count"`
	WrongCount   int            `json:"wrong_count" db:"wrong_count"`
	Round        int            `json:"round" db:"round"`
	Phase        string         `json:"phase" db:"phase"`
	LastUpdated  time.Time      `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for hospital snapshots.
type SnapshotRepository interface {
	// Upsert writes the latest state for a team.
	Upsert(ctx context.Context, snapshot HospitalSnapshot) error

	// GetByTeamID retrieves one team's snapshot, nil if absent.
	GetByTeamID(ctx context.Context, teamID string) (*HospitalSnapshot, error)

	// GetByGameID retrieves all snapshots for a game.
	GetByGameID(ctx context.Context, gameID string) ([]HospitalSnapshot, error)

	// DeleteByGameID clears the snapshots when a fresh game starts.
	DeleteByGameID(ctx context.Context, gameID string) error
}
