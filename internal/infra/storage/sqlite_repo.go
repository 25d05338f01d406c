package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, game_id, timestamp, event_type, team_id, round, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.GameID, event.Timestamp, event.EventType,
		event.TeamID, event.Round, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(&e.ID, &e.GameID, &e.Timestamp, &e.EventType, &e.TeamID, &e.Round, &payloadStr)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error) {
	query := `SELECT id, game_id, timestamp, event_type, team_id, round, payload FROM events WHERE game_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, gameID)
}

func (r *SQLiteEventRepository) GetByTeamID(ctx context.Context, gameID, teamID string) ([]GameEvent, error) {
	query := `SELECT id, game_id, timestamp, event_type, team_id, round, payload FROM events WHERE game_id = ? AND team_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, gameID, teamID)
}

func (r *SQLiteEventRepository) GetByRound(ctx context.Context, gameID string, round int) ([]GameEvent, error) {
	query := `SELECT id, game_id, timestamp, event_type, team_id, round, payload FROM events WHERE game_id = ? AND round = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, gameID, round)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error) {
	query := `SELECT id, game_id, timestamp, event_type, team_id, round, payload FROM events WHERE game_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, gameID, eventType)
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) Upsert(ctx context.Context, snapshot HospitalSnapshot) error {
	bedsJSON, err := json.Marshal(snapshot.Beds)
	if err != nil {
		return fmt.Errorf("failed to marshal beds: %w", err)
	}

	query := `
		INSERT INTO hospitals (team_id, game_id, score, beds_json, admitted, referred, correct_count, wrong_count, round, phase, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(team_id) DO UPDATE SET
			score=excluded.score,
			beds_json=excluded.beds_json,
			admitted=excluded.admitted,
			referred=excluded.referred,
			correct_count=excluded.correct_count,
			wrong_count=excluded.wrong_count,
			round=excluded.round,
			phase=excluded.phase,
			last_updated=excluded.last_updated
	`
	_, err = r.db.ExecContext(ctx, query,
		snapshot.TeamID, snapshot.GameID, snapshot.Score, string(bedsJSON),
		snapshot.Admitted, snapshot.Referred, snapshot.CorrectCount, snapshot.WrongCount,
		snapshot.Round, snapshot.Phase, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) scanSnapshot(row interface{ Scan(...interface{}) error }) (*HospitalSnapshot, error) {
	var s HospitalSnapshot
	var bedsJSON string
	err := row.Scan(&s.TeamID, &s.GameID, &s.Score, &bedsJSON,
		&s.Admitted, &s.Referred, &s.CorrectCount, &s.WrongCount, &s.Round, &s.Phase)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(bedsJSON), &s.Beds); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSnapshotRepository) GetByTeamID(ctx context.Context, teamID string) (*HospitalSnapshot, error) {
	query := `SELECT team_id, game_id, score, beds_json, admitted, referred, correct_count, wrong_count, round, phase FROM hospitals WHERE team_id = ?`
	s, err := r.scanSnapshot(r.db.QueryRowContext(ctx, query, teamID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SQLiteSnapshotRepository) GetByGameID(ctx context.Context, gameID string) ([]HospitalSnapshot, error) {
	query := `SELECT team_id, game_id, score, beds_json, admitted, referred, correct_count, wrong_count, round, phase FROM hospitals WHERE game_id = ? ORDER BY team_id ASC`
	rows, err := r.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []HospitalSnapshot
	for rows.Next() {
		s, err := r.scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *s)
	}
	return snaps, rows.Err()
}

func (r *SQLiteSnapshotRepository) DeleteByGameID(ctx context.Context, gameID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hospitals WHERE game_id = ?`, gameID)
	return err
}
