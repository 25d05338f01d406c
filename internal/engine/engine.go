package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/hospital"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/logger"
)

// Phase is the lifecycle state of a game.
type Phase string

const (
	PhaseNotStarted Phase = "NotStarted"
	PhaseInProgress Phase = "InProgress"
	PhaseFinished   Phase = "Finished"
)

// Config holds the game parameters.
type Config struct {
	MaxRounds   int
	ScoreTarget int

	// RoundDeadline bounds how long a round stays open before outstanding
	// cases are scored as misdiagnoses. Zero disables the deadline.
	RoundDeadline time.Duration
}

// pendingCase is a patient waiting for a team's diagnosis this round.
type pendingCase struct {
	patient   patient.Patient
	startedAt time.Time
}

// Engine is the central orchestrator: it owns all hospitals, sequences
// rounds and applies diagnoses through the AdmissionEngine. All public
// methods are safe for concurrent use; internally every turn resolves
// sequentially under one lock, so no team observes a half-applied round.
type Engine struct {
	mu sync.Mutex

	eventLog  *events.EventLog
	logger    *logger.Logger
	cfg       Config
	admission *AdmissionEngine
	generator *PatientGenerator

	phase        Phase
	round        int
	hospitals    map[string]*hospital.Hospital
	teamOrder    []string
	pending      map[string]pendingCase
	finishReason string

	// now is swappable in tests to pin elapsed-time measurements.
	now func() time.Time
}

// NewEngine wires up the core game systems. A nil rng gets a time-seeded
// source; tests inject a fixed seed for reproducible patient sequences.
func NewEngine(eventLog *events.EventLog, log *logger.Logger, cfg Config, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Engine{
		eventLog:  eventLog,
		logger:    log,
		cfg:       cfg,
		admission: NewAdmissionEngine(eventLog, log),
		generator: NewPatientGenerator(rng),
		phase:     PhaseNotStarted,
		hospitals: make(map[string]*hospital.Hospital),
		pending:   make(map[string]pendingCase),
		now:       time.Now,
	}
}

// GameStartedPayload is attached to GAME_STARTED events.
type GameStartedPayload struct {
	Teams       []string `json:"teams"`
	MaxRounds   int      `json:"max_rounds"`
	ScoreTarget int      `json:"score_target"`
}

// TeamState is a read-only copy of one hospital for snapshots and display.
type TeamState struct {
	Name          string                  `json:"name"`
	Score         int                     `json:"score"`
	BedsRemaining map[department.Name]int `json:"beds_remaining"`
	Admitted      int                     `json:"admitted"`
	Referred      int                     `json:"referred"`
	CorrectCount  int                     `json:"correct_count"`
	WrongCount    int                     `json:"wrong_count"`
}

// Phase returns the current lifecycle state.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// CurrentRound returns the round number (0 before the first round).
func (e *Engine) CurrentRound() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

// FinishReason reports why the game ended, or "" while it has not.
func (e *Engine) FinishReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finishReason
}

// GetEventLog exposes the event log for the network layer.
func (e *Engine) GetEventLog() *events.EventLog {
	return e.eventLog
}

// TeamStates returns a copy of every hospital in seating order.
func (e *Engine) TeamStates() []TeamState {
	e.mu.Lock()
	defer e.mu.Unlock()

	states := make([]TeamState, 0, len(e.teamOrder))
	for _, name := range e.teamOrder {
		states = append(states, e.teamStateLocked(name))
	}
	return states
}

func (e *Engine) teamStateLocked(name string) TeamState {
	h := e.hospitals[name]
	beds := make(map[department.Name]int, len(h.BedsRemaining))
	for d, n := range h.BedsRemaining {
		beds[d] = n
	}
	return TeamState{
		Name:          h.Name,
		Score:         h.Score,
		BedsRemaining: beds,
		Admitted:      len(h.Admitted),
		Referred:      h.ReferredCount,
		CorrectCount:  h.CorrectCount,
		WrongCount:    h.WrongCount,
	}
}

// RestoreGame rebuilds a game from persisted snapshots so a restarted
// server picks up where it stopped. The next round continues from the
// stored round counter. A game persisted as Finished stays terminal; any
// other stored phase restores as InProgress.
func (e *Engine) RestoreGame(states []TeamState, round int, phase Phase) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hospitals = make(map[string]*hospital.Hospital, len(states))
	e.teamOrder = e.teamOrder[:0]
	for _, s := range states {
		h := hospital.NewHospital(s.Name)
		h.Score = s.Score
		h.ReferredCount = s.Referred
		h.CorrectCount = s.CorrectCount
		h.WrongCount = s.WrongCount
		for d, n := range s.BedsRemaining {
			h.BedsRemaining[d] = n
		}
		// Admission records are not snapshotted; only the count survives a
		// restart, carried by CorrectCount.
		e.hospitals[s.Name] = h
		e.teamOrder = append(e.teamOrder, s.Name)
	}

	e.round = round
	if phase == PhaseFinished {
		e.phase = PhaseFinished
		e.finishReason = "finished before restart"
	} else {
		e.phase = PhaseInProgress
	}
	e.pending = make(map[string]pendingCase)
	e.logger.Info(fmt.Sprintf("Game state restored from snapshots (%s)", e.phase))
}
