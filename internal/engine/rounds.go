package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/hospital"
	"github.com/medward/triage-server/internal/domain/patient"
	"github.com/medward/triage-server/internal/domain/rules"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/metrics"
)

var (
	ErrGameNotInProgress = errors.New("game is not in progress")
	ErrRoundActive       = errors.New("round still has pending diagnoses")
	ErrNoActiveCase      = errors.New("no active case for team")
)

// RoundStartedPayload is attached to ROUND_STARTED events, one per team.
type RoundStartedPayload struct {
	TeamID  string          `json:"team_id"`
	Round   int             `json:"round"`
	Patient patient.Patient `json:"patient"`
}

// GameFinishedPayload is attached to the terminal GAME_FINISHED event.
type GameFinishedPayload struct {
	FinalRound int       `json:"final_round"`
	Reason     string    `json:"reason"`
	Rankings   []Ranking `json:"rankings"`
}

// Diagnosis is the response to a submitted guess, shaped for display.
type Diagnosis struct {
	TeamID            string          `json:"team_id"`
	Round             int             `json:"round"`
	Outcome           rules.Outcome   `json:"outcome"`
	ScoreDelta        int             `json:"score_delta"`
	QuickBonus        bool            `json:"quick_bonus"`
	NewScore          int             `json:"new_score"`
	CorrectDepartment department.Name `json:"correct_department"`
	BedsRemaining     int             `json:"beds_remaining"`
	Message           string          `json:"message"`
}

// Ranking is one scoreboard row.
type Ranking struct {
	Rank     int     `json:"rank"`
	Team     string  `json:"team"`
	Score    int     `json:"score"`
	Admitted int     `json:"admitted"`
	Referred int     `json:"referred"`
	Accuracy float64 `json:"accuracy"`
}

// StartGame initializes the hospitals and moves the game to InProgress.
// Team names must be non-empty and unique.
func (e *Engine) StartGame(teamNames []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(teamNames) < 2 {
		return fmt.Errorf("%w: need at least 2 teams, got %d", ErrInvalidInput, len(teamNames))
	}
	seen := make(map[string]bool, len(teamNames))
	for _, name := range teamNames {
		if name == "" {
			return fmt.Errorf("%w: empty team name", ErrInvalidInput)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate team name %q", ErrInvalidInput, name)
		}
		seen[name] = true
	}

	e.hospitals = make(map[string]*hospital.Hospital, len(teamNames))
	e.teamOrder = append([]string(nil), teamNames...)
	for _, name := range teamNames {
		e.hospitals[name] = hospital.NewHospital(name)
	}
	e.round = 0
	e.pending = make(map[string]pendingCase)
	e.phase = PhaseInProgress
	e.finishReason = ""

	e.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeGameStarted,
		Payload: GameStartedPayload{
			Teams:       teamNames,
			MaxRounds:   e.cfg.MaxRounds,
			ScoreTarget: e.cfg.ScoreTarget,
		},
	})
	e.logger.Info(fmt.Sprintf("Game started with %d teams", len(teamNames)))

	return nil
}

// StartRound draws one patient per team and opens the diagnosis window.
// Each team receives an independently generated patient.
func (e *Engine) StartRound() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress {
		return ErrGameNotInProgress
	}
	if len(e.pending) > 0 {
		return ErrRoundActive
	}

	e.round++
	startedAt := e.now()

	for _, name := range e.teamOrder {
		p := e.generator.Generate(e.round, name)
		e.pending[name] = pendingCase{patient: p, startedAt: startedAt}

		e.eventLog.Append(events.GameEvent{
			ID:        events.GenerateEventID(),
			Timestamp: time.Now(),
			Type:      events.EventTypeRoundStarted,
			TeamID:    name,
			Round:     e.round,
			Payload: RoundStartedPayload{
				TeamID:  name,
				Round:   e.round,
				Patient: p,
			},
		})
	}

	metrics.Get().RecordRound()
	e.logger.Info(fmt.Sprintf("Round %d started, new patients arrived", e.round))

	return nil
}

// SubmitDiagnosis resolves one team's guess for its current patient.
// Elapsed decision time is measured by the engine clock, not the client.
func (e *Engine) SubmitDiagnosis(teamID string, guess department.Name) (Diagnosis, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress {
		return Diagnosis{}, ErrGameNotInProgress
	}
	h, ok := e.hospitals[teamID]
	if !ok {
		return Diagnosis{}, fmt.Errorf("%w: unknown team %q", ErrInvalidInput, teamID)
	}
	pc, ok := e.pending[teamID]
	if !ok {
		return Diagnosis{}, fmt.Errorf("%w (%s)", ErrNoActiveCase, teamID)
	}
	// Rejected guesses must not reach the ledger; only validated
	// submissions get a DIAGNOSIS_SUBMITTED entry.
	if !department.IsValid(guess) {
		return Diagnosis{}, fmt.Errorf("%w: unknown department %q", ErrInvalidInput, guess)
	}

	elapsed := e.now().Sub(pc.startedAt).Seconds()

	e.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeDiagnosisSubmitted,
		TeamID:    teamID,
		Round:     e.round,
		Payload: map[string]interface{}{
			"team_id":         teamID,
			"guess":           guess,
			"elapsed_seconds": elapsed,
		},
	})

	result, err := e.admission.Resolve(h, pc.patient, guess, elapsed, e.round)
	if err != nil {
		return Diagnosis{}, err
	}

	delete(e.pending, teamID)
	e.checkEndConditionsLocked()

	return Diagnosis{
		TeamID:            teamID,
		Round:             e.round,
		Outcome:           result.Outcome,
		ScoreDelta:        result.ScoreDelta,
		QuickBonus:        result.QuickBonus,
		NewScore:          h.Score,
		CorrectDepartment: pc.patient.CorrectDepartment,
		BedsRemaining:     h.BedsRemaining[pc.patient.CorrectDepartment],
		Message:           resultMessage(pc.patient, guess, result),
	}, nil
}

// ResolveExpired scores every case older than the round deadline as a
// misdiagnosis. It returns how many cases were forced.
func (e *Engine) ResolveExpired() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhaseInProgress || e.cfg.RoundDeadline <= 0 {
		return 0
	}

	forced := 0
	now := e.now()
	for teamID, pc := range e.pending {
		if now.Sub(pc.startedAt) < e.cfg.RoundDeadline {
			continue
		}
		e.admission.ForceMisdiagnosis(e.hospitals[teamID], pc.patient, e.round)
		delete(e.pending, teamID)
		forced++
	}

	if forced > 0 {
		e.checkEndConditionsLocked()
	}
	return forced
}

// checkEndConditionsLocked fires the InProgress -> Finished transition once
// the round is fully resolved and either terminal condition holds. Both
// checks run after every round; if both trigger at once the game simply
// ends, the distinction does not matter in a terminal state.
func (e *Engine) checkEndConditionsLocked() {
	if len(e.pending) > 0 {
		return
	}

	reason := ""
	if e.cfg.ScoreTarget > 0 {
		for _, h := range e.hospitals {
			if h.Score >= e.cfg.ScoreTarget {
				reason = "score target reached"
				break
			}
		}
	}
	if reason == "" && e.round >= e.cfg.MaxRounds {
		reason = "round limit reached"
	}
	if reason == "" {
		return
	}

	e.phase = PhaseFinished
	e.finishReason = reason

	e.eventLog.Append(events.GameEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeGameFinished,
		Round:     e.round,
		Payload: GameFinishedPayload{
			FinalRound: e.round,
			Reason:     reason,
			Rankings:   e.rankingsLocked(),
		},
	})
	e.logger.Info("Game finished: " + reason)
}

// Rankings returns the scoreboard: descending score, ties broken by higher
// admitted count, then team name.
func (e *Engine) Rankings() []Ranking {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rankingsLocked()
}

func (e *Engine) rankingsLocked() []Ranking {
	ranked := make([]Ranking, 0, len(e.hospitals))
	for _, name := range e.teamOrder {
		h := e.hospitals[name]
		ranked = append(ranked, Ranking{
			Team:     h.Name,
			Score:    h.Score,
			Admitted: len(h.Admitted),
			Referred: h.ReferredCount,
			Accuracy: h.DiagnosisAccuracy(),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Admitted != ranked[j].Admitted {
			return ranked[i].Admitted > ranked[j].Admitted
		}
		return ranked[i].Team < ranked[j].Team
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// PendingTeams lists teams that have not answered the current round yet.
func (e *Engine) PendingTeams() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	teams := make([]string, 0, len(e.pending))
	for _, name := range e.teamOrder {
		if _, ok := e.pending[name]; ok {
			teams = append(teams, name)
		}
	}
	return teams
}

func resultMessage(p patient.Patient, guess department.Name, result rules.RoundResult) string {
	switch result.Outcome {
	case rules.OutcomeAdmitted:
		msg := fmt.Sprintf("Correct diagnosis! Patient admitted to %s. +%d points", guess, result.ScoreDelta)
		if result.QuickBonus {
			msg += " (incl. +1 quick-diagnosis bonus)"
		}
		return msg
	case rules.OutcomeReferred:
		return fmt.Sprintf("Correct diagnosis but no beds in %s. Patient referred. -1 point", guess)
	default:
		return fmt.Sprintf("Wrong diagnosis! Should be %s. -1 point", p.CorrectDepartment)
	}
}
