package engine

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/domain/hospital"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/platform/logger"
)

func newTestEngine(cfg Config, seed int64) *Engine {
	eventLog := events.NewEventLog(nil)
	log := logger.NewLogger("error")
	return NewEngine(eventLog, log, cfg, rand.New(rand.NewSource(seed)))
}

// pendingPatient exposes the team's current case so tests can choose a
// correct or wrong guess deliberately.
func pendingPatient(e *Engine, teamID string) (department.Name, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pc := e.pending[teamID]
	return pc.patient.CorrectDepartment, pc.patient.Points
}

func wrongGuessFor(correct department.Name) department.Name {
	for _, d := range department.All() {
		if d != correct {
			return d
		}
	}
	return correct
}

func TestStartGameValidation(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 10}, 1)

	if err := e.StartGame([]string{"Solo"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a single team, got %v", err)
	}
	if err := e.StartGame([]string{"A", ""}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for an empty team name, got %v", err)
	}
	if err := e.StartGame([]string{"A", "A"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for duplicate team names, got %v", err)
	}
	if e.Phase() != PhaseNotStarted {
		t.Errorf("Failed starts must not change phase, got %s", e.Phase())
	}
}

func TestSubmitBeforeGameStarts(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 10}, 1)

	if _, err := e.SubmitDiagnosis("A", department.Surgery); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("Expected ErrGameNotInProgress, got %v", err)
	}
}

func TestCorrectDiagnosisFlow(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 2)
	base := time.Now()
	e.now = func() time.Time { return base }

	if err := e.StartGame([]string{"Hospital 1", "Hospital 2"}); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if err := e.StartRound(); err != nil {
		t.Fatalf("StartRound failed: %v", err)
	}

	correct, points := pendingPatient(e, "Hospital 1")
	e.now = func() time.Time { return base.Add(10 * time.Second) }

	d, err := e.SubmitDiagnosis("Hospital 1", correct)
	if err != nil {
		t.Fatalf("SubmitDiagnosis failed: %v", err)
	}
	if d.Outcome != "Admitted" {
		t.Errorf("Expected Admitted, got %s", d.Outcome)
	}
	if !d.QuickBonus {
		t.Error("Expected quick bonus for a 10s answer")
	}
	if d.ScoreDelta != points+1 {
		t.Errorf("Expected delta %d, got %d", points+1, d.ScoreDelta)
	}
	if d.BedsRemaining != department.CapacityOf(correct)-1 {
		t.Errorf("Expected one bed consumed in %s, got %d remaining", correct, d.BedsRemaining)
	}

	// A second submission for the same round has no case left to answer.
	if _, err := e.SubmitDiagnosis("Hospital 1", correct); !errors.Is(err, ErrNoActiveCase) {
		t.Errorf("Expected ErrNoActiveCase on repeat submission, got %v", err)
	}
}

func TestSlowAnswerSkipsBonus(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 3)
	base := time.Now()
	e.now = func() time.Time { return base }

	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	correct, points := pendingPatient(e, "Hospital 1")
	e.now = func() time.Time { return base.Add(20 * time.Second) }

	d, err := e.SubmitDiagnosis("Hospital 1", correct)
	if err != nil {
		t.Fatalf("SubmitDiagnosis failed: %v", err)
	}
	if d.QuickBonus {
		t.Error("Did not expect quick bonus after 20s")
	}
	if d.ScoreDelta != points {
		t.Errorf("Expected delta %d, got %d", points, d.ScoreDelta)
	}
}

func TestWrongGuessPenalty(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 4)
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	correct, _ := pendingPatient(e, "Hospital 2")
	d, err := e.SubmitDiagnosis("Hospital 2", wrongGuessFor(correct))
	if err != nil {
		t.Fatalf("SubmitDiagnosis failed: %v", err)
	}
	if d.Outcome != "Misdiagnosed" {
		t.Errorf("Expected Misdiagnosed, got %s", d.Outcome)
	}
	if d.NewScore != -1 {
		t.Errorf("Expected score -1, got %d", d.NewScore)
	}
	if d.BedsRemaining != department.CapacityOf(correct) {
		t.Errorf("Misdiagnosis must not touch beds, got %d remaining", d.BedsRemaining)
	}
}

func TestInvalidInputs(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 5)
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	if _, err := e.SubmitDiagnosis("Nobody", department.Surgery); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown team, got %v", err)
	}
	if _, err := e.SubmitDiagnosis("Hospital 1", "Dermatology"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for unknown department, got %v", err)
	}

	// A rejected submission must leave the case open and state untouched.
	if got := len(e.PendingTeams()); got != 2 {
		t.Errorf("Expected both cases still pending after invalid input, got %d", got)
	}
	for _, s := range e.TeamStates() {
		if s.Score != 0 {
			t.Errorf("Expected untouched score for %s, got %d", s.Name, s.Score)
		}
	}

	// Rejected submissions must not appear in the audit ledger.
	for _, ev := range e.GetEventLog().Replay() {
		if ev.Type == events.EventTypeDiagnosisSubmitted {
			t.Errorf("Rejected guess produced a ledger entry: %+v", ev)
		}
	}
}

func TestStartRoundWhilePending(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 6)
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	if err := e.StartRound(); !errors.Is(err, ErrRoundActive) {
		t.Errorf("Expected ErrRoundActive, got %v", err)
	}
}

func TestRoundLimitEndsGame(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 1}, 7)
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	for _, team := range []string{"Hospital 1", "Hospital 2"} {
		correct, _ := pendingPatient(e, team)
		if _, err := e.SubmitDiagnosis(team, correct); err != nil {
			t.Fatalf("SubmitDiagnosis for %s failed: %v", team, err)
		}
	}

	if e.Phase() != PhaseFinished {
		t.Errorf("Expected Finished after the round limit, got %s", e.Phase())
	}
	if e.FinishReason() != "round limit reached" {
		t.Errorf("Unexpected finish reason: %q", e.FinishReason())
	}
	if err := e.StartRound(); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("Expected ErrGameNotInProgress after finish, got %v", err)
	}
}

func TestScoreTargetEndsGame(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100, ScoreTarget: 3}, 8)
	base := time.Now()
	e.now = func() time.Time { return base }
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	// A correct quick answer is worth at least 4, clearing the target.
	correct, _ := pendingPatient(e, "Hospital 1")
	e.SubmitDiagnosis("Hospital 1", correct)

	// The game only ends once the full round is resolved.
	if e.Phase() != PhaseInProgress {
		t.Errorf("Game must stay open while a case is pending, got %s", e.Phase())
	}

	correct2, _ := pendingPatient(e, "Hospital 2")
	e.SubmitDiagnosis("Hospital 2", wrongGuessFor(correct2))

	if e.Phase() != PhaseFinished {
		t.Errorf("Expected Finished once the score target is reached, got %s", e.Phase())
	}
	if e.FinishReason() != "score target reached" {
		t.Errorf("Unexpected finish reason: %q", e.FinishReason())
	}

	// The terminal event carries the final rankings.
	last := e.GetEventLog().Replay()
	final := last[len(last)-1]
	if final.Type != events.EventTypeGameFinished {
		t.Errorf("Expected GAME_FINISHED as last event, got %s", final.Type)
	}
}

func TestDeadlineForcesMisdiagnosis(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100, RoundDeadline: 30 * time.Second}, 9)
	base := time.Now()
	e.now = func() time.Time { return base }
	e.StartGame([]string{"Hospital 1", "Hospital 2"})
	e.StartRound()

	// Just before the deadline nothing expires.
	e.now = func() time.Time { return base.Add(29 * time.Second) }
	if forced := e.ResolveExpired(); forced != 0 {
		t.Errorf("Expected no expired cases at 29s, got %d", forced)
	}

	e.now = func() time.Time { return base.Add(31 * time.Second) }
	if forced := e.ResolveExpired(); forced != 2 {
		t.Errorf("Expected both cases forced at 31s, got %d", forced)
	}

	for _, s := range e.TeamStates() {
		if s.Score != -1 {
			t.Errorf("Expected %s at -1 after timeout, got %d", s.Name, s.Score)
		}
		if s.WrongCount != 1 {
			t.Errorf("Expected %s with one wrong answer, got %d", s.Name, s.WrongCount)
		}
		for d, n := range s.BedsRemaining {
			if n != department.CapacityOf(d) {
				t.Errorf("Timeout must not touch beds: %s has %d in %s", s.Name, n, d)
			}
		}
	}

	if len(e.PendingTeams()) != 0 {
		t.Error("Expected no pending cases after forcing the round")
	}
}

func TestRankingsTieBreak(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 10)
	e.StartGame([]string{"Charlie", "Alpha", "Bravo"})

	e.mu.Lock()
	e.hospitals["Alpha"].Score = 10
	e.hospitals["Bravo"].Score = 10
	e.hospitals["Charlie"].Score = 12
	// Same score, more admissions wins.
	e.hospitals["Bravo"].Admitted = []hospital.AdmissionRecord{{Complaint: "Asthma attack"}}
	e.mu.Unlock()

	ranked := e.Rankings()

	if ranked[0].Team != "Charlie" || ranked[0].Rank != 1 {
		t.Errorf("Expected Charlie first, got %+v", ranked[0])
	}
	if ranked[1].Team != "Bravo" {
		t.Errorf("Expected Bravo second on the admissions tie-break, got %s", ranked[1].Team)
	}
	if ranked[2].Team != "Alpha" || ranked[2].Rank != 3 {
		t.Errorf("Expected Alpha third, got %+v", ranked[2])
	}
}

func TestRestoreGameResumesPlay(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 100}, 11)

	beds := department.Capacities()
	beds[department.ICU] = 0
	e.RestoreGame([]TeamState{
		{Name: "Hospital 1", Score: 7, BedsRemaining: beds, Referred: 1, CorrectCount: 3, WrongCount: 1},
		{Name: "Hospital 2", Score: 2, BedsRemaining: department.Capacities()},
	}, 4, PhaseInProgress)

	if e.Phase() != PhaseInProgress {
		t.Errorf("Expected restored game in progress, got %s", e.Phase())
	}
	if e.CurrentRound() != 4 {
		t.Errorf("Expected round 4, got %d", e.CurrentRound())
	}

	if err := e.StartRound(); err != nil {
		t.Fatalf("StartRound after restore failed: %v", err)
	}
	if e.CurrentRound() != 5 {
		t.Errorf("Expected round 5 after restore+start, got %d", e.CurrentRound())
	}

	for _, s := range e.TeamStates() {
		if s.Name == "Hospital 1" && s.BedsRemaining[department.ICU] != 0 {
			t.Errorf("Expected restored ICU beds 0, got %d", s.BedsRemaining[department.ICU])
		}
	}
}

func TestRestoreFinishedGameStaysFinished(t *testing.T) {
	e := newTestEngine(Config{MaxRounds: 2}, 12)

	// Snapshots taken after the final round carry the terminal phase; a
	// restart must not reopen the game past its round limit.
	e.RestoreGame([]TeamState{
		{Name: "Hospital 1", Score: 9, BedsRemaining: department.Capacities()},
		{Name: "Hospital 2", Score: 4, BedsRemaining: department.Capacities()},
	}, 2, PhaseFinished)

	if e.Phase() != PhaseFinished {
		t.Errorf("Expected restored game to stay Finished, got %s", e.Phase())
	}
	if err := e.StartRound(); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("Expected ErrGameNotInProgress starting a round after restore, got %v", err)
	}
	if e.CurrentRound() != 2 {
		t.Errorf("Expected round counter to hold at 2, got %d", e.CurrentRound())
	}
	if _, err := e.SubmitDiagnosis("Hospital 1", department.Surgery); !errors.Is(err, ErrGameNotInProgress) {
		t.Errorf("Expected ErrGameNotInProgress on diagnosis after restore, got %v", err)
	}
}
