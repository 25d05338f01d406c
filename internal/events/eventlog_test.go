package events

import (
	"sync"
	"testing"
	"time"
)

// recordingPersister captures write-through events for assertions.
type recordingPersister struct {
	mu     sync.Mutex
	stored []GameEvent
}

func (p *recordingPersister) Append(event GameEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stored = append(p.stored, event)
	return nil
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.stored)
}

func TestAppendAndFilter(t *testing.T) {
	log := NewEventLog(nil)

	log.Append(GameEvent{ID: "1", Type: EventTypeGameStarted, Round: 0})
	log.Append(GameEvent{ID: "2", Type: EventTypeRoundStarted, TeamID: "Hospital 1", Round: 1})
	log.Append(GameEvent{ID: "3", Type: EventTypePatientAdmitted, TeamID: "Hospital 1", Round: 1})
	log.Append(GameEvent{ID: "4", Type: EventTypeMisdiagnosis, TeamID: "Hospital 2", Round: 1})

	if log.Len() != 4 {
		t.Errorf("Expected 4 events, got %d", log.Len())
	}

	byTeam := log.GetByTeam("Hospital 1")
	if len(byTeam) != 2 {
		t.Errorf("Expected 2 events for Hospital 1, got %d", len(byTeam))
	}

	byRound := log.GetByRound(1)
	if len(byRound) != 3 {
		t.Errorf("Expected 3 events in round 1, got %d", len(byRound))
	}

	replay := log.Replay()
	if len(replay) != 4 || replay[0].ID != "1" || replay[3].ID != "4" {
		t.Errorf("Replay must preserve append order, got %v", replay)
	}
}

func TestWriteThroughPersistence(t *testing.T) {
	persister := &recordingPersister{}
	log := NewEventLog(persister)

	for i := 0; i < 5; i++ {
		log.Append(GameEvent{ID: GenerateEventID(), Type: EventTypeScoreChange})
	}

	// Persistence runs off the hot path; give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for persister.count() < 5 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if got := persister.count(); got != 5 {
		t.Errorf("Expected 5 persisted events, got %d", got)
	}
}

func TestGeneratedIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateEventID()
		if id == "" {
			t.Fatal("Generated an empty event ID")
		}
		if seen[id] {
			t.Fatalf("Duplicate event ID %s", id)
		}
		seen[id] = true
	}
}
