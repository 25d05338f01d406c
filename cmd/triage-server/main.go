// Package main is the entry point for the Triage Rush game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/medward/triage-server/internal/domain/department"
	"github.com/medward/triage-server/internal/engine"
	"github.com/medward/triage-server/internal/events"
	"github.com/medward/triage-server/internal/infra/storage"
	"github.com/medward/triage-server/internal/network"
	"github.com/medward/triage-server/internal/platform/config"
	"github.com/medward/triage-server/internal/platform/logger"
	"github.com/medward/triage-server/internal/platform/metrics"
)

const gameID = "GAME_1" // Default singleton game ID

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	repo *storage.SQLiteEventRepository
}

func (a *SQLitePersisterAdapter) Append(event events.GameEvent) error {
	payloadBytes, _ := json.Marshal(event.Payload)
	var payloadMap map[string]interface{}
	json.Unmarshal(payloadBytes, &payloadMap)

	storageEvent := storage.GameEvent{
		ID:        event.ID,
		GameID:    gameID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		TeamID:    event.TeamID,
		Round:     event.Round,
		Payload:   payloadMap,
	}

	start := time.Now()
	err := a.repo.Append(context.Background(), storageEvent)
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}

// bootstrapGame restores a game from snapshots if the DB has one, or starts
// a fresh game with the configured teams.
func bootstrapGame(ctx context.Context, repo *storage.SQLiteSnapshotRepository, eng *engine.Engine, cfg *config.Config, appLogger *logger.Logger) error {
	appLogger.Info("Checking DB for an existing game...")
	snaps, err := repo.GetByGameID(ctx, gameID)
	if err != nil {
		return err
	}

	if len(snaps) > 0 {
		appLogger.Info("Reconstructing hospitals from SQLite state...")
		states := make([]engine.TeamState, 0, len(snaps))
		round := 0
		phase := engine.PhaseInProgress
		for _, snap := range snaps {
			if snap.Phase == string(engine.PhaseFinished) {
				phase = engine.PhaseFinished
			}
			beds := make(map[department.Name]int, len(snap.Beds))
			for d, n := range snap.Beds {
				beds[department.Name(d)] = n
			}
			states = append(states, engine.TeamState{
				Name:          snap.TeamID,
				Score:         snap.Score,
				BedsRemaining: beds,
				Admitted:      snap.Admitted,
				Referred:      snap.Referred,
				CorrectCount:  snap.CorrectCount,
				WrongCount:    snap.WrongCount,
			})
			if snap.Round > round {
				round = snap.Round
			}
		}
		eng.RestoreGame(states, round, phase)
		if phase == engine.PhaseFinished {
			appLogger.Info("Stored game already finished; start a new one via /api/game/start")
		}
		return nil
	}

	appLogger.Info("Database empty. Starting a fresh game...")
	if err := eng.StartGame(cfg.Game.TeamNames); err != nil {
		return err
	}
	return eng.StartRound()
}

func main() {
	log.Println("[TRIAGE-SERVER] Initializing 'Triage Rush' authoritative server...")

	cfg := config.Load()
	appLogger := logger.NewLogger(cfg.Log.Level)

	appLogger.Info("Initializing SQLite database '" + cfg.Storage.SQLitePath + "'...")
	db, err := storage.InitSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: " + err.Error())
		os.Exit(1)
	}
	eventRepo := storage.NewSQLiteEventRepository(db)
	eventPersister := &SQLitePersisterAdapter{repo: eventRepo}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewEventLog(eventPersister)

	appLogger.Info("Bootstrapping engine...")
	gameEngine := engine.NewEngine(eventLog, appLogger, engine.Config{
		MaxRounds:     cfg.Game.MaxRounds,
		ScoreTarget:   cfg.Game.ScoreTarget,
		RoundDeadline: cfg.Game.RoundDeadline,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapRepo := storage.NewSQLiteSnapshotRepository(db)
	if err := bootstrapGame(ctx, snapRepo, gameEngine, cfg, appLogger); err != nil {
		appLogger.Error("Failed to bootstrap game: " + err.Error())
		os.Exit(1)
	}

	watcher := engine.NewDeadlineWatcher(gameEngine, appLogger)
	go watcher.Start(ctx)

	// Automated state backup routine
	go func() {
		backupTicker := time.NewTicker(5 * time.Second)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				round := gameEngine.CurrentRound()
				phase := gameEngine.Phase()
				for _, s := range gameEngine.TeamStates() {
					beds := make(map[string]int, len(s.BedsRemaining))
					for d, n := range s.BedsRemaining {
						beds[string(d)] = n
					}
					snap := storage.HospitalSnapshot{
						TeamID:       s.Name,
						GameID:       gameID,
						Score:        s.Score,
						Beds:         beds,
						Admitted:     s.Admitted,
						Referred:     s.Referred,
						CorrectCount: s.CorrectCount,
						WrongCount:   s.WrongCount,
						Round:        round,
						Phase:        string(phase),
						LastUpdated:  time.Now(),
					}
					_ = snapRepo.Upsert(ctx, snap)
				}
			}
		}
	}()

	appLogger.Info("Bootstrapping WebSocket hub...")
	hub := network.NewHub(gameEngine, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	reconstructor := storage.NewReconstructor(eventRepo)
	scoreboard := network.NewScoreboardHandler(gameEngine, reconstructor, gameID, appLogger)

	// Setup API routes
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r, appLogger)
	})

	http.HandleFunc("/api/game/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		type requestParams struct {
			Teams []string `json:"teams"`
		}
		var req requestParams
		_ = json.NewDecoder(r.Body).Decode(&req)
		teams := req.Teams
		if len(teams) == 0 {
			teams = cfg.Game.TeamNames
		}

		if err := gameEngine.StartGame(teams); err != nil {
			if errors.Is(err, engine.ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
			} else {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		// A fresh game invalidates the previous game's snapshots.
		if err := snapRepo.DeleteByGameID(r.Context(), gameID); err != nil {
			appLogger.Error("Failed to clear old snapshots: " + err.Error())
		}

		if err := gameEngine.StartRound(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"teams":  teams,
			"round":  gameEngine.CurrentRound(),
		})
	})

	http.HandleFunc("/api/round/next", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := gameEngine.StartRound(); err != nil {
			switch {
			case errors.Is(err, engine.ErrGameNotInProgress):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, engine.ErrRoundActive):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"round":  gameEngine.CurrentRound(),
		})
	})

	http.HandleFunc("/api/diagnose", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		type requestParams struct {
			TeamID     string `json:"team_id"`
			Department string `json:"department"`
		}
		var req requestParams
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		diagnosis, err := gameEngine.SubmitDiagnosis(req.TeamID, department.Name(req.Department))
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, engine.ErrNoActiveCase), errors.Is(err, engine.ErrGameNotInProgress):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(diagnosis)
	})

	http.HandleFunc("/api/scoreboard", scoreboard.Scoreboard)
	http.HandleFunc("/api/replay", scoreboard.Replay)
	http.HandleFunc("/api/recap", scoreboard.Recap)

	http.HandleFunc("/metrics", metrics.Handler())
	http.HandleFunc("/metrics/prometheus", metrics.PrometheusHandler())

	go func() {
		log.Printf("[TRIAGE-SERVER] HTTP API & WS server listening on %s", cfg.Server.Addr)
		if err := http.ListenAndServe(cfg.Server.Addr, nil); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[TRIAGE-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[TRIAGE-SERVER] Shutting down...")
	watcher.Stop()
	if err := db.Close(); err != nil {
		appLogger.Error("Failed to close database: " + err.Error())
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests for the web scoreboard
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, w http.ResponseWriter, r *http.Request, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection")
		return
	}

	client := network.NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
