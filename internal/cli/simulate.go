package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/memoster/reviewcore/internal/batch"
	"github.com/memoster/reviewcore/internal/config"
	"github.com/memoster/reviewcore/internal/diagapi"
	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/gesture"
	"github.com/memoster/reviewcore/internal/review"
	"github.com/memoster/reviewcore/internal/scheduler"
	"github.com/memoster/reviewcore/internal/session"
	"github.com/memoster/reviewcore/internal/store"
)

var flagSimulateItems int

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted study session entirely in memory",
	Long: "simulate seeds N items, starts a session, and walks the queue with a fixed\n" +
		"sequence of gestures, printing the resulting schedule. It never touches the\n" +
		"configured data directory — useful for exercising the scheduling formula\n" +
		"without a real device.",
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&flagSimulateItems, "items", 5, "number of synthetic items to seed")
}

// memStorage is a throwaway domain.Storage for simulate — nothing it
// writes needs to survive the process.
type memStorage struct {
	mu      sync.Mutex
	items   map[string]domain.Item
	history map[string][]domain.ReviewRecord
}

func newMemStorage() *memStorage {
	return &memStorage{items: make(map[string]domain.Item), history: make(map[string][]domain.ReviewRecord)}
}

func (s *memStorage) PutItem(item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *memStorage) AppendRecord(id string, record domain.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[id] = append(s.history[id], record)
	return nil
}

func (s *memStorage) LoadAllItems() ([]domain.Item, error) { return nil, nil }

func (s *memStorage) LoadHistory(id string) ([]domain.ReviewRecord, error) { return nil, nil }

var simulateGestures = []domain.Action{
	domain.SwipeNext,
	domain.ShowMeaning,
	domain.SwipeNext,
	domain.MarkDifficult,
	domain.SwipeNext,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	clock := domain.SystemClock{}

	storage := newMemStorage()
	st, err := store.New(storage, cfg.Cache.HotItemCapacity, cfg.Cache.HistoryCapacity, cfg.Cache.HistoryMaxPerItem)
	if err != nil {
		return fmt.Errorf("reviewcore: building item store: %w", err)
	}

	now := clock.Now()
	for i := 0; i < flagSimulateItems; i++ {
		id, err := st.NextItemID()
		if err != nil {
			return fmt.Errorf("reviewcore: issuing item id: %w", err)
		}
		item := domain.NewItem(id, fmt.Sprintf("word-%d", i+1), fmt.Sprintf("meaning-%d", i+1), 1, now)
		if err := st.AddItem(item); err != nil {
			return fmt.Errorf("reviewcore: seeding item %s: %w", id, err)
		}
	}

	sched := scheduler.New(clock.Now)
	defer sched.Close()

	tmpDir, err := os.MkdirTemp("", "reviewcore-simulate-*")
	if err != nil {
		return fmt.Errorf("reviewcore: creating scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	writer := batch.New(storage, clock, cfg.Batch, filepath.Join(tmpDir, "backup.json"), filepath.Join(tmpDir, "pending.json"), nil)

	sessCfg := session.Config{
		ReviewParams: review.Params{
			BaseIntervalMs: cfg.Strength.BaseIntervalMs,
			MinIntervalMs:  cfg.Strength.MinIntervalMs,
		},
		GestureThresholds: gesture.Thresholds{
			DoubleTapWindow: time.Duration(cfg.Gesture.DoubleTapThresholdMs) * time.Millisecond,
			LongPress:       time.Duration(cfg.Gesture.LongPressThresholdMs) * time.Millisecond,
			FlingDistancePx: cfg.Gesture.FlingDistancePx,
			FlingVelocity:   cfg.Gesture.FlingVelocityPxPerSec,
		},
		AccidentalThresholdMs: cfg.Gesture.AccidentalThresholdMs,
	}
	mgr := session.New(sessCfg, st, sched, writer, diagapi.NoopNotifier{}, clock)

	sessionID, err := mgr.StartSession()
	if err != nil {
		return fmt.Errorf("reviewcore: starting session: %w", err)
	}
	fmt.Printf("session %s started with %d items\n", sessionID, flagSimulateItems)

	for i := 0; i < flagSimulateItems; i++ {
		item, ok := mgr.CurrentItem()
		if !ok {
			fmt.Println("queue exhausted early")
			break
		}
		if err := mgr.StartCurrentStudy(); err != nil {
			return fmt.Errorf("reviewcore: starting study on %s: %w", item.ID, err)
		}

		action := simulateGestures[i%len(simulateGestures)]
		time.Sleep(time.Duration(cfg.Gesture.AccidentalThresholdMs) * time.Millisecond)
		if err := mgr.OnGesture(action); err != nil {
			return fmt.Errorf("reviewcore: applying gesture to %s: %w", item.ID, err)
		}

		updated, _ := st.GetItem(item.ID)
		fmt.Printf("%s %-10q gesture=%-15s next_review=%s\n", item.ID, item.Word, action, updated.NextReviewTime.Format(time.RFC3339))
	}

	result, err := mgr.EndSession()
	if err != nil {
		return fmt.Errorf("reviewcore: ending session: %w", err)
	}
	fmt.Printf("session %s ended: %d items studied, %d actions, duration %s\n",
		result.SessionID, result.ItemsStudied, result.TotalActions, result.Duration)
	return writer.ForceFlush()
}
