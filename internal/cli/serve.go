package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/memoster/reviewcore/internal/batch"
	"github.com/memoster/reviewcore/internal/diagapi"
	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/gesture"
	"github.com/memoster/reviewcore/internal/review"
	"github.com/memoster/reviewcore/internal/scheduler"
	"github.com/memoster/reviewcore/internal/session"
	"github.com/memoster/reviewcore/internal/sqlitestore"
	"github.com/memoster/reviewcore/internal/store"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review-scheduling core as a long-lived process",
	Long: "serve opens the sqlite store, recovers any pending writes left by a prior\n" +
		"crash, starts a session, and serves the diagnostic HTTP API until interrupted.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":8090", "address the diagnostic HTTP API listens on")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := ensureDataDir(flagDataDir); err != nil {
		return err
	}

	db, err := sqlitestore.Open(dbPath(flagDataDir))
	if err != nil {
		return fmt.Errorf("reviewcore: opening database: %w", err)
	}
	defer db.Close()

	storage := sqlitestore.New(db)
	st, err := store.New(storage, cfg.Cache.HotItemCapacity, cfg.Cache.HistoryCapacity, cfg.Cache.HistoryMaxPerItem)
	if err != nil {
		return fmt.Errorf("reviewcore: building item store: %w", err)
	}
	if err := st.Load(); err != nil {
		return fmt.Errorf("reviewcore: loading items from database: %w", err)
	}

	clock := domain.SystemClock{}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	writer := batch.New(storage, clock, cfg.Batch, backupLogPath(flagDataDir), pendingSnapshotPath(flagDataDir), logger)

	recovered, err := writer.Recover(func(id string) bool {
		_, ok := st.GetItem(id)
		return ok
	})
	if err != nil {
		return fmt.Errorf("reviewcore: recovering pending writes: %w", err)
	}
	if recovered.RecoveredUpdates > 0 || recovered.RecoveredRecords > 0 {
		logger.Printf("[reviewcore] recovered %d pending item updates and %d pending records from a prior crash",
			recovered.RecoveredUpdates, recovered.RecoveredRecords)
		if err := st.Load(); err != nil {
			return fmt.Errorf("reviewcore: reloading items after recovery: %w", err)
		}
	}

	sched := scheduler.New(clock.Now)
	defer sched.Close()

	hub := diagapi.NewEventHub()
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
	mgr := session.New(sessCfg, st, sched, writer, diagapi.NewHubNotifier(hub, diagapi.NoopNotifier{}), clock)

	if _, err := mgr.StartSession(); err != nil {
		return fmt.Errorf("reviewcore: starting session: %w", err)
	}

	stop := make(chan struct{})
	go mgr.Run(stop)

	ctx, cancel := context.WithCancel(cmd.Context())
	go writer.StartAutoFlush(ctx)

	srv := diagapi.NewServer(mgr, hub)
	httpSrv := &http.Server{Addr: flagServeAddr, Handler: srv.Handler()}
	go func() {
		logger.Printf("[reviewcore] diagnostic API listening on %s", flagServeAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("[reviewcore] http server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Printf("[reviewcore] shutting down")
	cancel()
	close(stop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx)

	if _, err := mgr.EndSession(); err != nil && err != domain.ErrNoActiveSession {
		logger.Printf("[reviewcore] ending session: %v", err)
	}
	if err := writer.ForceFlush(); err != nil {
		logger.Printf("[reviewcore] final flush: %v", err)
	}
	return nil
}
