// Package batch implements C8: the write-behind buffer, the crash-safe
// append-only record log, and startup recovery. It is the only component
// permitted to mutate the durable Storage, matching the teacher's own
// preference for a single write path guarded by upsert-then-log ordering
// (see infra/sqlite's migration/upsert shape) and encoding/json for every
// on-disk structure (registry.Manager.saveManifest never reaches for a
// third-party serializer, so neither does this).
package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/memoster/reviewcore/internal/config"
	"github.com/memoster/reviewcore/internal/domain"
	"github.com/memoster/reviewcore/internal/obs"
)

// crashLogLine is the bit-exact on-disk shape of one backup_study_records.json
// line (spec §6).
type crashLogLine struct {
	ItemID    string         `json:"itemId"`
	Record    crashLogRecord `json:"record"`
	Timestamp int64          `json:"timestamp"`
}

type crashLogRecord struct {
	ReviewTime int64   `json:"reviewTime"`
	DwellTime  int64   `json:"dwellTime"`
	Action     string  `json:"action"`
	SessionID  *string `json:"sessionId"`
}

// pendingSnapshot is the bit-exact on-disk shape of pending_updates.json.
type pendingSnapshot struct {
	Updates map[string]domain.Item          `json:"updates"`
	Records map[string][]domain.ReviewRecord `json:"records"`
}

// Stats summarizes the writer's pending buffer, for diagnostics.
type Stats struct {
	PendingUpdates int       `json:"pending_updates"`
	PendingRecords int       `json:"pending_records"`
	LastFlush      time.Time `json:"last_flush"`
}

// RecoveryStats summarizes what startup recovery found and applied.
type RecoveryStats struct {
	RecoveredUpdates     int
	RecoveredRecords      int
	BackupRecordsSeen     int
	BackupRecordsMatched  int
	MemoryUsageEstimate   int64
}

// Writer buffers item/record writes in memory and flushes them to Storage
// in batches, per §4.8.
type Writer struct {
	mu sync.Mutex

	storage domain.Storage
	clock   domain.Clock
	cfg     config.Batch
	logger  *log.Logger

	backupLogPath       string
	pendingSnapshotPath string

	pendingUpdates map[string]domain.Item
	pendingRecords map[string][]domain.ReviewRecord
	lastFlush      time.Time
}

// New constructs a Writer. backupLogPath and pendingSnapshotPath are the
// paths backup_study_records.json and pending_updates.json are written to.
func New(storage domain.Storage, clock domain.Clock, cfg config.Batch, backupLogPath, pendingSnapshotPath string, logger *log.Logger) *Writer {
	if logger == nil {
		logger = log.Default()
	}
	return &Writer{
		storage:             storage,
		clock:               clock,
		cfg:                 cfg,
		logger:              logger,
		backupLogPath:       backupLogPath,
		pendingSnapshotPath: pendingSnapshotPath,
		pendingUpdates:      make(map[string]domain.Item),
		pendingRecords:      make(map[string][]domain.ReviewRecord),
		lastFlush:           clock.Now(),
	}
}

// Enqueue buffers item (last-write-wins) and record, appending record to
// the crash-safe log first. A crash-log append failure is logged but never
// propagated — the session must never block on durability.
func (w *Writer) Enqueue(item domain.Item, record domain.ReviewRecord) {
	if err := w.appendCrashLog(item.ID, record); err != nil {
		w.logger.Printf("[reviewcore.batch] crash log append failed for %s: %v", item.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingUpdates[item.ID] = item
	w.pendingRecords[item.ID] = append(w.pendingRecords[item.ID], record)
	obs.BatchPendingUpdates.Set(float64(len(w.pendingUpdates)))

	if w.shouldFlushLocked() {
		if err := w.flushLocked(); err != nil {
			w.logger.Printf("[reviewcore.batch] flush failed, snapshot written: %v", err)
		}
	}
}

// EnqueueItem buffers item with no accompanying record — used for a
// freshly imported item, which has no ReviewRecord yet. Last-write-wins,
// same as Enqueue's item half.
func (w *Writer) EnqueueItem(item domain.Item) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingUpdates[item.ID] = item
	obs.BatchPendingUpdates.Set(float64(len(w.pendingUpdates)))

	if w.shouldFlushLocked() {
		if err := w.flushLocked(); err != nil {
			w.logger.Printf("[reviewcore.batch] flush failed, snapshot written: %v", err)
		}
	}
}

func (w *Writer) shouldFlushLocked() bool {
	if w.clock.Now().Sub(w.lastFlush) >= time.Duration(w.cfg.IntervalMs)*time.Millisecond {
		return true
	}
	if len(w.pendingUpdates) >= w.cfg.SizeThreshold {
		return true
	}
	total := 0
	for _, recs := range w.pendingRecords {
		total += len(recs)
	}
	return total >= w.cfg.SizeThreshold
}

// ForceFlush flushes the pending buffer regardless of the usual triggers,
// used by background/end_session/cleanup per §4.8.1.
func (w *Writer) ForceFlush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes every pending item/record to Storage. On any error it
// writes the entire pending state to the snapshot file (overwrite, buffer
// left intact for a later retry) and returns the error wrapped as a
// transient persistence failure.
func (w *Writer) flushLocked() error {
	for id, item := range w.pendingUpdates {
		if err := w.storage.PutItem(item); err != nil {
			w.snapshotLocked()
			obs.BatchFlushes.WithLabelValues("error").Inc()
			return fmt.Errorf("%w: put item %s: %v", domain.ErrPersistTransient, id, err)
		}
	}
	for id, recs := range w.pendingRecords {
		for _, r := range recs {
			if err := w.storage.AppendRecord(id, r); err != nil {
				w.snapshotLocked()
				obs.BatchFlushes.WithLabelValues("error").Inc()
				return fmt.Errorf("%w: append record %s: %v", domain.ErrPersistTransient, id, err)
			}
		}
	}
	w.pendingUpdates = make(map[string]domain.Item)
	w.pendingRecords = make(map[string][]domain.ReviewRecord)
	w.lastFlush = w.clock.Now()
	obs.BatchFlushes.WithLabelValues("ok").Inc()
	obs.BatchPendingUpdates.Set(0)
	return nil
}

// snapshotLocked serializes the current pending state to pendingSnapshotPath,
// overwriting any prior snapshot. Caller holds w.mu.
func (w *Writer) snapshotLocked() {
	snap := pendingSnapshot{Updates: w.pendingUpdates, Records: w.pendingRecords}
	data, err := json.Marshal(snap)
	if err != nil {
		w.logger.Printf("[reviewcore.batch] marshal pending snapshot: %v", err)
		return
	}
	if err := os.WriteFile(w.pendingSnapshotPath, data, 0o644); err != nil {
		w.logger.Printf("[reviewcore.batch] write pending snapshot: %v", err)
	}
}

// appendCrashLog appends one canonical-format line to the backup log,
// before the record enters the buffer.
func (w *Writer) appendCrashLog(itemID string, record domain.ReviewRecord) error {
	var sessionID *string
	if record.SessionID != "" {
		sessionID = &record.SessionID
	}
	line := crashLogLine{
		ItemID: itemID,
		Record: crashLogRecord{
			ReviewTime: record.ReviewTime.UnixMilli(),
			DwellTime:  record.DwellMs,
			Action:     string(record.Action),
			SessionID:  sessionID,
		},
		Timestamp: w.clock.Now().UnixMilli(),
	}
	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(w.backupLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// Stats returns the current pending-buffer sizes.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, recs := range w.pendingRecords {
		total += len(recs)
	}
	return Stats{PendingUpdates: len(w.pendingUpdates), PendingRecords: total, LastFlush: w.lastFlush}
}

// Recover runs the startup recovery procedure of §4.8.4: applying any
// pending snapshot to Storage, then counting (without clearing) the
// entries in the crash log whose item still exists.
func (w *Writer) Recover(itemExists func(id string) bool) (RecoveryStats, error) {
	var stats RecoveryStats

	if data, err := os.ReadFile(w.pendingSnapshotPath); err == nil {
		var snap pendingSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return stats, fmt.Errorf("batch: parse pending snapshot: %w", err)
		}
		for _, item := range snap.Updates {
			if err := w.storage.PutItem(item); err != nil {
				return stats, fmt.Errorf("%w: recover item %s: %v", domain.ErrPersistFatal, item.ID, err)
			}
			stats.RecoveredUpdates++
		}
		for id, recs := range snap.Records {
			for _, r := range recs {
				if err := w.storage.AppendRecord(id, r); err != nil {
					return stats, fmt.Errorf("%w: recover record %s: %v", domain.ErrPersistFatal, id, err)
				}
				stats.RecoveredRecords++
			}
		}
		if err := os.Remove(w.pendingSnapshotPath); err != nil && !os.IsNotExist(err) {
			w.logger.Printf("[reviewcore.batch] remove pending snapshot: %v", err)
		}
	} else if !os.IsNotExist(err) {
		return stats, fmt.Errorf("batch: read pending snapshot: %w", err)
	}

	if f, err := os.Open(w.backupLogPath); err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var line crashLogLine
			if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
				w.logger.Printf("[reviewcore.batch] skipping unparseable backup line: %v", err)
				continue
			}
			stats.BackupRecordsSeen++
			if itemExists != nil && itemExists(line.ItemID) {
				stats.BackupRecordsMatched++
			}
		}
	} else if !os.IsNotExist(err) {
		return stats, fmt.Errorf("batch: read backup log: %w", err)
	}

	stats.MemoryUsageEstimate = int64(stats.RecoveredUpdates+stats.BackupRecordsSeen) * 1024
	if stats.MemoryUsageEstimate > 100*1024*1024 {
		w.logger.Printf("[reviewcore.batch] recovery memory usage estimate %d bytes exceeds 100MB", stats.MemoryUsageEstimate)
	}
	if err := stats.validate(); err != nil {
		return stats, fmt.Errorf("batch: recovered stats failed validation: %w", err)
	}
	obs.BatchRecovered.WithLabelValues("updates").Set(float64(stats.RecoveredUpdates))
	obs.BatchRecovered.WithLabelValues("records").Set(float64(stats.RecoveredRecords))
	return stats, nil
}

// validate checks the recovery totals are sane before they're reported:
// every count is non-negative, and the number of backup lines matched to a
// still-existing item never exceeds the number of lines seen.
func (s RecoveryStats) validate() error {
	if s.RecoveredUpdates < 0 || s.RecoveredRecords < 0 || s.BackupRecordsSeen < 0 || s.BackupRecordsMatched < 0 || s.MemoryUsageEstimate < 0 {
		return fmt.Errorf("negative recovery count: %+v", s)
	}
	if s.BackupRecordsMatched > s.BackupRecordsSeen {
		return fmt.Errorf("matched backup records (%d) exceeds seen (%d)", s.BackupRecordsMatched, s.BackupRecordsSeen)
	}
	return nil
}

// StartAutoFlush runs trigger #5 of the flush policy: a background tick
// every cfg.AutoSaveMs that force-flushes regardless of buffer size,
// adapted from gossip.SWIM.Start's ticker-driven probe cycle with the
// membership machinery stripped out. Blocks until ctx is cancelled.
func (w *Writer) StartAutoFlush(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.AutoSaveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ForceFlush(); err != nil {
				w.logger.Printf("[reviewcore.batch] auto-flush failed, snapshot written: %v", err)
			}
		}
	}
}

// Cleanup deletes the crash log. Never called automatically — only on
// explicit operator request (spec §9's resolved open question).
func (w *Writer) Cleanup() error {
	if err := os.Remove(w.backupLogPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("batch: cleanup backup log: %w", err)
	}
	return nil
}
