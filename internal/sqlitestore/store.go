package sqlitestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/memoster/reviewcore/internal/domain"
)

// Store implements domain.Storage against the schema in Migrations(),
// grounded on infra/sqlite/phase3.go's UpsertRegionStatus/phase4.go's
// UpsertQualityCheck ON CONFLICT DO UPDATE shape for PutItem.
type Store struct {
	db *DB
}

// New wraps an opened DB as a domain.Storage.
func New(db *DB) *Store {
	return &Store{db: db}
}

// PutItem upserts item by ID.
func (s *Store) PutItem(item domain.Item) error {
	_, err := s.db.db.Exec(`
		INSERT INTO items (id, word, meaning, level, virtual_count, actual_count, sensitivity, next_review_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			word             = excluded.word,
			meaning          = excluded.meaning,
			level            = excluded.level,
			virtual_count    = excluded.virtual_count,
			actual_count     = excluded.actual_count,
			sensitivity      = excluded.sensitivity,
			next_review_time = excluded.next_review_time
	`, item.ID, item.Word, item.Meaning, item.Level, item.VirtualCount, item.ActualCount,
		item.Sensitivity, item.NextReviewTime.Format(time.RFC3339Nano), item.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlitestore: put item %s: %w", item.ID, err)
	}
	return nil
}

// AppendRecord inserts one review record for id.
func (s *Store) AppendRecord(id string, record domain.ReviewRecord) error {
	var sessionID sql.NullString
	if record.SessionID != "" {
		sessionID = sql.NullString{String: record.SessionID, Valid: true}
	}
	_, err := s.db.db.Exec(`
		INSERT INTO review_records (item_id, dwell_millis, review_time, action, session_id)
		VALUES (?, ?, ?, ?, ?)
	`, id, record.DwellMs, record.ReviewTime.Format(time.RFC3339Nano), string(record.Action), sessionID)
	if err != nil {
		return fmt.Errorf("sqlitestore: append record %s: %w", id, err)
	}
	return nil
}

// LoadAllItems returns every item, for store.Store.Load at startup.
func (s *Store) LoadAllItems() ([]domain.Item, error) {
	rows, err := s.db.db.Query(`
		SELECT id, word, meaning, level, virtual_count, actual_count, sensitivity, next_review_time, created_at
		FROM items
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load all items: %w", err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		var it domain.Item
		var nextReviewStr, createdStr string
		if err := rows.Scan(&it.ID, &it.Word, &it.Meaning, &it.Level, &it.VirtualCount,
			&it.ActualCount, &it.Sensitivity, &nextReviewStr, &createdStr); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan item: %w", err)
		}
		it.NextReviewTime, err = time.Parse(time.RFC3339Nano, nextReviewStr)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse next_review_time for %s: %w", it.ID, err)
		}
		it.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse created_at for %s: %w", it.ID, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// LoadHistory returns every review record for id, oldest first.
func (s *Store) LoadHistory(id string) ([]domain.ReviewRecord, error) {
	rows, err := s.db.db.Query(`
		SELECT dwell_millis, review_time, action, session_id
		FROM review_records WHERE item_id = ? ORDER BY review_time ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: load history %s: %w", id, err)
	}
	defer rows.Close()

	var out []domain.ReviewRecord
	for rows.Next() {
		var r domain.ReviewRecord
		var reviewStr, action string
		var sessionID sql.NullString
		if err := rows.Scan(&r.DwellMs, &reviewStr, &action, &sessionID); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan record: %w", err)
		}
		r.ItemID = id
		r.Action = domain.Action(action)
		if sessionID.Valid {
			r.SessionID = sessionID.String
		}
		r.ReviewTime, err = time.Parse(time.RFC3339Nano, reviewStr)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: parse review_time: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
