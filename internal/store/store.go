// Package store implements C1: the authoritative item map, its hot-item
// and history LRU caches, and the due-time index used by the queue
// manager and scheduler. A history-cache miss falls through to the
// injected Storage, following the teacher's registry.Manager cache-in-
// front-of-backing-store shape; a hot-cache miss falls back to the
// in-memory item map (filled by Load), never to Storage.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/memoster/reviewcore/internal/domain"
)

// Store owns every Item in memory, a bounded LRU of items, a bounded LRU
// of per-item history, and the due-time index (§4.1).
type Store struct {
	mu      sync.Mutex
	storage domain.Storage

	items map[string]domain.Item // authoritative in-memory map

	hotCache     *lru.Cache[string, domain.Item]
	historyCache *lru.Cache[string, []domain.ReviewRecord]

	due *dueHeap

	historyMax int
	nextID     uint64
}

// New constructs a Store. hotCapacity/historyCapacity size the LRUs;
// historyMax bounds the per-item history kept in the history cache.
func New(storage domain.Storage, hotCapacity, historyCapacity, historyMax int) (*Store, error) {
	hot, err := lru.New[string, domain.Item](hotCapacity)
	if err != nil {
		return nil, fmt.Errorf("store: hot cache: %w", err)
	}
	hist, err := lru.New[string, []domain.ReviewRecord](historyCapacity)
	if err != nil {
		return nil, fmt.Errorf("store: history cache: %w", err)
	}
	return &Store{
		storage:      storage,
		items:        make(map[string]domain.Item),
		hotCache:     hot,
		historyCache: hist,
		due:          newDueHeap(),
		historyMax:   historyMax,
	}, nil
}

// Load populates the store from Storage at startup.
func (s *Store) Load() error {
	items, err := s.storage.LoadAllItems()
	if err != nil {
		return fmt.Errorf("store: load all items: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		s.items[it.ID] = it
		s.hotCache.Add(it.ID, it)
		s.due.Upsert(it.ID, it.NextReviewTime)
		s.bumpCounter(it.ID)
	}
	return nil
}

// AddItem inserts a brand new item into the in-memory map, caches, and
// due-time index. An item already present under the same ID is ignored
// (spec §9's resolved open question: dedup, no move). Durable persistence
// is the batch writer's job (§4.8), not the store's — this only updates
// what C1 owns.
func (s *Store) AddItem(item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return nil
	}
	s.items[item.ID] = item
	s.hotCache.Add(item.ID, item)
	s.due.Upsert(item.ID, item.NextReviewTime)
	s.bumpCounter(item.ID)
	return nil
}

// GetItem returns the item for id, consulting the hot cache before the
// authoritative map, and false if unknown.
func (s *Store) GetItem(id string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if it, ok := s.hotCache.Get(id); ok {
		return it, true
	}
	it, ok := s.items[id]
	if ok {
		s.hotCache.Add(id, it)
	}
	return it, ok
}

// UpdateItem writes a new value for an existing item, updating the
// authoritative map, hot cache, and due-time index atomically. Like
// AddItem, this never touches durable Storage directly — the batch
// writer is the only path that mutates the durable store (§4.8).
func (s *Store) UpdateItem(item domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	s.hotCache.Add(item.ID, item)
	s.due.Upsert(item.ID, item.NextReviewTime)
	return nil
}

// RemoveItem deletes an item from the map, caches, and due-time index.
func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	s.hotCache.Remove(id)
	s.historyCache.Remove(id)
	s.due.Remove(id)
}

// AllItems returns every known item in no particular order.
func (s *Store) AllItems() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	return out
}

// DueItemIDs returns IDs whose next_review_time <= now, sorted ascending.
func (s *Store) DueItemIDs(now time.Time) []string {
	return s.due.DueIDs(now)
}

// EarliestDueAfter returns the earliest due instant strictly after now,
// for the scheduler's idle-wait timer.
func (s *Store) EarliestDueAfter(now time.Time) (time.Time, bool) {
	return s.due.EarliestAfter(now)
}

// GetHistory returns the ordered history for id (≤ historyMax entries),
// consulting the history cache before falling through to Storage.
func (s *Store) GetHistory(id string) ([]domain.ReviewRecord, error) {
	s.mu.Lock()
	if h, ok := s.historyCache.Get(id); ok {
		out := make([]domain.ReviewRecord, len(h))
		copy(out, h)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	h, err := s.storage.LoadHistory(id)
	if err != nil {
		return nil, fmt.Errorf("store: load history: %w", err)
	}
	if len(h) > s.historyMax {
		h = h[len(h)-s.historyMax:]
	}
	s.mu.Lock()
	s.historyCache.Add(id, h)
	s.mu.Unlock()
	return h, nil
}

// AddRecord appends record to id's cached history, dropping the oldest
// entry if the result would exceed historyMax. This maintains the cache
// used by GetHistory; durable persistence of the record is the batch
// writer's (C8) responsibility, not the store's.
func (s *Store) AddRecord(id string, record domain.ReviewRecord) error {
	h, err := s.GetHistory(id)
	if err != nil {
		return err
	}
	h = append(h, record)
	if len(h) > s.historyMax {
		h = h[len(h)-s.historyMax:]
	}
	s.mu.Lock()
	s.historyCache.Add(id, h)
	s.mu.Unlock()
	return nil
}

// NextItemID issues the next zero-padded decimal ID in [1, 999999] from
// the process-wide monotonic counter. Returns ErrDuplicateItemID once
// the counter is exhausted, per spec §7.
func (s *Store) NextItemID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.nextID > 999_999 {
		return "", domain.ErrDuplicateItemID
	}
	return fmt.Sprintf("%06d", s.nextID), nil
}

// bumpCounter advances nextID past any numeric ID already loaded, so
// recovered items never collide with freshly issued ones. Caller holds s.mu.
func (s *Store) bumpCounter(id string) {
	var n uint64
	if _, err := fmt.Sscanf(id, "%d", &n); err != nil {
		return
	}
	if n > s.nextID {
		s.nextID = n
	}
}

// SortedByNextReview returns ids reordered by lookup(id).NextReviewTime
// ascending, stable, with unknown ids sorted last (§4.4 sort_by_next_review).
func SortedByNextReview(ids []string, lookup func(string) (domain.Item, bool)) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := lookup(out[i])
		tj, okj := lookup(out[j])
		if !oki {
			return false
		}
		if !okj {
			return true
		}
		return ti.NextReviewTime.Before(tj.NextReviewTime)
	})
	return out
}
