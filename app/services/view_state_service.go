// Package services provides technical concerns backing the page flows, such as per-page display state
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/counter-app/models"
	"github.com/amirphl/counter-app/utils"
	"github.com/redis/go-redis/v9"
)

// ViewStateStore keeps the display state of rendered counter pages
type ViewStateStore interface {
	// Load returns the view with the given id, or nil if it is unknown or expired
	Load(ctx context.Context, id string) (*models.CounterView, error)
	// Save stores the view and restarts its time-to-live
	Save(ctx context.Context, view *models.CounterView) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	view      models.CounterView
	expiresAt time.Time
}

// MemoryViewStateStore keeps views in process memory. Suitable for a single instance.
type MemoryViewStateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryViewStateStore creates an in-memory store whose entries expire after ttl of inactivity
func NewMemoryViewStateStore(ttl time.Duration) *MemoryViewStateStore {
	if ttl <= 0 {
		ttl = utils.DefaultCounterViewTTL
	}
	return &MemoryViewStateStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryViewStateStore) Load(ctx context.Context, id string) (*models.CounterView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if utils.IsExpired(entry.expiresAt) {
		delete(s.entries, id)
		return nil, nil
	}
	view := entry.view
	return &view, nil
}

func (s *MemoryViewStateStore) Save(ctx context.Context, view *models.CounterView) error {
	if view == nil || view.ID == "" {
		return errors.New("view id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[view.ID] = memoryEntry{view: *view, expiresAt: utils.UTCNowAdd(s.ttl)}
	return nil
}

func (s *MemoryViewStateStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

// PurgeExpired drops expired views and returns how many were removed
func (s *MemoryViewStateStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if utils.IsExpired(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored views, expired ones included
func (s *MemoryViewStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RedisViewStateStore keeps views in Redis so several instances can serve the same page
type RedisViewStateStore struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisViewStateStore creates a Redis-backed store. Keys are prefix + "counter_view:" + id.
func NewRedisViewStateStore(rc *redis.Client, prefix string, ttl time.Duration) *RedisViewStateStore {
	if ttl <= 0 {
		ttl = utils.DefaultCounterViewTTL
	}
	return &RedisViewStateStore{rc: rc, prefix: prefix, ttl: ttl}
}

func (s *RedisViewStateStore) key(id string) string {
	return s.prefix + utils.CounterViewKeyPrefix + id
}

func (s *RedisViewStateStore) Load(ctx context.Context, id string) (*models.CounterView, error) {
	bs, err := s.rc.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load counter view %s: %w", id, err)
	}

	var view models.CounterView
	if err := json.Unmarshal(bs, &view); err != nil {
		return nil, fmt.Errorf("failed to decode counter view %s: %w", id, err)
	}
	return &view, nil
}

func (s *RedisViewStateStore) Save(ctx context.Context, view *models.CounterView) error {
	if view == nil || view.ID == "" {
		return errors.New("view id is required")
	}

	bs, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to encode counter view %s: %w", view.ID, err)
	}
	if err := s.rc.Set(ctx, s.key(view.ID), bs, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save counter view %s: %w", view.ID, err)
	}
	return nil
}

func (s *RedisViewStateStore) Delete(ctx context.Context, id string) error {
	if err := s.rc.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete counter view %s: %w", id, err)
	}
	return nil
}
