package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "compound-site/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

// Store persists workflows between requests.
type Store interface {
	Load(ctx context.Context, id string) (*Workflow, error)
	Save(ctx context.Context, w *Workflow) error
	Delete(ctx context.Context, id string) error
}

const redisKeyPrefix = "application:workflow:"

// RedisStore keeps each workflow as a JSON document with a sliding TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Workflow, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewWorkflowNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewDraftStoreFailedError(err)
	}

	var w Workflow
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, apperrors.NewDraftStoreFailedError(fmt.Errorf("decode workflow %s: %w", id, err))
	}
	return &w, nil
}

func (s *RedisStore) Save(ctx context.Context, w *Workflow) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return apperrors.NewDraftStoreFailedError(err)
	}
	if err := s.client.Set(ctx, s.key(w.ID), raw, s.ttl).Err(); err != nil {
		return apperrors.NewDraftStoreFailedError(err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return apperrors.NewDraftStoreFailedError(err)
	}
	return nil
}

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	raw     []byte
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, items: map[string]memoryItem{}}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Workflow, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if ok && s.ttl > 0 && s.now().After(item.expires) {
		delete(s.items, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, apperrors.NewWorkflowNotFoundError(id)
	}

	// stored as JSON so callers never share maps with the store
	var w Workflow
	if err := json.Unmarshal(item.raw, &w); err != nil {
		return nil, apperrors.NewDraftStoreFailedError(err)
	}
	return &w, nil
}

func (s *MemoryStore) Save(_ context.Context, w *Workflow) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return apperrors.NewDraftStoreFailedError(err)
	}
	s.mu.Lock()
	s.items[w.ID] = memoryItem{raw: raw, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Len reports how many workflows are held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
