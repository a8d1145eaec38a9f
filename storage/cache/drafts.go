package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
)

type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ kholle.DraftStore = (*RedisDraftStore)(nil) // interface compliance check

func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl}
}

func (s *RedisDraftStore) GetDraft(ctx context.Context, key kholle.DraftKey) (kholle.Draft, bool, error) {
	data, err := s.client.Get(ctx, draftPrefix+key.String()).Bytes()
	if err == redis.Nil {
		return kholle.Draft{}, false, nil
	}
	if err != nil {
		return kholle.Draft{}, false, errors.Wrap(err, "reading draft")
	}
	var draft kholle.Draft
	if err = json.Unmarshal(data, &draft); err != nil {
		return kholle.Draft{}, false, errors.Wrap(err, "decoding draft")
	}
	return draft, true, nil
}

func (s *RedisDraftStore) SaveDraft(ctx context.Context, key kholle.DraftKey, draft kholle.Draft) error {
	b, err := json.Marshal(draft)
	if err != nil {
		return errors.Wrap(err, "encoding draft")
	}
	return s.client.Set(ctx, draftPrefix+key.String(), b, s.ttl).Err()
}

func (s *RedisDraftStore) DeleteDraft(ctx context.Context, key kholle.DraftKey) error {
	return s.client.Del(ctx, draftPrefix+key.String()).Err()
}

type memoryDraft struct {
	draft   kholle.Draft
	expires time.Time
}

// MemoryDraftStore keeps drafts in process. Expired drafts are dropped on read.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	drafts map[kholle.DraftKey]memoryDraft
}

var _ kholle.DraftStore = (*MemoryDraftStore)(nil) // interface compliance check

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{ttl: ttl, drafts: make(map[kholle.DraftKey]memoryDraft)}
}

func (s *MemoryDraftStore) GetDraft(ctx context.Context, key kholle.DraftKey) (kholle.Draft, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[key]
	if !ok {
		return kholle.Draft{}, false, nil
	}
	if s.ttl > 0 && core.NowFunc().After(d.expires) {
		delete(s.drafts, key)
		return kholle.Draft{}, false, nil
	}
	return cloneDraft(d.draft), true, nil
}

func (s *MemoryDraftStore) SaveDraft(ctx context.Context, key kholle.DraftKey, draft kholle.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[key] = memoryDraft{draft: cloneDraft(draft), expires: core.NowFunc().Add(s.ttl)}
	return nil
}

func (s *MemoryDraftStore) DeleteDraft(ctx context.Context, key kholle.DraftKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, key)
	return nil
}

func cloneDraft(d kholle.Draft) kholle.Draft {
	return kholle.Draft{
		Step:        d.Step,
		Unavailable: append([]int64(nil), d.Unavailable...),
		Ranked:      append([]int64(nil), d.Ranked...),
	}
}
