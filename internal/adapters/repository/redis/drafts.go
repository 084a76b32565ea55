package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/internal/infrastructure/metrics"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

const draftPrefix = "ivrflow:draft:"

// DraftStore keeps session drafts in Redis, relying on key expiry for the TTL
type DraftStore struct {
	client     *goredis.Client
	serializer *serialization.Serializer
}

// Connect parses a redis:// URL and checks the server is reachable
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewDraftStore creates a draft store on an existing client
func NewDraftStore(client *goredis.Client, serializer *serialization.Serializer) *DraftStore {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &DraftStore{client: client, serializer: serializer}
}

func (s *DraftStore) key(sessionID string) string {
	return draftPrefix + sessionID
}

// SaveDraft stores doc for ttl; a zero ttl never expires
func (s *DraftStore) SaveDraft(ctx context.Context, sessionID string, doc flow.Document, ttl time.Duration) error {
	if sessionID == "" {
		return dto.ErrMissingSessionID
	}
	defer observe("save_draft", time.Now())
	data, err := s.serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// LoadDraft returns the stored draft
func (s *DraftStore) LoadDraft(ctx context.Context, sessionID string) (flow.Document, error) {
	if sessionID == "" {
		return flow.Document{}, dto.ErrMissingSessionID
	}
	defer observe("load_draft", time.Now())
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return flow.Document{}, fmt.Errorf("%w: %s", dto.ErrDraftNotFound, sessionID)
		}
		return flow.Document{}, fmt.Errorf("failed to load draft: %w", err)
	}

	var doc flow.Document
	if err := s.serializer.Deserialize(data, &doc); err != nil {
		return flow.Document{}, fmt.Errorf("failed to deserialize draft: %w", err)
	}
	return doc, nil
}

// DeleteDraft removes a draft; missing drafts are not an error
func (s *DraftStore) DeleteDraft(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return dto.ErrMissingSessionID
	}
	defer observe("delete_draft", time.Now())
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// Close closes the underlying client
func (s *DraftStore) Close() error {
	return s.client.Close()
}

func observe(method string, start time.Time) {
	metrics.ObserveRepository("redis", method, time.Since(start).Seconds())
}
