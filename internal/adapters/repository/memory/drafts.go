package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowgraph/ivrflow/internal/app/dto"
	"github.com/flowgraph/ivrflow/internal/core/flow"
	"github.com/flowgraph/ivrflow/pkg/serialization"
)

type draft struct {
	data      []byte
	expiresAt time.Time
}

// DraftStore keeps session drafts in memory. Expired drafts are dropped
// lazily on read and by Sweep.
type DraftStore struct {
	mu         sync.Mutex
	drafts     map[string]draft
	serializer *serialization.Serializer
	now        func() time.Time
}

// NewDraftStore creates an empty draft store
func NewDraftStore(serializer *serialization.Serializer) *DraftStore {
	if serializer == nil {
		serializer = serialization.DefaultSerializer()
	}
	return &DraftStore{
		drafts:     make(map[string]draft),
		serializer: serializer,
		now:        time.Now,
	}
}

// SaveDraft stores doc for ttl; a zero ttl never expires
func (s *DraftStore) SaveDraft(ctx context.Context, sessionID string, doc flow.Document, ttl time.Duration) error {
	if sessionID == "" {
		return dto.ErrMissingSessionID
	}
	data, err := s.serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize draft: %w", err)
	}
	d := draft{data: data}
	if ttl > 0 {
		d.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[sessionID] = d
	return nil
}

// LoadDraft returns the stored draft
func (s *DraftStore) LoadDraft(ctx context.Context, sessionID string) (flow.Document, error) {
	s.mu.Lock()
	d, ok := s.drafts[sessionID]
	if ok && s.expired(d) {
		delete(s.drafts, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return flow.Document{}, fmt.Errorf("%w: %s", dto.ErrDraftNotFound, sessionID)
	}

	var doc flow.Document
	if err := s.serializer.Deserialize(d.data, &doc); err != nil {
		return flow.Document{}, fmt.Errorf("failed to deserialize draft: %w", err)
	}
	return doc, nil
}

// DeleteDraft removes a draft; missing drafts are not an error
func (s *DraftStore) DeleteDraft(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, sessionID)
	return nil
}

// Sweep drops every expired draft and returns how many were dropped
func (s *DraftStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, d := range s.drafts {
		if s.expired(d) {
			delete(s.drafts, id)
			n++
		}
	}
	return n
}

func (s *DraftStore) expired(d draft) bool {
	return !d.expiresAt.IsZero() && !s.now().Before(d.expiresAt)
}
