// Package store provides ThreadStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// MemoryStore is an in-memory implementation of the ThreadStore interface.
// Threads are copied on the way in and out.
type MemoryStore struct {
	threads map[string]*core.Thread
	// byMessage maps message ids to the thread holding them
	byMessage map[string]string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewMemoryStore creates a new in-memory thread store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		threads:   make(map[string]*core.Thread),
		byMessage: make(map[string]string),
		logger:    logger,
	}
}

// FindByMessageID returns the thread containing messageID
func (s *MemoryStore) FindByMessageID(ctx context.Context, messageID string) (*core.Thread, error) {
	return s.FindByAnyReference(ctx, []string{messageID})
}

// FindByAnyReference returns the most recently updated thread containing any of ids
func (s *MemoryStore) FindByAnyReference(ctx context.Context, ids []string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*core.Thread
	for _, id := range ids {
		if threadID, ok := s.byMessage[id]; ok && id != "" {
			candidates = append(candidates, s.threads[threadID])
		}
	}
	return latest(candidates)
}

// FindByReferrer returns the most recently updated thread holding a message
// that replies to or references any of ids
func (s *MemoryStore) FindByReferrer(ctx context.Context, ids []string) (*core.Thread, error) {
	want := toSet(ids)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*core.Thread
	for _, t := range s.threads {
		if refersTo(t, want) {
			candidates = append(candidates, t)
		}
	}
	return latest(candidates)
}

// FindBySubjectWithParticipantOverlap returns the most recently updated thread with
// the normalized subject that shares a participant with emails
func (s *MemoryStore) FindBySubjectWithParticipantOverlap(ctx context.Context, normalizedSubject string, emails []string) (*core.Thread, error) {
	want := toSet(emails)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []*core.Thread
	for _, t := range s.threads {
		if t.NormalizedSubject != normalizedSubject {
			continue
		}
		for _, e := range t.ParticipantEmails() {
			if want[e] {
				candidates = append(candidates, t)
				break
			}
		}
	}
	return latest(candidates)
}

// FindAllLinked returns every thread containing or referring to any of ids, oldest first
func (s *MemoryStore) FindAllLinked(ctx context.Context, ids []string) ([]*core.Thread, error) {
	want := toSet(ids)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*core.Thread
	for _, t := range s.threads {
		if refersTo(t, want) || containsAny(t, want) {
			out = append(out, t.Clone())
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// Create stores a new thread
func (s *MemoryStore) Create(ctx context.Context, thread *core.Thread) (string, error) {
	t := thread.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.threads[t.ID]; exists {
		return "", fmt.Errorf("thread %s already exists", t.ID)
	}
	s.threads[t.ID] = t
	for _, m := range t.Messages {
		s.index(m.MessageID, t.ID)
	}

	s.logger.Debug("Created thread", zap.String("thread_id", t.ID))
	return t.ID, nil
}

// Append adds a message to a thread
func (s *MemoryStore) Append(ctx context.Context, threadID string, ref core.MessageRef, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("append to %s: %w", threadID, core.ErrThreadNotFound)
	}
	ref.References = append([]string(nil), ref.References...)
	ref.To = append([]core.Participant(nil), ref.To...)
	ref.Cc = append([]core.Participant(nil), ref.Cc...)
	ref.Bcc = append([]core.Participant(nil), ref.Bcc...)
	t.Messages = append(t.Messages, ref)
	t.LastUpdated = at
	s.index(ref.MessageID, threadID)
	return nil
}

// Get returns a thread by id
func (s *MemoryStore) Get(ctx context.Context, threadID string) (*core.Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, core.ErrThreadNotFound
	}
	return t.Clone(), nil
}

// List returns up to limit threads
func (s *MemoryStore) List(ctx context.Context, limit int, byRecency bool) ([]*core.Thread, error) {
	s.mu.RLock()
	out := make([]*core.Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, t.Clone())
	}
	s.mu.RUnlock()

	if byRecency {
		sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	} else {
		sortOldestFirst(out)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateSummary sets the summary of a thread
func (s *MemoryStore) UpdateSummary(ctx context.Context, threadID string, summary string) error {
	return s.update(threadID, func(t *core.Thread) { t.Summary = summary })
}

// UpdatePriority sets the priority of a thread
func (s *MemoryStore) UpdatePriority(ctx context.Context, threadID string, priority core.Priority) error {
	return s.update(threadID, func(t *core.Thread) { t.Priority = priority })
}

// Merge moves the messages of fromID onto intoID and removes fromID
func (s *MemoryStore) Merge(ctx context.Context, intoID, fromID string) error {
	if intoID == fromID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	into, ok := s.threads[intoID]
	if !ok {
		return fmt.Errorf("merge into %s: %w", intoID, core.ErrThreadNotFound)
	}
	from, ok := s.threads[fromID]
	if !ok {
		return fmt.Errorf("merge from %s: %w", fromID, core.ErrThreadNotFound)
	}

	into.Messages = append(into.Messages, from.Messages...)
	if from.LastUpdated.After(into.LastUpdated) {
		into.LastUpdated = from.LastUpdated
	}
	delete(s.threads, fromID)
	for _, m := range from.Messages {
		s.index(m.MessageID, intoID)
	}
	return nil
}

// Close releases the store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) update(threadID string, fn func(*core.Thread)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return fmt.Errorf("update %s: %w", threadID, core.ErrThreadNotFound)
	}
	fn(t)
	return nil
}

// index records a message id, keeping the first thread that claimed it
func (s *MemoryStore) index(messageID, threadID string) {
	if messageID == "" {
		return
	}
	if owner, ok := s.byMessage[messageID]; ok {
		if _, live := s.threads[owner]; live && owner != threadID {
			return
		}
	}
	s.byMessage[messageID] = threadID
}

var _ core.ThreadStore = (*MemoryStore)(nil)

// latest picks the most recently updated thread, breaking ties by id
func latest(candidates []*core.Thread) (*core.Thread, error) {
	var best *core.Thread
	for _, t := range candidates {
		if best == nil || newer(t, best) {
			best = t
		}
	}
	if best == nil {
		return nil, core.ErrThreadNotFound
	}
	return best.Clone(), nil
}

func newer(a, b *core.Thread) bool {
	if !a.LastUpdated.Equal(b.LastUpdated) {
		return a.LastUpdated.After(b.LastUpdated)
	}
	return a.ID > b.ID
}

func sortOldestFirst(threads []*core.Thread) {
	sort.Slice(threads, func(i, j int) bool {
		if !threads[i].CreatedAt.Equal(threads[j].CreatedAt) {
			return threads[i].CreatedAt.Before(threads[j].CreatedAt)
		}
		return threads[i].ID < threads[j].ID
	})
}

func refersTo(t *core.Thread, ids map[string]bool) bool {
	for i := range t.Messages {
		for _, id := range t.Messages[i].LinkedIDs() {
			if ids[id] {
				return true
			}
		}
	}
	return false
}

func containsAny(t *core.Thread, ids map[string]bool) bool {
	for i := range t.Messages {
		if ids[t.Messages[i].MessageID] {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
