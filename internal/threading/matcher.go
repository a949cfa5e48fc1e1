// Package threading assigns normalized messages to conversation threads.
package threading

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/utils"
)

// Stage names the rule that placed a message in its thread
type Stage string

const (
	StageDuplicate  Stage = "duplicate"
	StageInReplyTo  Stage = "in_reply_to"
	StageReferences Stage = "references"
	StageReferrer   Stage = "referrer"
	StageSibling    Stage = "sibling"
	StageSubject    Stage = "subject_participants"
	StageCreated    Stage = "created"
)

const (
	subjectKeyPrefix = "subject:"
	anonymousKey     = "anonymous"
	maxAttempts      = 3
)

// Assignment is the outcome of matching one message
type Assignment struct {
	ThreadID string
	Stage    Stage
	Created  bool
	// Merged counts threads folded into ThreadID while reconciling
	Merged int
}

// Matcher places messages into threads through a ThreadStore. It is safe for
// concurrent use; messages that can share a thread are serialized on their
// common linkage keys.
type Matcher struct {
	store         core.ThreadStore
	textProcessor *utils.TextProcessor
	excerptLength int
	clock         core.Clock
	logger        *zap.Logger
	locks         *keyedLocks
}

// NewMatcher creates a new Matcher
func NewMatcher(store core.ThreadStore, textProcessor *utils.TextProcessor, excerptLength int, clock core.Clock, logger *zap.Logger) *Matcher {
	if clock == nil {
		clock = time.Now
	}
	return &Matcher{
		store:         store,
		textProcessor: textProcessor,
		excerptLength: excerptLength,
		clock:         clock,
		logger:        logger,
		locks:         newKeyedLocks(),
	}
}

// Assign returns the thread msg belongs to, appending it to a matching thread
// or creating a new one. label is recorded on the stored message reference.
func (m *Matcher) Assign(ctx context.Context, msg *core.NormalizedMessage, label core.Priority) (Assignment, error) {
	unlock := m.locks.Lock(lockKeys(msg))
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		assignment, err := m.assignLocked(ctx, msg, label)
		if err == nil {
			return assignment, nil
		}
		// A concurrent merge can remove the matched thread between lookup and append
		if !errors.Is(err, core.ErrThreadNotFound) {
			return Assignment{}, err
		}
		lastErr = err
		m.logger.Debug("Matched thread disappeared, retrying",
			zap.String("message_id", msg.MessageID),
			zap.Int("attempt", attempt+1))
	}
	return Assignment{}, fmt.Errorf("failed to assign message %q: %w", msg.MessageID, lastErr)
}

func (m *Matcher) assignLocked(ctx context.Context, msg *core.NormalizedMessage, label core.Priority) (Assignment, error) {
	thread, stage, err := m.match(ctx, msg)
	if err != nil {
		return Assignment{}, err
	}

	if thread != nil && stage == StageDuplicate {
		m.logger.Debug("Message already threaded",
			zap.String("message_id", msg.MessageID),
			zap.String("thread_id", thread.ID))
		return Assignment{ThreadID: thread.ID, Stage: stage}, nil
	}

	ref := m.messageRef(msg, label)
	assignment := Assignment{Stage: stage}
	if thread != nil {
		if err := m.store.Append(ctx, thread.ID, ref, m.clock()); err != nil {
			return Assignment{}, fmt.Errorf("failed to append message to thread %s: %w", thread.ID, err)
		}
		assignment.ThreadID = thread.ID
	} else {
		now := m.clock()
		id, err := m.store.Create(ctx, &core.Thread{
			ID:                uuid.NewString(),
			Subject:           msg.Subject,
			NormalizedSubject: msg.NormalizedSubject,
			CreatedAt:         now,
			LastUpdated:       now,
			Messages:          []core.MessageRef{ref},
		})
		if err != nil {
			return Assignment{}, fmt.Errorf("failed to create thread: %w", err)
		}
		assignment.ThreadID = id
		assignment.Stage = StageCreated
		assignment.Created = true
	}

	survivor, merged, err := m.reconcile(ctx, msg, assignment.ThreadID)
	if err != nil {
		return Assignment{}, err
	}
	assignment.ThreadID = survivor
	assignment.Merged = merged

	m.logger.Debug("Message threaded",
		zap.String("message_id", msg.MessageID),
		zap.String("thread_id", assignment.ThreadID),
		zap.String("stage", string(assignment.Stage)),
		zap.Int("merged", merged))

	return assignment, nil
}

// match runs the fallback chain and returns the first matching thread, or nil
func (m *Matcher) match(ctx context.Context, msg *core.NormalizedMessage) (*core.Thread, Stage, error) {
	type lookup struct {
		stage Stage
		skip  bool
		find  func() (*core.Thread, error)
	}

	linked := msg.LinkedIDs()
	emails := msg.ParticipantEmails()
	lookups := []lookup{
		{StageDuplicate, msg.MessageID == "", func() (*core.Thread, error) {
			return m.store.FindByMessageID(ctx, msg.MessageID)
		}},
		{StageInReplyTo, msg.InReplyTo == "", func() (*core.Thread, error) {
			return m.store.FindByMessageID(ctx, msg.InReplyTo)
		}},
		{StageReferences, len(msg.References) == 0, func() (*core.Thread, error) {
			return m.store.FindByAnyReference(ctx, msg.References)
		}},
		{StageReferrer, msg.MessageID == "", func() (*core.Thread, error) {
			return m.store.FindByReferrer(ctx, []string{msg.MessageID})
		}},
		{StageSibling, len(linked) == 0, func() (*core.Thread, error) {
			return m.store.FindByReferrer(ctx, linked)
		}},
		{StageSubject, msg.NormalizedSubject == "" || len(emails) == 0, func() (*core.Thread, error) {
			return m.store.FindBySubjectWithParticipantOverlap(ctx, msg.NormalizedSubject, emails)
		}},
	}

	for _, l := range lookups {
		if l.skip {
			continue
		}
		thread, err := l.find()
		if errors.Is(err, core.ErrThreadNotFound) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to look up thread by %s: %w", l.stage, err)
		}
		return thread, l.stage, nil
	}
	return nil, "", nil
}

// reconcile folds every other thread linked to msg into the earliest created one
func (m *Matcher) reconcile(ctx context.Context, msg *core.NormalizedMessage, threadID string) (string, int, error) {
	ids := msg.LinkedIDs()
	if msg.MessageID != "" {
		ids = append(ids, msg.MessageID)
	}
	if len(ids) == 0 {
		return threadID, 0, nil
	}

	threads, err := m.store.FindAllLinked(ctx, ids)
	if err != nil {
		return "", 0, fmt.Errorf("failed to find linked threads: %w", err)
	}
	if len(threads) < 2 {
		return threadID, 0, nil
	}

	sort.SliceStable(threads, func(i, j int) bool {
		if !threads[i].CreatedAt.Equal(threads[j].CreatedAt) {
			return threads[i].CreatedAt.Before(threads[j].CreatedAt)
		}
		return threads[i].ID < threads[j].ID
	})

	into := threads[0].ID
	for _, t := range threads[1:] {
		if err := m.store.Merge(ctx, into, t.ID); err != nil {
			return "", 0, fmt.Errorf("failed to merge thread %s into %s: %w", t.ID, into, err)
		}
		m.logger.Info("Merged duplicate thread",
			zap.String("into", into),
			zap.String("from", t.ID),
			zap.String("message_id", msg.MessageID))
	}
	return into, len(threads) - 1, nil
}

func (m *Matcher) messageRef(msg *core.NormalizedMessage, label core.Priority) core.MessageRef {
	return core.MessageRef{
		MessageID:  msg.MessageID,
		InReplyTo:  msg.InReplyTo,
		References: append([]string(nil), msg.References...),
		From:       msg.From,
		To:         append([]core.Participant(nil), msg.To...),
		Cc:         append([]core.Participant(nil), msg.Cc...),
		Bcc:        append([]core.Participant(nil), msg.Bcc...),
		Subject:    msg.Subject,
		Timestamp:  msg.Timestamp,
		Excerpt:    m.textProcessor.Excerpt(msg.CleanBody, m.excerptLength),
		Priority:   label,
	}
}

// lockKeys returns every key under which msg could meet another message
// destined for the same thread
func lockKeys(msg *core.NormalizedMessage) []string {
	keys := append([]string{msg.MessageID}, msg.LinkedIDs()...)
	if msg.NormalizedSubject != "" {
		keys = append(keys, subjectKeyPrefix+msg.NormalizedSubject)
	}
	keys = sortedUnique(keys)
	if len(keys) == 0 {
		return []string{anonymousKey}
	}
	return keys
}
