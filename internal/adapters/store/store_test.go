package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

var base = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func forEachStore(t *testing.T, fn func(t *testing.T, s core.ThreadStore)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore(zap.NewNop())
		defer s.Close()
		fn(t, s)
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := NewSQLiteStore(":memory:", zap.NewNop())
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func ref(id, inReplyTo string, refs []string, from string, to ...string) core.MessageRef {
	r := core.MessageRef{
		MessageID:  id,
		InReplyTo:  inReplyTo,
		References: refs,
		From:       core.Participant{Name: from, Email: from},
		Subject:    "Budget",
		Timestamp:  base,
		Excerpt:    "excerpt of " + id,
	}
	for _, addr := range to {
		r.To = append(r.To, core.Participant{Email: addr})
	}
	return r
}

func newThread(t *testing.T, s core.ThreadStore, id, subject string, created time.Time, msgs ...core.MessageRef) string {
	t.Helper()
	got, err := s.Create(context.Background(), &core.Thread{
		ID:                id,
		Subject:           subject,
		NormalizedSubject: subject,
		CreatedAt:         created,
		LastUpdated:       created,
		Messages:          msgs,
	})
	require.NoError(t, err)
	return got
}

func TestCreateAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		id := newThread(t, s, "t1", "budget", base, ref("a@x", "", nil, "alice@x", "bob@x"))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "t1", got.ID)
		assert.Equal(t, "budget", got.NormalizedSubject)
		assert.True(t, base.Equal(got.CreatedAt))
		assert.Equal(t, core.PriorityUnset, got.Priority)
		assert.Empty(t, got.Summary)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "a@x", got.Messages[0].MessageID)
		assert.Equal(t, "bob@x", got.Messages[0].To[0].Email)

		_, err = s.Get(ctx, "missing")
		assert.ErrorIs(t, err, core.ErrThreadNotFound)
	})
}

func TestCreateGeneratesID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		id := newThread(t, s, "", "budget", base)
		assert.NotEmpty(t, id)
	})
}

func TestAppendKeepsOrderAndTouches(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		id := newThread(t, s, "t1", "budget", base, ref("a@x", "", nil, "alice@x"))

		later := base.Add(time.Hour)
		require.NoError(t, s.Append(ctx, id, ref("b@x", "a@x", []string{"a@x"}, "bob@x"), later))
		require.NoError(t, s.Append(ctx, id, ref("c@x", "b@x", []string{"a@x", "b@x"}, "carol@x"), later))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, []string{"a@x", "b@x", "c@x"}, []string{
			got.Messages[0].MessageID, got.Messages[1].MessageID, got.Messages[2].MessageID,
		})
		assert.True(t, later.Equal(got.LastUpdated))

		err = s.Append(ctx, "missing", ref("d@x", "", nil, "dan@x"), later)
		assert.ErrorIs(t, err, core.ErrThreadNotFound)
	})
}

func TestLookups(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		newThread(t, s, "t1", "budget", base, ref("a@x", "", nil, "alice@x", "bob@x"))
		newThread(t, s, "t2", "budget", base.Add(time.Minute), ref("b@x", "root@x", []string{"root@x"}, "carol@x"))

		got, err := s.FindByMessageID(ctx, "a@x")
		require.NoError(t, err)
		assert.Equal(t, "t1", got.ID)

		_, err = s.FindByMessageID(ctx, "")
		assert.ErrorIs(t, err, core.ErrThreadNotFound)

		got, err = s.FindByAnyReference(ctx, []string{"zzz", "b@x"})
		require.NoError(t, err)
		assert.Equal(t, "t2", got.ID)

		got, err = s.FindByReferrer(ctx, []string{"root@x"})
		require.NoError(t, err)
		assert.Equal(t, "t2", got.ID)

		_, err = s.FindByReferrer(ctx, []string{"a@x"})
		assert.ErrorIs(t, err, core.ErrThreadNotFound)

		got, err = s.FindBySubjectWithParticipantOverlap(ctx, "budget", []string{"bob@x"})
		require.NoError(t, err)
		assert.Equal(t, "t1", got.ID)

		_, err = s.FindBySubjectWithParticipantOverlap(ctx, "budget", []string{"eve@x"})
		assert.ErrorIs(t, err, core.ErrThreadNotFound)

		_, err = s.FindBySubjectWithParticipantOverlap(ctx, "other", []string{"bob@x"})
		assert.ErrorIs(t, err, core.ErrThreadNotFound)
	})
}

func TestSubjectLookupPrefersMostRecentlyUpdated(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		newThread(t, s, "old", "budget", base, ref("a@x", "", nil, "alice@x"))
		newThread(t, s, "new", "budget", base.Add(time.Minute), ref("b@x", "", nil, "alice@x"))

		got, err := s.FindBySubjectWithParticipantOverlap(ctx, "budget", []string{"alice@x"})
		require.NoError(t, err)
		assert.Equal(t, "new", got.ID)

		require.NoError(t, s.Append(ctx, "old", ref("c@x", "", nil, "alice@x"), base.Add(time.Hour)))

		got, err = s.FindBySubjectWithParticipantOverlap(ctx, "budget", []string{"alice@x"})
		require.NoError(t, err)
		assert.Equal(t, "old", got.ID)
	})
}

func TestFindAllLinked(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		newThread(t, s, "child", "x", base.Add(time.Minute), ref("c@x", "b@x", []string{"a@x", "b@x"}, "carol@x"))
		newThread(t, s, "parent", "x", base, ref("a@x", "", nil, "alice@x"))
		newThread(t, s, "other", "x", base, ref("z@x", "", nil, "zed@x"))

		threads, err := s.FindAllLinked(ctx, []string{"b@x", "a@x"})
		require.NoError(t, err)
		require.Len(t, threads, 2)
		assert.Equal(t, "parent", threads[0].ID)
		assert.Equal(t, "child", threads[1].ID)

		threads, err = s.FindAllLinked(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, threads)
	})
}

func TestListOrdering(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		newThread(t, s, "first", "a", base)
		newThread(t, s, "second", "b", base.Add(time.Minute))
		newThread(t, s, "third", "c", base.Add(2*time.Minute))
		require.NoError(t, s.Append(ctx, "first", ref("m@x", "", nil, "x@x"), base.Add(time.Hour)))

		recent, err := s.List(ctx, 2, true)
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "first", recent[0].ID)
		assert.Equal(t, "third", recent[1].ID)

		all, err := s.List(ctx, 0, false)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "first", all[0].ID)
		assert.Equal(t, "third", all[2].ID)
	})
}

func TestUpdates(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		id := newThread(t, s, "t1", "a", base)

		require.NoError(t, s.UpdateSummary(ctx, id, "A short summary."))
		require.NoError(t, s.UpdatePriority(ctx, id, core.PriorityHigh))
		require.NoError(t, s.UpdatePriority(ctx, id, core.PriorityHigh))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "A short summary.", got.Summary)
		assert.Equal(t, core.PriorityHigh, got.Priority)

		assert.ErrorIs(t, s.UpdateSummary(ctx, "missing", "x"), core.ErrThreadNotFound)
		assert.ErrorIs(t, s.UpdatePriority(ctx, "missing", core.PriorityLow), core.ErrThreadNotFound)
	})
}

func TestMerge(t *testing.T) {
	forEachStore(t, func(t *testing.T, s core.ThreadStore) {
		ctx := context.Background()
		newThread(t, s, "into", "a", base, ref("a@x", "", nil, "alice@x"))
		newThread(t, s, "from", "a", base.Add(time.Minute),
			ref("b@x", "a@x", []string{"a@x"}, "bob@x"),
			ref("c@x", "b@x", []string{"a@x", "b@x"}, "carol@x"))

		require.NoError(t, s.Merge(ctx, "into", "from"))

		got, err := s.Get(ctx, "into")
		require.NoError(t, err)
		require.Len(t, got.Messages, 3)
		assert.Equal(t, "c@x", got.Messages[2].MessageID)
		assert.True(t, base.Add(time.Minute).Equal(got.LastUpdated))

		_, err = s.Get(ctx, "from")
		assert.ErrorIs(t, err, core.ErrThreadNotFound)

		found, err := s.FindByMessageID(ctx, "b@x")
		require.NoError(t, err)
		assert.Equal(t, "into", found.ID)

		found, err = s.FindBySubjectWithParticipantOverlap(ctx, "a", []string{"carol@x"})
		require.NoError(t, err)
		assert.Equal(t, "into", found.ID)

		assert.ErrorIs(t, s.Merge(ctx, "into", "from"), core.ErrThreadNotFound)
		assert.NoError(t, s.Merge(ctx, "into", "into"))
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()
	id := newThread(t, s, "t1", "a", base, ref("a@x", "", []string{"r@x"}, "alice@x"))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	got.Messages[0].References[0] = "mutated"
	got.Summary = "mutated"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "r@x", again.Messages[0].References[0])
	assert.Empty(t, again.Summary)
}
