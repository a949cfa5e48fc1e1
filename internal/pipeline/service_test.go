package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/adapters/nlp"
	"github.com/mikey/thread-triage/internal/adapters/store"
	"github.com/mikey/thread-triage/internal/core"
	"github.com/mikey/thread-triage/internal/metrics"
	"github.com/mikey/thread-triage/internal/normalize"
	"github.com/mikey/thread-triage/internal/priority"
	"github.com/mikey/thread-triage/internal/summary"
	"github.com/mikey/thread-triage/internal/threading"
	"github.com/mikey/thread-triage/internal/utils"
)

// Tuesday, three days before Friday 2024-05-10
var now = time.Date(2024, 5, 7, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

type harness struct {
	service *Service
	store   core.ThreadStore
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, s core.ThreadStore, summarizer core.Summarizer, classifier core.PriorityClassifier) *harness {
	t.Helper()
	logger := zap.NewNop()
	tp := utils.NewTextProcessor(logger)
	scorer := priority.NewScorer(priority.DefaultTables(), nlp.NewBasicTagger(), nlp.NewVaderSentiment(), logger)
	if summarizer == nil {
		summarizer = summary.NewExtractive(3, logger)
	}
	if classifier == nil {
		classifier = priority.NewClassifier(scorer, fixedClock)
	}
	m := metrics.New(prometheus.NewRegistry())

	svc := NewService(
		normalize.NewNormalizer(logger, fixedClock),
		scorer,
		threading.NewMatcher(s, tp, 500, fixedClock, logger),
		s,
		summarizer,
		classifier,
		tp,
		m,
		fixedClock,
		logger,
		Settings{Workers: 4, SummaryMaxLength: 60},
	)
	return &harness{service: svc, store: s, metrics: m}
}

func rawMessage(id, inReplyTo, subject, from, to, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s>\r\n", id)
	if inReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: <%s>\r\nReferences: <%s>\r\n", inReplyTo, inReplyTo)
	}
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\n", from, to, subject)
	b.WriteString("Date: Mon, 6 May 2024 10:00:00 +0000\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func TestProcessThreadsReplies(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(zap.NewNop()), nil, nil)
	ctx := context.Background()

	first, err := h.service.Process(ctx, rawMessage("a@x", "", "Quarterly report", "alice@x.com", "bob@x.com",
		"The deadline for the report is this Friday. Please submit it ASAP."))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, "a@x", first.MessageID)
	assert.Equal(t, core.PriorityHigh, first.Breakdown.Label)
	assert.Equal(t, core.ScoringFull, first.Breakdown.Mode)

	reply, err := h.service.Process(ctx, rawMessage("b@x", "a@x", "Re: Quarterly report", "bob@x.com", "alice@x.com",
		"Thanks for the newsletter, just FYI."))
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, reply.ThreadID)
	assert.Equal(t, threading.StageInReplyTo, reply.Stage)
	assert.Equal(t, core.PriorityLow, reply.Breakdown.Label)

	thread, err := h.service.ThreadForMessage(ctx, "b@x")
	require.NoError(t, err)
	assert.Equal(t, first.ThreadID, thread.ID)
	assert.Equal(t, "quarterly report", thread.NormalizedSubject)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, core.PriorityHigh, thread.Messages[0].Priority)

	_, err = h.service.ThreadForMessage(ctx, "unknown@x")
	assert.ErrorIs(t, err, core.ErrThreadNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesTotal.WithLabelValues(string(threading.StageCreated))))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.MessagesTotal.WithLabelValues(string(threading.StageInReplyTo))))
}

// failingCreateStore refuses to create threads with a given subject
type failingCreateStore struct {
	*store.MemoryStore
	subject string
}

func (f failingCreateStore) Create(ctx context.Context, t *core.Thread) (string, error) {
	if t.Subject == f.subject {
		return "", errors.New("disk full")
	}
	return f.MemoryStore.Create(ctx, t)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	s := failingCreateStore{MemoryStore: store.NewMemoryStore(zap.NewNop()), subject: "boom"}
	h := newHarness(t, s, nil, nil)

	var raws [][]byte
	for i := 0; i < 10; i++ {
		subject := fmt.Sprintf("topic %d", i)
		if i == 3 {
			subject = "boom"
		}
		raws = append(raws, rawMessage(fmt.Sprintf("m%d@x", i), "", subject, "alice@x.com", "bob@x.com", "Hello there."))
	}

	results := h.service.ProcessBatch(context.Background(), raws)

	require.Len(t, results, 10)
	for i, r := range results {
		if i == 3 {
			assert.ErrorContains(t, r.Err, "disk full")
			continue
		}
		assert.NoError(t, r.Err)
		assert.Equal(t, fmt.Sprintf("m%d@x", i), r.MessageID)
	}

	threads, err := s.List(context.Background(), 0, false)
	require.NoError(t, err)
	assert.Len(t, threads, 9)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ErrorsTotal.WithLabelValues("process")))
}

func TestProcessBatchConcurrentReplies(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(zap.NewNop()), nil, nil)

	var raws [][]byte
	for i := 0; i < 16; i++ {
		raws = append(raws, rawMessage(fmt.Sprintf("r%d@x", i), "root@x", "Re: plan", fmt.Sprintf("u%d@x.com", i), "team@x.com", "Sounds good."))
	}

	results := h.service.ProcessBatch(context.Background(), raws)

	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, results[0].ThreadID, r.ThreadID)
	}
}

func TestProcessBatchCancelled(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(zap.NewNop()), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := h.service.ProcessBatch(ctx, [][]byte{rawMessage("a@x", "", "s", "a@x.com", "b@x.com", "Hi.")})

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestRefreshThreads(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(zap.NewNop()), nil, nil)
	ctx := context.Background()

	urgent, err := h.service.Process(ctx, rawMessage("a@x", "", "Report", "alice@x.com", "bob@x.com",
		"The deadline for the report is this Friday. Please submit it ASAP."))
	require.NoError(t, err)
	calm, err := h.service.Process(ctx, rawMessage("n@x", "", "News", "news@x.com", "bob@x.com",
		"Thanks for the newsletter, just FYI."))
	require.NoError(t, err)

	results, err := h.service.RefreshThreads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.False(t, r.Fallback)
	}

	thread, err := h.store.Get(ctx, urgent.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, core.PriorityHigh, thread.Priority)
	assert.Equal(t, "The deadline for the report is this Friday. Please submit it ASAP.", thread.Summary)

	threads, err := h.service.Threads(ctx, 10)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, urgent.ThreadID, threads[0].ID)
	assert.Equal(t, calm.ThreadID, threads[1].ID)
}

type failingSummarizer struct{}

func (failingSummarizer) Summarize(context.Context, []core.MessageRef) (string, error) {
	return "", errors.New("model offline")
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string) (core.Priority, error) {
	return "", core.ErrInvalidLabel
}

func (failingClassifier) Name() string { return "broken" }

func TestRefreshThreadsFallbacks(t *testing.T) {
	h := newHarness(t, store.NewMemoryStore(zap.NewNop()), failingSummarizer{}, failingClassifier{})
	ctx := context.Background()

	res, err := h.service.Process(ctx, rawMessage("a@x", "", "Report", "alice@x.com", "bob@x.com",
		"Please submit the signed contract urgently, the deadline is tomorrow and legal is waiting."))
	require.NoError(t, err)

	results, err := h.service.RefreshThreads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Placeholder)
	assert.True(t, results[0].Fallback)
	assert.NoError(t, results[0].Err)

	thread, err := h.store.Get(ctx, res.ThreadID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(thread.Summary), 60)
	assert.True(t, strings.HasPrefix(thread.Summary, "Please submit the signed contract"))
	assert.Equal(t, core.PriorityHigh, thread.Priority)
}

func TestThreadsOrdersByPriority(t *testing.T) {
	s := store.NewMemoryStore(zap.NewNop())
	h := newHarness(t, s, nil, nil)
	ctx := context.Background()

	labels := map[string]core.Priority{"low": core.PriorityLow, "none": core.PriorityUnset, "high": core.PriorityHigh, "mid": core.PriorityMedium}
	for i, id := range []string{"low", "none", "high", "mid"} {
		_, err := s.Create(ctx, &core.Thread{ID: id, CreatedAt: now, LastUpdated: now.Add(time.Duration(i) * time.Minute), Priority: labels[id]})
		require.NoError(t, err)
	}

	threads, err := h.service.Threads(ctx, 0)
	require.NoError(t, err)

	var ids []string
	for _, th := range threads {
		ids = append(ids, th.ID)
	}
	assert.Equal(t, []string{"high", "mid", "low", "none"}, ids)
}
