package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

type fakeServer struct {
	mu      sync.Mutex
	keys    []string
	systems []string
	status  int
}

func (f *fakeServer) handler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.keys = append(f.keys, r.Header.Get("Authorization"))
	if len(req.Messages) > 0 {
		f.systems = append(f.systems, req.Messages[0].Content)
	}
	status := f.status
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down","type":"requests","code":"rate_limit_exceeded"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","model":"` + req.Model + `",` +
		`"choices":[{"index":0,"message":{"role":"assistant","content":"High"},"finish_reason":"stop"}]}`))
}

func newFake(t *testing.T, status int) (*fakeServer, string) {
	t.Helper()
	f := &fakeServer{status: status}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", f.handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv.URL + "/v1/"
}

func TestCompleteRotatesKeys(t *testing.T) {
	fake, url := newFake(t, 0)
	client, err := NewOpenAIClient([]string{"key-a", "key-b"}, url, "gpt-test", 5, 0, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		reply, err := client.Complete(context.Background(), "system text", "prompt")
		require.NoError(t, err)
		assert.Equal(t, "High", reply)
	}

	assert.Equal(t, []string{"Bearer key-a", "Bearer key-b", "Bearer key-a"}, fake.keys)
	assert.Equal(t, "system text", fake.systems[0])
	assert.Equal(t, "openai", client.Name())
}

func TestCompleteMapsRateLimit(t *testing.T) {
	_, url := newFake(t, http.StatusTooManyRequests)
	client, err := NewOpenAIClient([]string{"key"}, url, "gpt-test", 5, 0, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "p")
	assert.ErrorIs(t, err, core.ErrRateLimited)
}

func TestCompleteOtherErrors(t *testing.T) {
	_, url := newFake(t, http.StatusUnauthorized)
	client, err := NewOpenAIClient([]string{"key"}, url, "gpt-test", 5, 0, zap.NewNop())
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "s", "p")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
}

func TestNewOpenAIClientRequiresKeys(t *testing.T) {
	_, err := NewOpenAIClient(nil, "", "gpt-test", 5, 0, zap.NewNop())
	assert.Error(t, err)
}
