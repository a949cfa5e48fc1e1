package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Hi"), genai.Text("gh")}},
		}},
	}
	text, err := responseText(resp)
	require.NoError(t, err)
	assert.Equal(t, "High", text)

	_, err = responseText(&genai.GenerateContentResponse{})
	assert.Error(t, err)
	_, err = responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{}}},
	})
	assert.Error(t, err)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(fmt.Errorf("call: %w", &googleapi.Error{Code: 429})))
	assert.True(t, isRateLimited(status.Error(codes.ResourceExhausted, "quota")))
	assert.False(t, isRateLimited(&googleapi.Error{Code: 400}))
	assert.False(t, isRateLimited(errors.New("boom")))
}

func TestNewGeminiClientRequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), "", "gemini-test", 5, 0, zap.NewNop())
	assert.Error(t, err)
}
