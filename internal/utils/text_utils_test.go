package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExcerpt(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"short", "  hello world ", 50, "hello world"},
		{"no limit", "hello world", 0, "hello world"},
		{"word boundary", "the quick brown fox jumps", 16, "the quick..."},
		{"tiny limit", "abcdef", 3, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tp.Excerpt(tt.text, tt.max))
		})
	}
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.Excerpt(strings.Repeat("é", 20), 10)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 10)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))

	got := tp.TruncateText("日本語テキスト", 4)
	assert.True(t, strings.HasPrefix(got, "日\n"))
	assert.Contains(t, got, "truncated")
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ab", tp.ProcessText("a\xffb", 10))
}
