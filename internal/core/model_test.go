package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizedMessageParticipantEmails(t *testing.T) {
	msg := &NormalizedMessage{
		From: Participant{Name: "Alice", Email: "alice@example.com"},
		To:   []Participant{{Email: "bob@example.com"}, {Email: "alice@example.com"}},
		Cc:   []Participant{{Name: "Nobody"}},
		Bcc:  []Participant{{Email: "carol@example.com"}},
	}

	assert.Equal(t, []string{"alice@example.com", "bob@example.com", "carol@example.com"}, msg.ParticipantEmails())
}

func TestNormalizedMessageLinkedIDs(t *testing.T) {
	msg := &NormalizedMessage{
		InReplyTo:  "b@x",
		References: []string{"a@x", "b@x", ""},
	}

	assert.Equal(t, []string{"b@x", "a@x"}, msg.LinkedIDs())
	assert.Empty(t, (&NormalizedMessage{}).LinkedIDs())
}

func TestPriorityRankAndParse(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Less(t, PriorityLow.Rank(), PriorityUnset.Rank())

	p, ok := ParsePriority("medium")
	assert.True(t, ok)
	assert.Equal(t, PriorityMedium, p)

	_, ok = ParsePriority("urgent")
	assert.False(t, ok)
}

func TestThreadCloneIsDeep(t *testing.T) {
	thread := &Thread{
		ID: "t1",
		Messages: []MessageRef{{
			MessageID:  "m1",
			References: []string{"r1"},
			To:         []Participant{{Email: "bob@example.com"}},
		}},
	}

	clone := thread.Clone()
	clone.Messages[0].References[0] = "changed"
	clone.Messages[0].To[0].Email = "changed"

	assert.Equal(t, "r1", thread.Messages[0].References[0])
	assert.Equal(t, "bob@example.com", thread.Messages[0].To[0].Email)
	assert.True(t, thread.ContainsMessage("m1"))
	assert.False(t, thread.ContainsMessage(""))
}
