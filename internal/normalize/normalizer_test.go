package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

var fixedNow = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(zap.NewNop(), func() time.Time { return fixedNow })
}

const replyMessage = `Message-ID: <abc@example.com>
Date: Mon, 14 Mar 2022 10:00:00 -0700
From: "Alice Smith" <Alice@Example.com>
To: bob@example.com, "Doe, Carol" <carol@example.com>
Cc: Dan Jones/ENRON@enronXgate
Subject: Re: Re:  Budget   Q3
In-Reply-To: <parent@example.com>
References: <root@example.com> <parent@example.com>

Hi Bob,

Please review the budget at https://example.com/b by Friday.
Call me at +1 (555) 123-4567 or mail alice@example.com.

> old quoted text
-----Original Message-----
From: Bob
Sent: Monday
Older content here.

Thanks,
Alice
`

func TestNormalizeFullMessage(t *testing.T) {
	msg := newTestNormalizer().Normalize([]byte(replyMessage))

	assert.Equal(t, "abc@example.com", msg.MessageID)
	assert.Equal(t, "parent@example.com", msg.InReplyTo)
	assert.Equal(t, []string{"root@example.com", "parent@example.com"}, msg.References)

	assert.Equal(t, core.Participant{Name: "Alice Smith", Email: "alice@example.com"}, msg.From)
	assert.Equal(t, []core.Participant{
		{Email: "bob@example.com"},
		{Name: "Doe, Carol", Email: "carol@example.com"},
	}, msg.To)
	assert.Equal(t, []core.Participant{{Name: "Dan Jones", Email: "dan jones/enron@enronxgate"}}, msg.Cc)

	assert.Equal(t, "Re: Re:  Budget   Q3", msg.Subject)
	assert.Equal(t, "re: budget q3", msg.NormalizedSubject)

	assert.True(t, msg.TimestampParsed)
	assert.True(t, msg.Timestamp.Equal(time.Date(2022, 3, 14, 17, 0, 0, 0, time.UTC)))

	assert.Equal(t, "Hi Bob, Please review the budget at by Friday. Call me at or mail Older content here.", msg.CleanBody)
}

func TestNormalizeWithoutHeadersFailsOpen(t *testing.T) {
	msg := newTestNormalizer().Normalize([]byte("Just a plain note without headers.\nSecond line."))

	assert.Empty(t, msg.MessageID)
	assert.Empty(t, msg.Subject)
	assert.Empty(t, msg.From.Email)
	assert.False(t, msg.TimestampParsed)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.Equal(t, "Just a plain note without headers. Second line.", msg.CleanBody)
}

func TestNormalizeUnparseableDate(t *testing.T) {
	raw := "From: a@example.com\nDate: sometime last week\nSubject: hi\n\nbody"
	msg := newTestNormalizer().Normalize([]byte(raw))

	assert.False(t, msg.TimestampParsed)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.Equal(t, "body", msg.CleanBody)
}

func TestNormalizeProviderNameHeaders(t *testing.T) {
	raw := strings.Join([]string{
		"From: jeff.skilling@enron.com",
		"To: kenneth.lay@enron.com, greg.whalley@enron.com",
		"X-From: Jeff Skilling",
		"X-To: Kenneth Lay <Kenneth Lay/ENRON@ENRON>, Greg Whalley",
		"Subject: FW: Q3 numbers",
		"",
		"See below.",
	}, "\n")

	msg := newTestNormalizer().Normalize([]byte(raw))

	assert.Equal(t, core.Participant{Name: "Jeff Skilling", Email: "jeff.skilling@enron.com"}, msg.From)
	require.Len(t, msg.To, 2)
	assert.Equal(t, "Kenneth Lay", msg.To[0].Name)
	assert.Equal(t, "greg.whalley@enron.com", msg.To[1].Email)
	assert.Equal(t, "Greg Whalley", msg.To[1].Name)
	assert.Equal(t, "q3 numbers", msg.NormalizedSubject)
}

func TestNormalizeMultipartMessage(t *testing.T) {
	raw := strings.Join([]string{
		"From: a@example.com",
		"Subject: =?UTF-8?B?SGVsbG8gV29ybGQ=?=",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Meeting moved to Thurs=",
		"day.",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>Meeting moved to <b>Thursday</b>.</p>",
		"--b1--",
		"",
	}, "\r\n")

	msg := newTestNormalizer().Normalize([]byte(raw))

	assert.Equal(t, "Hello World", msg.Subject)
	assert.Equal(t, "Meeting moved to Thursday.", msg.CleanBody)
}

func TestNormalizeHeadersMap(t *testing.T) {
	headers := map[string][]string{
		"message-id":  {"<m1@x>"},
		"FROM":        {"Bob <BOB@X.ORG>"},
		"subject":     {"Fwd: Launch plan"},
		"references":  {"a@x b@x"},
		"in-reply-to": {"b@x"},
	}

	msg := newTestNormalizer().NormalizeHeaders(headers, "Launch is Tuesday.\n\n-- \nBob")

	assert.Equal(t, "m1@x", msg.MessageID)
	assert.Equal(t, "b@x", msg.InReplyTo)
	assert.Equal(t, []string{"a@x", "b@x"}, msg.References)
	assert.Equal(t, core.Participant{Name: "Bob", Email: "bob@x.org"}, msg.From)
	assert.Equal(t, "launch plan", msg.NormalizedSubject)
	assert.Equal(t, "Launch is Tuesday.", msg.CleanBody)
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Re: Budget Q3", "re: budget q3"},
		{"Budget Q3", "budget q3"},
		{"FWD:   Hello   World ", "hello world"},
		{"fw:x", "x"},
		{"RE : spaced", "spaced"},
		{"Reply: hi", "reply: hi"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSubject(tt.in))
		})
	}
}

func TestNormalizeSubjectIsDeterministic(t *testing.T) {
	assert.Equal(t, NormalizeSubject("Re:  Status  "), NormalizeSubject("Re:  Status  "))
}

func TestParseAddressList(t *testing.T) {
	got := ParseAddressList(`"Smith, John" <JOHN@X.COM>, broken <<>>, ,jane@y.org`)

	assert.Equal(t, []core.Participant{
		{Name: "Smith, John", Email: "john@x.com"},
		{Name: "broken"},
		{Email: "jane@y.org"},
	}, got)
	assert.Empty(t, ParseAddressList(""))
}

func TestParseAddressListInternalAddresses(t *testing.T) {
	got := ParseAddressList(`Jeff Skilling/Corp/Enron@ENRON, "Lay, Ken" <ken.lay@enron.com>, jdoe@ENRON, Kenneth Lay <Kenneth Lay/ENRON@ENRON>`)

	assert.Equal(t, []core.Participant{
		{Name: "Jeff Skilling", Email: "jeff skilling/corp/enron@enron"},
		{Name: "Lay, Ken", Email: "ken.lay@enron.com"},
		{Email: "jdoe@enron"},
		{Name: "Kenneth Lay", Email: "kenneth lay/enron@enron"},
	}, got)
}

func TestCleanBody(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"dash signature", "Line one.\n--\nSig stuff", "Line one."},
		{"salutation paragraph", "Please see attached.\n\nRegards,\nBob", "Please see attached."},
		{"salutation without content", "Thanks!", "Thanks!"},
		{"inline thanks is kept", "Thanks for the newsletter, just FYI.", "Thanks for the newsletter, just FYI."},
		{"quoted lines", "Sounds good.\n> earlier\n>> older", "Sounds good."},
		{"symbols", "Cost: $500 (approx) & more", "Cost 500 approx more"},
		{"links", "Docs at www.example.com/x and http://a.b/c.", "Docs at and"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanBody(tt.in))
		})
	}
}

func TestParseDate(t *testing.T) {
	ts, ok := ParseDate("Mon, 14 May 2001 16:39:00 -0700 (PDT)")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2001, 5, 14, 23, 39, 0, 0, time.UTC)))

	_, ok = ParseDate("not a date")
	assert.False(t, ok)

	_, ok = ParseDate("")
	assert.False(t, ok)
}
