package summary

import (
	"context"
	"strings"
	"testing"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replies to every send with a fixed text.
type scriptedClient struct {
	reply string
	sent  [][]chat.Message
}

func (c *scriptedClient) Send(ctx context.Context, msgs []chat.Message) (*client.Stream, error) {
	c.sent = append(c.sent, msgs)
	frags := make(chan client.Fragment, 2)
	frags <- client.Fragment{Text: c.reply}
	frags <- client.Fragment{FinishReason: client.FinishStop}
	close(frags)
	return client.NewStream(frags, nil), nil
}

func (c *scriptedClient) CanPrefill() bool            { return false }
func (c *scriptedClient) Limits() client.TokenLimits  { return client.TokenLimits{} }

func longHistory(n int) []chat.Message {
	filler := strings.Repeat("words and more words ", 20)
	var msgs []chat.Message
	for i := 0; i < n; i++ {
		msgs = append(msgs, chat.User("question "+filler))
		msgs = append(msgs, chat.Assistant("answer "+filler))
	}
	return msgs
}

func TestTooBig(t *testing.T) {
	s := New(&scriptedClient{}, 100)
	assert.False(t, s.TooBig([]chat.Message{chat.User("short")}))
	assert.True(t, s.TooBig(longHistory(10)))
}

func TestSummarizeKeepsRecentTail(t *testing.T) {
	c := &scriptedClient{reply: "I asked you about the parser."}
	s := New(c, 100)

	history := longHistory(10)
	out, err := s.Summarize(context.Background(), history)
	require.NoError(t, err)

	require.NotEmpty(t, out)
	assert.Equal(t, chat.RoleUser, out[0].Role)
	assert.True(t, strings.HasPrefix(out[0].Content, summaryPrefix))
	assert.Contains(t, out[0].Content, "I asked you about the parser.")

	// the most recent exchange survives verbatim
	assert.Equal(t, history[len(history)-1], out[len(out)-1])
	assert.Less(t, len(out), len(history))
}

func TestStartAndJoin(t *testing.T) {
	c := &scriptedClient{reply: "I asked you things."}
	s := New(c, 100)

	s.Start(context.Background(), longHistory(10))
	condensed, ok := s.Join()
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(condensed[0].Content, summaryPrefix))

	// second join without a task is a no-op
	_, ok = s.Join()
	assert.False(t, ok)
}

func TestStartSkipsSmallHistory(t *testing.T) {
	c := &scriptedClient{reply: "unused"}
	s := New(c, 10000)

	s.Start(context.Background(), []chat.Message{chat.User("hi")})
	_, ok := s.Join()
	assert.False(t, ok)
	assert.Empty(t, c.sent)
}

func TestSplitAtTokenMidpointStartsTailOnUser(t *testing.T) {
	msgs := longHistory(4)
	head, tail := splitAtTokenMidpoint(msgs)
	require.NotEmpty(t, head)
	require.NotEmpty(t, tail)
	assert.Equal(t, chat.RoleUser, tail[0].Role)
	assert.Equal(t, len(msgs), len(head)+len(tail))
}
