package client

import (
	"context"

	"github.com/Chitius/aider/internal/chat"
)

// FinishReason describes why the model stopped emitting fragments.
type FinishReason string

const (
	// FinishStop is a normal end of response.
	FinishStop FinishReason = "stop"
	// FinishLength means the response was truncated at the output limit.
	FinishLength FinishReason = "length"
)

// Fragment is one incremental piece of a streamed response: plain text,
// a partial structured-call payload merged key-by-key, or a terminal error.
type Fragment struct {
	Text         string
	Call         map[string]string
	FinishReason FinishReason
	Err          error
}

// TokenLimits describes a model's context window.
type TokenLimits struct {
	MaxInput  int
	MaxOutput int
}

// Client is the model transport. One logical stream is active per turn;
// fragments are consumed sequentially by the accumulator.
type Client interface {
	// Send delivers the assembled messages and returns the response stream.
	Send(ctx context.Context, msgs []chat.Message) (*Stream, error)

	// CanPrefill reports whether the model accepts a trailing assistant
	// message as a seed to continue a length-truncated response.
	CanPrefill() bool

	// Limits returns the model's token limits.
	Limits() TokenLimits
}

// Stream carries response fragments for one send.
type Stream struct {
	Fragments <-chan Fragment

	cancel context.CancelFunc
}

// NewStream wraps a fragment channel with a cancellation hook.
func NewStream(fragments <-chan Fragment, cancel context.CancelFunc) *Stream {
	return &Stream{Fragments: fragments, cancel: cancel}
}

// Cancel stops the underlying request. Safe to call more than once.
func (s *Stream) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
