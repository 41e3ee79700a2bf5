// Package stream accumulates a model response from incremental fragments.
// Exactly one stream is active per turn, so consumption is sequential and
// cancellation is a plain loop exit while awaiting the next fragment.
package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/Chitius/aider/internal/client"
)

// ErrInterrupted signals that the user cancelled the stream mid-turn.
var ErrInterrupted = errors.New("stream interrupted")

// Accumulator consumes response fragments and exposes the running full
// text, a truncation signal, and the merged structured-call payload.
type Accumulator struct {
	text      strings.Builder
	call      map[string]string
	truncated bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds one fragment into the accumulated state.
func (a *Accumulator) Add(frag client.Fragment) {
	a.text.WriteString(frag.Text)
	for k, v := range frag.Call {
		if a.call == nil {
			a.call = make(map[string]string)
		}
		a.call[k] += v
	}
	if frag.FinishReason == client.FinishLength {
		a.truncated = true
	}
}

// Consume drains the stream until it closes, the upstream reports an
// error, or ctx is cancelled. A cancelled ctx yields ErrInterrupted.
func (a *Accumulator) Consume(ctx context.Context, s *client.Stream) error {
	for {
		select {
		case <-ctx.Done():
			s.Cancel()
			return ErrInterrupted
		case frag, ok := <-s.Fragments:
			if !ok {
				return nil
			}
			if frag.Err != nil {
				return frag.Err
			}
			a.Add(frag)
		}
	}
}

// Text returns the accumulated response text so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Call returns the merged structured-call payload, or nil if none arrived.
func (a *Accumulator) Call() map[string]string {
	return a.call
}

// HasCall reports whether any structured-call fragment arrived.
func (a *Accumulator) HasCall() bool {
	return len(a.call) > 0
}

// Truncated reports whether the upstream signalled a length-based stop.
func (a *Accumulator) Truncated() bool {
	return a.truncated
}

// Reset clears accumulated text and call state but keeps nothing else;
// used when a length-truncated send is retried with a prefill seed.
func (a *Accumulator) Reset() {
	a.text.Reset()
	a.call = nil
	a.truncated = false
}
