// Package summary condenses old chat history in the background so the
// conversation stays under the model's context budget. At most one
// condensation task runs at a time and its result is always collected
// before the next request is assembled.
package summary

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/client"
	"github.com/Chitius/aider/internal/logging"
)

const summarizePrompt = `*Briefly* summarize this partial conversation about programming.
Include less detail about older parts and more detail about the most recent messages.
Start a new paragraph every time the topic changes!

This is only part of a longer conversation so *DO NOT* conclude the summary with language like "Finally, ...". Because the conversation continues after the summary.
The summary *MUST* include the function names, libraries, packages that are being discussed.
The summary *MUST* include the filenames that are being referenced!
The summaries *MUST NOT* include fenced code blocks!

Phrase the summary with the USER in first person, telling the ASSISTANT about the conversation.
Write *as* the user.
The user should refer to the assistant as *you*.
Start the summary with "I asked you...".`

const summaryPrefix = "I spoke to you previously about a number of things.\n"

// Summarizer condenses chat history with the model once it grows past
// maxTokens.
type Summarizer struct {
	client    client.Client
	maxTokens int

	// result is the single-slot channel of the in-flight task, nil when
	// idle. Only the conversational goroutine touches it.
	result chan []chat.Message
}

// New creates a Summarizer. History above maxTokens (estimated) is
// considered too big and triggers condensation.
func New(c client.Client, maxTokens int) *Summarizer {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Summarizer{client: c, maxTokens: maxTokens}
}

// TooBig reports whether the history needs condensing.
func (s *Summarizer) TooBig(msgs []chat.Message) bool {
	return chat.EstimateMessageTokens(msgs) > s.maxTokens
}

// Start launches a background condensation of msgs if they are too big.
// Any previous task is collected first so at most one runs.
func (s *Summarizer) Start(ctx context.Context, msgs []chat.Message) {
	if !s.TooBig(msgs) {
		return
	}
	s.Join()

	snapshot := slices.Clone(msgs)
	out := make(chan []chat.Message, 1)
	s.result = out

	go func() {
		condensed, err := s.Summarize(ctx, snapshot)
		if err != nil {
			logging.Warn("history summarization failed", "error", err)
			out <- nil
			return
		}
		out <- condensed
	}()
}

// Join waits for the in-flight task, if any, and returns the condensed
// history. ok is false when no task ran or the task failed, in which case
// the caller keeps its current history.
func (s *Summarizer) Join() (condensed []chat.Message, ok bool) {
	if s.result == nil {
		return nil, false
	}
	condensed = <-s.result
	s.result = nil
	return condensed, condensed != nil
}

// Summarize condenses msgs synchronously: the older half is replaced by a
// model-written summary and the recent tail is kept verbatim.
func (s *Summarizer) Summarize(ctx context.Context, msgs []chat.Message) ([]chat.Message, error) {
	head, tail := splitAtTokenMidpoint(msgs)
	if len(head) == 0 {
		return msgs, nil
	}

	text, err := s.summarizeText(ctx, chat.Transcript(head))
	if err != nil {
		return nil, err
	}

	out := []chat.Message{
		chat.User(summaryPrefix + text),
		chat.Assistant("Ok."),
	}
	return append(out, tail...), nil
}

func (s *Summarizer) summarizeText(ctx context.Context, transcript string) (string, error) {
	req := []chat.Message{
		chat.System(summarizePrompt),
		chat.User(transcript),
	}
	stream, err := s.client.Send(ctx, req)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}

	var b strings.Builder
	for frag := range stream.Fragments {
		if frag.Err != nil {
			return "", fmt.Errorf("summarize stream: %w", frag.Err)
		}
		b.WriteString(frag.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("summarize returned no content")
	}
	return text, nil
}

// splitAtTokenMidpoint divides the history so the tail holds roughly half
// the tokens. The tail is extended backwards to start on a user message so
// the kept exchange stays coherent.
func splitAtTokenMidpoint(msgs []chat.Message) (head, tail []chat.Message) {
	total := chat.EstimateMessageTokens(msgs)
	half := total / 2

	running := 0
	split := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		running += chat.EstimateMessageTokens(msgs[i : i+1])
		if running > half {
			split = i + 1
			break
		}
		split = i
	}

	for split > 0 && split < len(msgs) && msgs[split].Role != chat.RoleUser {
		split--
	}

	return msgs[:split], msgs[split:]
}
