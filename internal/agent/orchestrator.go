// Package agent drives the conversation: it assembles each request, streams
// the response, extracts and gates edits, runs lint and tests, commits, and
// decides whether to reflect an error back to the model without new user
// input.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/client"
	"github.com/Chitius/aider/internal/coder"
	"github.com/Chitius/aider/internal/config"
	"github.com/Chitius/aider/internal/gate"
	"github.com/Chitius/aider/internal/lint"
	"github.com/Chitius/aider/internal/logging"
	"github.com/Chitius/aider/internal/prompt"
	"github.com/Chitius/aider/internal/stream"
	"github.com/Chitius/aider/internal/summary"
	"github.com/Chitius/aider/internal/undo"
)

// State names the orchestrator's position in a turn.
type State int

const (
	StateIdle State = iota
	StateSending
	StateExtracting
	StateGating
	StateLinting
	StateTesting
	StateCommitting
	StateReflecting
	StateInterrupted
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateSending:     "sending",
	StateExtracting:  "extracting",
	StateGating:      "gating",
	StateLinting:     "linting",
	StateTesting:     "testing",
	StateCommitting:  "committing",
	StateReflecting:  "reflecting",
	StateInterrupted: "interrupted",
	StateAborted:     "aborted",
}

func (s State) String() string { return stateNames[s] }

// TurnOutcome is the tagged result of one send cycle. Exactly one applies
// per attempt.
type TurnOutcome int

const (
	OutcomeContent TurnOutcome = iota
	OutcomeStructuredCall
	OutcomeInterrupted
	OutcomeContextExhausted
	OutcomeMalformed
	OutcomeAborted
)

// ReflectionState tracks the automatic follow-up loop for one turn.
// Count never exceeds Max; hitting the bound stops the turn with a
// diagnostic instead of a silent retry.
type ReflectionState struct {
	Pending string
	Count   int
	Max     int
}

// add queues a reflection payload, concatenating in arrival order when more
// than one accrues in a single cycle.
func (r *ReflectionState) add(msg string) {
	if r.Pending == "" {
		r.Pending = msg
		return
	}
	r.Pending += "\n\n" + msg
}

// IO is the user-facing surface the orchestrator talks to.
type IO interface {
	Confirm(question string) bool
	ToolOutput(messages ...string)
	ToolError(message string)
	Print(text string)
	AssistantOutput(content string)
}

// VCS is the repository collaborator. A nil VCS means no repository.
type VCS interface {
	gate.VCS
	TrackedFiles(ctx context.Context) ([]string, error)
	DiffCommit(ctx context.Context, hash string) (string, error)
}

// Checker runs the configured lint and test commands.
type Checker interface {
	Lint(ctx context.Context, command, relPath string) *lint.Result
	Test(ctx context.Context, command string) *lint.Result
}

// Orchestrator owns the session state: history, file context, and the
// per-turn machine.
type Orchestrator struct {
	cfg       *config.Config
	client    client.Client
	io        IO
	files     *chat.FileContext
	engine    *coder.Engine
	assembler *prompt.Assembler
	tpl       prompt.Templates
	gate      *gate.Gate
	repo      VCS
	checker   Checker
	summarize *summary.Summarizer
	undo      *undo.Stack

	sessionID string
	state     State

	done []chat.Message // settled history, condensed by the summarizer
	cur  []chat.Message // current turn

	reflection ReflectionState
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Config     *config.Config
	Client     client.Client
	IO         IO
	Files      *chat.FileContext
	Engine     *coder.Engine
	Assembler  *prompt.Assembler
	Templates  prompt.Templates
	Gate       *gate.Gate
	Repo       VCS // nil when outside a repository
	Checker    Checker
	Summarizer *summary.Summarizer
	Undo       *undo.Stack
}

// New creates an Orchestrator in the Idle state.
func New(d Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:       d.Config,
		client:    d.Client,
		io:        d.IO,
		files:     d.Files,
		engine:    d.Engine,
		assembler: d.Assembler,
		tpl:       d.Templates,
		gate:      d.Gate,
		repo:      d.Repo,
		checker:   d.Checker,
		summarize: d.Summarizer,
		undo:      d.Undo,
		sessionID: uuid.NewString(),
		state:     StateIdle,
	}
	logging.Info("session started", "session", o.sessionID, "model", d.Config.Model.Name, "format", d.Config.Edit.Format)
	return o
}

// State returns the current machine state.
func (o *Orchestrator) State() State { return o.state }

// Reflection returns a copy of the current reflection state.
func (o *Orchestrator) Reflection() ReflectionState { return o.reflection }

// RunTurn processes one user input through as many reflected cycles as the
// bound allows.
func (o *Orchestrator) RunTurn(ctx context.Context, input string) {
	// a fresh user input resets the reflection budget
	o.reflection = ReflectionState{Max: o.cfg.Chat.MaxReflections}

	for {
		o.step(ctx, input)

		if o.reflection.Pending == "" {
			return
		}
		if o.reflection.Count >= o.reflection.Max {
			o.io.ToolError(fmt.Sprintf("Only %d reflections allowed, stopping.", o.reflection.Max))
			o.reflection.Pending = ""
			o.state = StateIdle
			return
		}
		o.reflection.Count++
		input = o.reflection.Pending
		o.reflection.Pending = ""
		logging.Debug("reflecting", "session", o.sessionID, "count", o.reflection.Count)
	}
}

// step runs one send cycle: Sending through Committing, setting the
// reflection payload when a recoverable failure wants another cycle.
func (o *Orchestrator) step(ctx context.Context, input string) TurnOutcome {
	o.state = StateSending
	o.cur = append(o.cur, chat.User(input))

	content, outcome := o.sendAndAccumulate(ctx)
	switch outcome {
	case OutcomeInterrupted:
		o.state = StateInterrupted
		o.noteInterrupt(content)
		o.state = StateIdle
		return outcome
	case OutcomeContextExhausted, OutcomeAborted:
		o.state = StateIdle
		if outcome == OutcomeAborted {
			o.state = StateAborted
		}
		return outcome
	}

	o.io.AssistantOutput(content)
	o.cur = append(o.cur, chat.Assistant(content))

	o.state = StateExtracting
	edits, err := o.engine.Extract(content, o.files.RelFiles())
	var malformed *coder.MalformedError
	if errors.As(err, &malformed) {
		o.io.ToolError(malformed.Reason)
		o.state = StateReflecting
		o.reflection.add(malformed.Reason)
		return OutcomeMalformed
	}
	if err != nil {
		o.abort(fmt.Sprintf("extraction failed: %v", err))
		return OutcomeAborted
	}

	o.state = StateGating
	approved, err := o.gate.Resolve(ctx, edits)
	if err != nil {
		o.abort(fmt.Sprintf("version control failure: %v", err))
		return OutcomeAborted
	}

	edited, err := o.applyEdits(approved)
	if errors.As(err, &malformed) {
		o.io.ToolError(malformed.Reason)
		o.state = StateReflecting
		o.reflection.add(malformed.Reason)
		return OutcomeMalformed
	}
	if err != nil {
		o.abort(fmt.Sprintf("applying edits failed: %v", err))
		return OutcomeAborted
	}
	for _, rel := range edited {
		o.io.ToolOutput("Applied edit to " + rel)
	}

	if o.lintStage(ctx, edited) {
		return OutcomeContent // reflection payload set, next cycle fixes lint
	}
	if o.testStage(ctx, edited) {
		return OutcomeContent
	}

	o.state = StateCommitting
	o.commitStage(ctx, edited)

	// the model may have asked for files it is not allowed to edit yet
	if notice := o.scanMentions(ctx, content); notice != "" {
		o.state = StateReflecting
		o.reflection.add(notice)
	} else {
		o.state = StateIdle
	}

	return OutcomeContent
}

// sendAndAccumulate streams one response, retrying with an assistant-seed
// prefill after each length truncation when the model supports it.
func (o *Orchestrator) sendAndAccumulate(ctx context.Context) (string, TurnOutcome) {
	o.joinSummarizer()

	msgs, fence := o.assembler.Assemble(prompt.Input{
		Done:  o.done,
		Cur:   o.cur,
		Files: o.files,
		OnDropFile: func(rel string) {
			o.io.ToolError(fmt.Sprintf("Dropping %s from the chat: no longer a readable file", rel))
		},
		OnWarn: o.io.ToolError,
	})
	o.engine.SetFence(fence)

	var full strings.Builder
	for {
		req := msgs
		if full.Len() > 0 {
			req = append(append([]chat.Message{}, msgs...), chat.Assistant(full.String()))
		}

		s, err := o.client.Send(ctx, req)
		if err != nil {
			return full.String(), o.classifySendError(err, req, full.String())
		}

		acc := stream.NewAccumulator()
		consumeErr := o.consume(ctx, acc, s)
		full.WriteString(acc.Text())

		if errors.Is(consumeErr, stream.ErrInterrupted) {
			return full.String(), OutcomeInterrupted
		}
		if consumeErr != nil {
			return full.String(), o.classifySendError(consumeErr, req, full.String())
		}

		if acc.HasCall() {
			// structured calls carry no edits; surface the payload as text
			logging.Debug("structured call received", "session", o.sessionID)
			return full.String(), OutcomeStructuredCall
		}

		if acc.Truncated() {
			if o.client.CanPrefill() {
				logging.Debug("response truncated, retrying with prefill", "session", o.sessionID)
				continue
			}
			o.showExhausted(msgs, full.String())
			return full.String(), OutcomeContextExhausted
		}

		return full.String(), OutcomeContent
	}
}

// consume drains the stream, echoing text to the interactive surface as a
// live diff of the edits in progress.
func (o *Orchestrator) consume(ctx context.Context, acc *stream.Accumulator, s *client.Stream) error {
	rendered := 0
	for {
		select {
		case <-ctx.Done():
			s.Cancel()
			return stream.ErrInterrupted
		case frag, ok := <-s.Fragments:
			if !ok {
				final := o.engine.RenderLiveDiff(acc.Text(), o.files.RelFiles(), o.readRel)
				o.io.Print(final[min(rendered, len(final)):] + "\n")
				return nil
			}
			if frag.Err != nil {
				return frag.Err
			}
			acc.Add(frag)
			live := o.engine.RenderLiveDiff(acc.Text(), o.files.RelFiles(), o.readRel)
			if len(live) > rendered {
				o.io.Print(live[rendered:])
				rendered = len(live)
			}
		}
	}
}

func (o *Orchestrator) readRel(rel string) (string, bool) {
	for _, fc := range o.files.Contents(nil) {
		if fc.Path == rel {
			return fc.Content, true
		}
	}
	return "", false
}

func (o *Orchestrator) classifySendError(err error, msgs []chat.Message, partial string) TurnOutcome {
	if client.IsContextWindowExceeded(err) {
		o.showExhausted(msgs, partial)
		return OutcomeContextExhausted
	}
	if client.IsBadRequest(err) {
		o.abort(fmt.Sprintf("the model rejected the request: %v", err))
		return OutcomeAborted
	}
	o.abort(fmt.Sprintf("sending failed: %v", err))
	return OutcomeAborted
}

func (o *Orchestrator) abort(diag string) {
	o.io.ToolError(diag)
	logging.Error("turn aborted", "session", o.sessionID, "reason", diag)
	o.state = StateAborted
}

// noteInterrupt records the partial response and an interrupt marker so the
// model knows the reply was cut short.
func (o *Orchestrator) noteInterrupt(partial string) {
	o.io.ToolError("\n\n^C KeyboardInterrupt")
	content := strings.TrimSpace(partial)
	if content == "" {
		content = "(no response)"
	}
	o.cur = append(o.cur,
		chat.Assistant(content+"\n^C KeyboardInterrupt"),
		chat.User("I interrupted you before you finished. Wait for further instructions."),
	)
}

// applyEdits writes the approved candidates and returns the distinct paths
// written, in first-seen order.
func (o *Orchestrator) applyEdits(approved []coder.EditCandidate) ([]string, error) {
	if len(approved) == 0 {
		return nil, nil
	}
	if o.cfg.Edit.DryRun {
		for _, cand := range approved {
			o.io.ToolOutput(fmt.Sprintf("Did not apply edit to %s (--dry-run)", cand.Path))
		}
		return nil, nil
	}

	if err := o.engine.Apply(approved, o.files.AbsPath); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var edited []string
	for _, cand := range approved {
		if !seen[cand.Path] {
			seen[cand.Path] = true
			edited = append(edited, cand.Path)
		}
	}
	return edited, nil
}

// lintStage reports whether a reflection cycle was queued.
func (o *Orchestrator) lintStage(ctx context.Context, edited []string) bool {
	o.state = StateLinting
	if !o.cfg.Lint.Auto || o.cfg.Lint.Command == "" || len(edited) == 0 {
		return false
	}

	var failures []string
	for _, rel := range edited {
		res := o.checker.Lint(ctx, o.cfg.Lint.Command, rel)
		if !res.Ok {
			failures = append(failures, res.Report())
		}
	}
	if len(failures) == 0 {
		return false
	}

	report := strings.Join(failures, "\n")
	o.io.ToolError(report)
	if !o.io.Confirm("Attempt to fix lint errors?") {
		return false
	}
	o.state = StateReflecting
	o.reflection.add(report)
	return true
}

// testStage reports whether a reflection cycle was queued.
func (o *Orchestrator) testStage(ctx context.Context, edited []string) bool {
	o.state = StateTesting
	if !o.cfg.Test.Auto || o.cfg.Test.Command == "" || len(edited) == 0 {
		return false
	}

	res := o.checker.Test(ctx, o.cfg.Test.Command)
	if res.Ok {
		return false
	}

	report := res.Report()
	o.io.ToolError(report)
	if !o.io.Confirm("Attempt to fix test errors?") {
		return false
	}
	o.state = StateReflecting
	o.reflection.add(report)
	return true
}

// commitStage commits the edited files and settles the turn's messages into
// history with a notice describing what happened to the edits.
func (o *Orchestrator) commitStage(ctx context.Context, edited []string) {
	var notice string

	switch {
	case len(edited) == 0:
		notice = ""
	case o.cfg.Edit.DryRun:
		notice = ""
	case o.repo != nil && o.cfg.Git.AutoCommits:
		rec, err := o.repo.Commit(ctx, edited, o.commitMessage(ctx, edited), true)
		if err != nil {
			o.io.ToolError(fmt.Sprintf("commit failed: %v", err))
			break
		}
		if rec != nil {
			o.undo.Push(rec)
			o.io.ToolOutput(fmt.Sprintf("Commit %s %s", rec.Hash, rec.Message))
			notice = o.tpl.CommittedNotice(rec.Hash, rec.Message)
		} else {
			o.io.ToolOutput("No changes made to git tracked files.")
			notice = o.tpl.NoEditsNotice
		}
	default:
		notice = o.tpl.EditsAppliedNotice
	}

	o.moveBack(ctx, notice)
}

// moveBack settles the current turn into history and kicks off background
// condensation when the history has grown too big.
func (o *Orchestrator) moveBack(ctx context.Context, notice string) {
	o.done = append(o.done, o.cur...)
	o.cur = nil

	if notice != "" {
		o.done = append(o.done,
			chat.User(notice),
			chat.Assistant("Ok."),
		)
	}

	o.summarize.Start(ctx, o.done)
}

func (o *Orchestrator) joinSummarizer() {
	if condensed, ok := o.summarize.Join(); ok {
		o.done = condensed
	}
}

// commitMessage asks the model for a one-line message describing the diff,
// falling back to a plain default when that fails.
func (o *Orchestrator) commitMessage(ctx context.Context, edited []string) string {
	const system = `You are an expert software engineer.
Review the provided context and diffs which are about to be committed to a git repo.
Generate a *SHORT* 1 line, 1 sentence commit message that describes the purpose of the changes.
The commit message MUST be in the past tense.
It must describe the changes *which have been made* in the diffs!
Reply with JUST the commit message, without quotes, comments, questions, etc!`

	req := []chat.Message{
		chat.System(system),
		chat.User(chat.Transcript(o.cur)),
	}

	s, err := o.client.Send(ctx, req)
	if err != nil {
		return fallbackCommitMessage(edited)
	}
	var b strings.Builder
	for frag := range s.Fragments {
		if frag.Err != nil {
			return fallbackCommitMessage(edited)
		}
		b.WriteString(frag.Text)
	}

	msg := strings.TrimSpace(strings.Split(strings.TrimSpace(b.String()), "\n")[0])
	if msg == "" {
		return fallbackCommitMessage(edited)
	}
	return msg
}

func fallbackCommitMessage(edited []string) string {
	return "Updated " + strings.Join(edited, ", ")
}

// showExhausted reports approximate token usage against the model's limits
// with remediation hints.
func (o *Orchestrator) showExhausted(msgs []chat.Message, partial string) {
	limits := o.client.Limits()
	inputTokens := chat.EstimateMessageTokens(msgs)
	outputTokens := chat.EstimateTokens(partial)
	totalTokens := inputTokens + outputTokens

	lines := []string{
		"",
		fmt.Sprintf("Model %s has hit a token limit!", o.cfg.Model.Name),
		"Token counts below are approximate.",
		"",
		fmt.Sprintf("Input tokens: ~%d of %d", inputTokens, limits.MaxInput),
		fmt.Sprintf("Output tokens: ~%d of %d", outputTokens, limits.MaxOutput),
		fmt.Sprintf("Total tokens: ~%d of %d", totalTokens, limits.MaxInput),
		"",
		"To reduce input tokens:",
		"- Use /drop to remove unneeded files from the chat session.",
		"- Break your code into smaller source files.",
	}
	o.io.ToolError(strings.Join(lines, "\n"))
}
