package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/stream"
)

const undoReply = "I reverted the last edits. Please wait for further instructions before attempting that change again. Feel free to ask relevant questions about why the changes were reverted."

// Console extends the orchestrator surface with interactive input.
type Console interface {
	IO
	GetInput() (string, error)
}

// Session is the interactive loop: read input, dispatch commands, run
// turns, and translate interrupts.
type Session struct {
	orch    *Orchestrator
	console Console
	intr    *stream.Interrupter
}

// NewSession wires a Session around an orchestrator.
func NewSession(orch *Orchestrator, console Console) *Session {
	return &Session{
		orch:    orch,
		console: console,
		intr:    stream.NewInterrupter(),
	}
}

// Run processes input until the user exits or input ends.
func (s *Session) Run(ctx context.Context) error {
	for {
		inp, err := s.console.GetInput()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		inp = strings.TrimSpace(inp)
		if inp == "" {
			continue
		}

		if strings.HasPrefix(inp, "/") {
			if done := s.runCommand(ctx, inp); done {
				return nil
			}
			continue
		}

		s.checkInputMentions(ctx, inp)
		s.runTurn(ctx, inp)
	}
}

// runTurn executes one turn with SIGINT translated into turn cancellation,
// escalating to process exit on a rapid second interrupt.
func (s *Session) runTurn(ctx context.Context, inp string) {
	turnCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGINT)
	defer signal.Stop(sigs)

	go func() {
		for {
			select {
			case <-sigs:
				s.intr.Interrupt()
				cancel()
			case <-turnCtx.Done():
				return
			}
		}
	}()

	s.orch.RunTurn(turnCtx, inp)
}

// checkInputMentions offers to add files the user named before sending.
func (s *Session) checkInputMentions(ctx context.Context, inp string) {
	mentioned := FileMentions(inp, s.orch.addableFiles(ctx))
	if len(mentioned) == 0 {
		return
	}
	for _, rel := range mentioned {
		if s.console.Confirm(fmt.Sprintf("Add %s to the chat?", rel)) {
			s.orch.files.Add(rel)
			s.console.ToolOutput("Added " + rel + " to the chat")
		}
	}
}

// runCommand handles a slash command. It reports true when the session
// should end.
func (s *Session) runCommand(ctx context.Context, inp string) bool {
	fields := strings.Fields(inp)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/exit", "/quit":
		return true

	case "/add":
		for _, rel := range args {
			abs := s.orch.files.AbsPath(rel)
			if _, err := os.Stat(abs); err != nil {
				s.console.ToolError(fmt.Sprintf("Unable to add %s: %v", rel, err))
				continue
			}
			s.orch.files.Add(rel)
			s.console.ToolOutput("Added " + rel + " to the chat")
		}

	case "/drop":
		for _, rel := range args {
			if s.orch.files.Drop(rel) {
				s.console.ToolOutput("Removed " + rel + " from the chat")
			} else {
				s.console.ToolError(rel + " is not in the chat")
			}
		}

	case "/ls":
		for _, rel := range s.orch.files.RelFiles() {
			s.console.ToolOutput(rel)
		}

	case "/clear":
		s.orch.done = nil
		s.orch.cur = nil
		s.console.ToolOutput("Chat history cleared")

	case "/tokens":
		tokens := chat.EstimateMessageTokens(s.orch.done) + chat.EstimateMessageTokens(s.orch.cur)
		s.console.ToolOutput(fmt.Sprintf("Approximate history tokens: %d", tokens))

	case "/undo":
		rec, err := s.orch.undo.UndoLast(ctx)
		if err != nil {
			s.console.ToolError(fmt.Sprintf("Unable to undo: %v", err))
			break
		}
		s.console.ToolOutput(fmt.Sprintf("Reverted commit %s %s", rec.Hash, rec.Message))
		s.orch.done = append(s.orch.done, chat.User(undoReply), chat.Assistant("Ok."))

	case "/diff":
		if s.orch.repo == nil || s.orch.undo.Last() == nil {
			s.console.ToolError("No commits to show")
			break
		}
		diff, err := s.orch.repo.DiffCommit(ctx, s.orch.undo.Last().Hash)
		if err != nil {
			s.console.ToolError(fmt.Sprintf("Unable to show diff: %v", err))
			break
		}
		s.console.Print(diff)

	default:
		s.console.ToolError("Unknown command: " + cmd)
	}
	return false
}
