// Package ui is the session-visible surface: user input, confirmation
// prompts, diagnostics, and the append-only chat-history log. Every user
// input, tool diagnostic, and assistant reply is captured in the log file
// regardless of what is shown interactively.
package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// InputOutput mediates all interaction with the user.
type InputOutput struct {
	in  *bufio.Reader
	out io.Writer

	// assumeYes answers every confirmation affirmatively when set.
	assumeYes bool

	historyFile string
	mu          sync.Mutex

	userColor  *color.Color
	toolColor  *color.Color
	errorColor *color.Color
}

// Option configures an InputOutput.
type Option func(*InputOutput)

// WithInput overrides the input reader (defaults to stdin).
func WithInput(r io.Reader) Option {
	return func(o *InputOutput) { o.in = bufio.NewReader(r) }
}

// WithOutput overrides the output writer (defaults to stdout).
func WithOutput(w io.Writer) Option {
	return func(o *InputOutput) { o.out = w }
}

// WithAssumeYes answers every confirmation prompt with yes.
func WithAssumeYes() Option {
	return func(o *InputOutput) { o.assumeYes = true }
}

// WithHistoryFile sets the append-only chat log path.
func WithHistoryFile(path string) Option {
	return func(o *InputOutput) { o.historyFile = path }
}

// New creates an InputOutput and stamps a session-start header into the
// chat log if one is configured.
func New(opts ...Option) *InputOutput {
	o := &InputOutput{
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		userColor:  color.New(color.FgBlue),
		toolColor:  color.New(color.FgGreen),
		errorColor: color.New(color.FgRed),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.historyFile != "" {
		started := time.Now().Format("2006-01-02 15:04:05")
		o.appendHistory(fmt.Sprintf("\n# aider chat started at %s\n\n", started), false, false)
	}
	return o
}

// GetInput reads one line of user input. io.EOF ends the session.
func (o *InputOutput) GetInput() (string, error) {
	fmt.Fprint(o.out, "> ")
	line, err := o.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	inp := strings.TrimRight(line, "\r\n")
	o.UserInput(inp)
	return inp, nil
}

// Confirm asks a yes/no question and reports the answer. The exchange is
// recorded in the chat log either way.
func (o *InputOutput) Confirm(question string) bool {
	var answer string
	if o.assumeYes {
		answer = "yes"
	} else {
		fmt.Fprint(o.out, question+" (y/n) ")
		line, err := o.in.ReadString('\n')
		if err != nil {
			answer = "no"
		} else {
			answer = strings.TrimSpace(line)
		}
	}

	o.appendHistory(strings.TrimSpace(question)+" "+answer, true, true)
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// UserInput records a user message in the chat log with the #### prefix.
func (o *InputOutput) UserInput(inp string) {
	lines := []string{"<blank>"}
	if inp != "" {
		lines = strings.Split(inp, "\n")
	}
	entry := "\n#### " + strings.Join(lines, "  \n#### ")
	o.appendHistory(entry, true, false)
}

// AssistantOutput records the assistant's reply in the chat log without
// writing to the interactive surface.
func (o *InputOutput) AssistantOutput(content string) {
	o.appendHistory("\n"+strings.TrimSpace(content)+"\n\n", false, false)
}

// ToolOutput prints a diagnostic line and records it.
func (o *InputOutput) ToolOutput(messages ...string) {
	joined := strings.Join(messages, " ")
	if strings.TrimSpace(joined) != "" {
		o.appendHistory(strings.TrimSpace(joined), true, true)
	}
	o.toolColor.Fprintln(o.out, joined)
}

// ToolError prints an error diagnostic and records it.
func (o *InputOutput) ToolError(message string) {
	if strings.TrimSpace(message) != "" {
		for _, line := range strings.Split(message, "\n") {
			o.appendHistory(line, true, true)
		}
	}
	o.errorColor.Fprintln(o.out, message)
}

// Print writes streamed assistant text verbatim to the interactive surface.
func (o *InputOutput) Print(text string) {
	fmt.Fprint(o.out, text)
}

func (o *InputOutput) appendHistory(text string, linebreak, blockquote bool) {
	if o.historyFile == "" {
		return
	}

	if blockquote {
		text = "> " + strings.TrimSpace(text)
	}
	if linebreak {
		text = strings.TrimRight(text, " \n") + "  \n"
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, err := os.OpenFile(o.historyFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(text)
}
