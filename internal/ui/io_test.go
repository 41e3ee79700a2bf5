package ui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIO(t *testing.T, input string, opts ...Option) (*InputOutput, *bytes.Buffer, string) {
	t.Helper()
	out := &bytes.Buffer{}
	history := filepath.Join(t.TempDir(), "history.md")
	opts = append([]Option{
		WithInput(strings.NewReader(input)),
		WithOutput(out),
		WithHistoryFile(history),
	}, opts...)
	return New(opts...), out, history
}

func readHistory(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestHistoryStartsWithSessionHeader(t *testing.T) {
	_, _, history := newTestIO(t, "")
	assert.Contains(t, readHistory(t, history), "# aider chat started at ")
}

func TestGetInputLogsUserMessage(t *testing.T) {
	io, _, history := newTestIO(t, "change the greeting\n")

	inp, err := io.GetInput()
	require.NoError(t, err)
	assert.Equal(t, "change the greeting", inp)
	assert.Contains(t, readHistory(t, history), "#### change the greeting")
}

func TestConfirmRecordsBlockquotedExchange(t *testing.T) {
	io, out, history := newTestIO(t, "y\n")

	ok := io.Confirm("Allow creation of new file x.py?")
	assert.True(t, ok)
	assert.Contains(t, out.String(), "(y/n)")
	assert.Contains(t, readHistory(t, history), "> Allow creation of new file x.py? y")
}

func TestConfirmAssumeYesSkipsPrompt(t *testing.T) {
	io, out, history := newTestIO(t, "", WithAssumeYes())

	assert.True(t, io.Confirm("Add these files to the chat?"))
	assert.NotContains(t, out.String(), "(y/n)")
	assert.Contains(t, readHistory(t, history), "Add these files to the chat? yes")
}

func TestToolOutputBlockquoted(t *testing.T) {
	io, _, history := newTestIO(t, "")
	io.ToolOutput("Applied edit to app.py")
	assert.Contains(t, readHistory(t, history), "> Applied edit to app.py")
}

func TestAssistantOutputLoggedVerbatim(t *testing.T) {
	io, out, history := newTestIO(t, "")
	io.AssistantOutput("Here is the change.")
	assert.Contains(t, readHistory(t, history), "Here is the change.")
	assert.Empty(t, out.String(), "assistant log entries do not echo to the surface")
}
