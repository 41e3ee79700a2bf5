package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/coder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithFile(t *testing.T, rel, content string) *chat.FileContext {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	fc := chat.NewFileContext(dir)
	fc.Add(rel)
	return fc
}

func TestAssembleOrdering(t *testing.T) {
	fc := contextWithFile(t, "app.py", "x = 1\n")
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 0)

	msgs, fence := a.Assemble(Input{
		Done: []chat.Message{chat.User("old question"), chat.Assistant("old answer")},
		Cur:  []chat.Message{chat.User("change x to 2")},
		Files: fc,
	})

	require.NotEmpty(t, msgs)
	assert.Equal(t, chat.RoleSystem, msgs[0].Role)
	assert.Equal(t, chat.DefaultFence, fence)

	// examples come right after the system message and end with the
	// switched-code-base exchange
	assert.Equal(t, chat.RoleUser, msgs[1].Role)
	idx := indexOfContent(msgs, "I switched to a new code base")
	require.Greater(t, idx, 0)

	doneIdx := indexOfContent(msgs, "old question")
	filesIdx := indexOfContent(msgs, "added these files to the chat")
	curIdx := indexOfContent(msgs, "change x to 2")
	require.True(t, idx < doneIdx && doneIdx < filesIdx && filesIdx < curIdx,
		"expected examples < history < files < current, got %d %d %d %d", idx, doneIdx, filesIdx, curIdx)

	// reminder trails as a system message
	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.RoleSystem, last.Role)
	assert.Contains(t, last.Content, "file listing")
}

func TestAssembleFilesMessageUsesChosenFence(t *testing.T) {
	// file contains backticks, so the fence must move off the default
	fc := contextWithFile(t, "doc.md", "look at ```this``` block\n")
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 0)

	msgs, fence := a.Assemble(Input{Cur: []chat.Message{chat.User("hi")}, Files: fc})

	assert.Equal(t, "<source>", fence.Open)
	filesMsg := msgs[indexOfContent(msgs, "doc.md")]
	assert.Contains(t, filesMsg.Content, "<source>\nlook at")
}

func TestAssembleFenceCollisionWarnsUser(t *testing.T) {
	// file collides with every candidate delimiter, forcing the fallback
	content := "``` <source> <code> <pre> <codeblock> <sourcecode>\n"
	fc := contextWithFile(t, "fences.md", content)
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 0)

	var warned []string
	_, fence := a.Assemble(Input{
		Cur:    []chat.Message{chat.User("hi")},
		Files:  fc,
		OnWarn: func(msg string) { warned = append(warned, msg) },
	})

	assert.Equal(t, chat.DefaultFence, fence)
	require.Len(t, warned, 1)
	assert.Contains(t, warned[0], "Unable to find a fencing strategy")
}

func TestAssembleNoFilesPlaceholder(t *testing.T) {
	fc := chat.NewFileContext(t.TempDir())
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 0)

	msgs, _ := a.Assemble(Input{Cur: []chat.Message{chat.User("hi")}, Files: fc})

	assert.GreaterOrEqual(t, indexOfContent(msgs, "not sharing any files"), 0)
}

func TestAssembleRepoHintExchange(t *testing.T) {
	fc := chat.NewFileContext(t.TempDir())
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 0)

	msgs, _ := a.Assemble(Input{
		Cur:      []chat.Message{chat.User("hi")},
		Files:    fc,
		RepoHint: "src/main.go:\n  func main",
	})

	hintIdx := indexOfContent(msgs, "treat them as *read-only*")
	require.GreaterOrEqual(t, hintIdx, 0)
	assert.Equal(t, chat.RoleAssistant, msgs[hintIdx+1].Role)
	// with a repo hint but no files, the placeholder asks for suggestions
	assert.GreaterOrEqual(t, indexOfContent(msgs, "most likely to **need changes**"), 0)
}

func TestAssembleReminderOmittedOverBudget(t *testing.T) {
	fc := chat.NewFileContext(t.TempDir())
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, true, 10)

	msgs, _ := a.Assemble(Input{Cur: []chat.Message{chat.User("hi")}, Files: fc})

	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.RoleUser, last.Role, "reminder must be dropped when over budget")
	assert.Equal(t, "hi", last.Content)
}

func TestAssembleReminderAppendedToUserMessage(t *testing.T) {
	fc := chat.NewFileContext(t.TempDir())
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), false, false, 0)

	msgs, _ := a.Assemble(Input{Cur: []chat.Message{chat.User("change it")}, Files: fc})

	last := msgs[len(msgs)-1]
	assert.Equal(t, chat.RoleUser, last.Role)
	assert.True(t, strings.HasPrefix(last.Content, "change it\n\n"))
	assert.Contains(t, last.Content, "file listing")
}

func TestAssembleExamplesFoldedIntoSystem(t *testing.T) {
	fc := chat.NewFileContext(t.TempDir())
	a := NewAssembler(TemplatesFor(coder.FormatWholeFile), true, true, 0)

	msgs, _ := a.Assemble(Input{Cur: []chat.Message{chat.User("hi")}, Files: fc})

	assert.Contains(t, msgs[0].Content, "# Example conversations:")
	assert.Contains(t, msgs[0].Content, "## USER:")
	assert.Equal(t, -1, indexOfContent(msgs[1:], "I switched to a new code base"))
}

func indexOfContent(msgs []chat.Message, substr string) int {
	for i, m := range msgs {
		if strings.Contains(m.Content, substr) {
			return i
		}
	}
	return -1
}
