package prompt

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/logging"
)

// Assembler renders the full message list for one request. It is stateless
// apart from its configuration; the caller owns history and file context.
type Assembler struct {
	tpl Templates

	// examplesAsSystem folds the example exchanges into the system message
	// instead of emitting them as discrete messages.
	examplesAsSystem bool
	// reminderAsSystem emits the trailing reminder as a system message
	// instead of appending it to the final user message.
	reminderAsSystem bool
	maxInputTokens   int

	now func() time.Time
}

// NewAssembler creates an Assembler for the given templates and model
// behavior flags. maxInputTokens of 0 means no budget check.
func NewAssembler(tpl Templates, examplesAsSystem, reminderAsSystem bool, maxInputTokens int) *Assembler {
	return &Assembler{
		tpl:              tpl,
		examplesAsSystem: examplesAsSystem,
		reminderAsSystem: reminderAsSystem,
		maxInputTokens:   maxInputTokens,
		now:              time.Now,
	}
}

// Input is everything assembly needs for one request.
type Input struct {
	Done     []chat.Message // summarized history, oldest first
	Cur      []chat.Message // current turn, ends with the latest user message
	Files    *chat.FileContext
	RepoHint string // optional read-only repository summary

	// OnDropFile is told about in-chat files that no longer exist.
	OnDropFile func(rel string)
	// OnWarn surfaces assembly diagnostics to the user.
	OnWarn func(msg string)
}

// Assemble builds the ordered message list and returns the fence chosen for
// this request. The fence is picked so it collides with none of the in-chat
// file contents; when every candidate collides the default is used and a
// warning is logged once.
func (a *Assembler) Assemble(in Input) ([]chat.Message, chat.Fence) {
	contents := in.Files.Contents(in.OnDropFile)

	raw := make([]string, len(contents))
	for i, fc := range contents {
		raw[i] = fc.Content
	}
	fence, ok := chat.ChooseFence(raw)
	if !ok {
		warn := fmt.Sprintf("Unable to find a fencing strategy! Falling back to: %s...%s", fence.Open, fence.Close)
		logging.Warn("no fence delimiter avoids the chat files", "fallback", fence.Open)
		if in.OnWarn != nil {
			in.OnWarn(warn)
		}
	}

	platform := a.platformText()
	sys := substitute(a.tpl.MainSystem, fence, platform)

	var examples []chat.Message
	if a.examplesAsSystem {
		if len(a.tpl.Examples) > 0 {
			sys += "\n# Example conversations:\n\n"
			for _, msg := range a.tpl.Examples {
				sys += fmt.Sprintf("## %s: %s\n\n", strings.ToUpper(string(msg.Role)), substitute(msg.Content, fence, platform))
			}
			sys = strings.TrimSpace(sys)
		}
	} else if len(a.tpl.Examples) > 0 {
		for _, msg := range a.tpl.Examples {
			examples = append(examples, chat.Message{Role: msg.Role, Content: substitute(msg.Content, fence, platform)})
		}
		examples = append(examples,
			chat.User(a.tpl.ExamplesDoneHint),
			chat.Assistant("Ok."),
		)
	}

	sys += "\n" + substitute(a.tpl.SystemReminder, fence, platform)

	messages := []chat.Message{chat.System(sys)}
	messages = append(messages, examples...)
	messages = append(messages, in.Done...)
	messages = append(messages, a.filesMessages(in, contents, fence)...)

	reminder := chat.System(substitute(a.tpl.SystemReminder, fence, platform))

	totalTokens := chat.EstimateMessageTokens(messages) +
		chat.EstimateMessageTokens([]chat.Message{reminder}) +
		chat.EstimateMessageTokens(in.Cur)

	messages = append(messages, in.Cur...)

	// The reminder is omitted entirely when it would push the request past
	// the input budget.
	if a.maxInputTokens == 0 || totalTokens < a.maxInputTokens {
		if a.reminderAsSystem {
			messages = append(messages, reminder)
		} else if n := len(messages); n > 0 && messages[n-1].Role == chat.RoleUser {
			messages[n-1] = chat.User(messages[n-1].Content + "\n\n" + reminder.Content)
		}
	}

	return messages, fence
}

// filesMessages renders the repository hint and in-chat file exchanges.
func (a *Assembler) filesMessages(in Input, contents []chat.FileContent, fence chat.Fence) []chat.Message {
	var msgs []chat.Message

	if in.RepoHint != "" {
		msgs = append(msgs,
			chat.User(substitute(a.tpl.RepoContentPrefix, fence, "")+"\n\n"+in.RepoHint),
			chat.Assistant(a.tpl.RepoContentReply),
		)
	}

	var body, reply string
	switch {
	case len(contents) > 0:
		body = substitute(a.tpl.FilesContentPrefix, fence, "") + "\n"
		for _, fc := range contents {
			body += "\n" + fc.Path + "\n" + fence.Open + "\n" + fc.Content + fence.Close + "\n"
		}
		reply = a.tpl.FilesContentReply
	case in.RepoHint != "":
		body = a.tpl.FilesNoFullFilesHint
		reply = a.tpl.FilesNoFullFilesReply
	default:
		body = a.tpl.FilesNoFullFiles
		reply = "Ok."
	}

	msgs = append(msgs, chat.User(body), chat.Assistant(reply))
	return msgs
}

func (a *Assembler) platformText() string {
	shell := os.Getenv("SHELL")
	return fmt.Sprintf("- The user's system: %s/%s\n- The user's shell: SHELL=%s\n- The current date/time: %s",
		runtime.GOOS, runtime.GOARCH, shell, a.now().Format(time.RFC3339))
}

// CommittedNotice renders the synthetic exchange recorded in history after
// an auto-commit.
func (t Templates) CommittedNotice(hash, message string) string {
	return fmt.Sprintf(t.EditsCommittedNotice, hash, message)
}
