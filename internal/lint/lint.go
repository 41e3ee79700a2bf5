// Package lint runs the configured lint and test commands after edits are
// applied and captures their output for the reflection loop.
package lint

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Chitius/aider/internal/logging"
)

const commandTimeout = 5 * time.Minute

// Result is the outcome of one command run.
type Result struct {
	Command string
	Output  string
	Ok      bool
}

// Runner executes shell commands in the project root.
type Runner struct {
	root string
}

// NewRunner creates a Runner rooted at dir.
func NewRunner(root string) *Runner {
	return &Runner{root: root}
}

// Lint runs the lint command against one file. The Result reports whether
// it passed; failing output comes back in it for feeding to the model.
func (r *Runner) Lint(ctx context.Context, command, relPath string) *Result {
	return r.run(ctx, command+" "+relPath)
}

// Test runs the test command for the whole project.
func (r *Runner) Test(ctx context.Context, command string) *Result {
	return r.run(ctx, command)
}

func (r *Runner) run(ctx context.Context, command string) *Result {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	logging.Debug("running command", "command", command)
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.root
	out, err := cmd.CombinedOutput()

	res := &Result{Command: command, Output: string(out), Ok: err == nil}
	if err != nil {
		if ctx.Err() != nil {
			res.Output += fmt.Sprintf("\ncommand timed out after %s", commandTimeout)
		}
		logging.Debug("command failed", "command", command, "error", err)
	}
	return res
}

// Report formats a failed result as a message for the model.
func (res *Result) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Running `%s` produced errors:\n\n", res.Command)
	b.WriteString(strings.TrimSpace(res.Output))
	b.WriteString("\n")
	return b.String()
}
