package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/client"
	"github.com/Chitius/aider/internal/coder"
	"github.com/Chitius/aider/internal/config"
	"github.com/Chitius/aider/internal/gate"
	"github.com/Chitius/aider/internal/gitrepo"
	"github.com/Chitius/aider/internal/lint"
	"github.com/Chitius/aider/internal/prompt"
	"github.com/Chitius/aider/internal/summary"
	"github.com/Chitius/aider/internal/undo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient replays scripted responses in order.
type fakeClient struct {
	replies []string
	sent    [][]chat.Message
	block   bool // never deliver fragments; used for interrupt tests
}

func (c *fakeClient) Send(ctx context.Context, msgs []chat.Message) (*client.Stream, error) {
	c.sent = append(c.sent, msgs)

	if c.block {
		ch := make(chan client.Fragment)
		return client.NewStream(ch, nil), nil
	}

	reply := ""
	if len(c.replies) > 0 {
		reply = c.replies[0]
		c.replies = c.replies[1:]
	}
	ch := make(chan client.Fragment, 2)
	ch <- client.Fragment{Text: reply}
	ch <- client.Fragment{FinishReason: client.FinishStop}
	close(ch)
	return client.NewStream(ch, nil), nil
}

func (c *fakeClient) CanPrefill() bool           { return false }
func (c *fakeClient) Limits() client.TokenLimits { return client.TokenLimits{MaxInput: 100000, MaxOutput: 8192} }

// lastUserContent returns the content of the final user message of the nth
// request the client saw.
func (c *fakeClient) lastUserContent(n int) string {
	msgs := c.sent[n]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == chat.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

type fakeIO struct {
	answers map[string]bool
	asked   []string
	outputs []string
	errs    []string
}

func (f *fakeIO) Confirm(question string) bool {
	f.asked = append(f.asked, question)
	for sub, ans := range f.answers {
		if strings.Contains(question, sub) {
			return ans
		}
	}
	return false
}

func (f *fakeIO) ToolOutput(messages ...string)  { f.outputs = append(f.outputs, strings.Join(messages, " ")) }
func (f *fakeIO) ToolError(message string)       { f.errs = append(f.errs, message) }
func (f *fakeIO) Print(text string)              {}
func (f *fakeIO) AssistantOutput(content string) {}

func (f *fakeIO) sawError(sub string) bool {
	for _, e := range f.errs {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}

type fakeChecker struct {
	lintFail    bool
	lintCalls   []string
	testFail    bool
	testCalls   int
}

func (c *fakeChecker) Lint(ctx context.Context, command, relPath string) *lint.Result {
	c.lintCalls = append(c.lintCalls, relPath)
	return &lint.Result{Command: command + " " + relPath, Output: "E999 syntax error", Ok: !c.lintFail}
}

func (c *fakeChecker) Test(ctx context.Context, command string) *lint.Result {
	c.testCalls++
	return &lint.Result{Command: command, Output: "1 failed", Ok: !c.testFail}
}

type fakeRepo struct {
	clean    bool
	tracked  []string
	commits  [][]string
	reverted []string
}

func (r *fakeRepo) PathInRepo(rel string) bool                        { return true }
func (r *fakeRepo) IsDirty(ctx context.Context, paths ...string) bool { return !r.clean }
func (r *fakeRepo) Add(ctx context.Context, paths ...string) error    { return nil }

func (r *fakeRepo) Commit(ctx context.Context, paths []string, message string, attributed bool) (*gitrepo.CommitRecord, error) {
	if r.clean {
		return nil, nil
	}
	r.commits = append(r.commits, paths)
	return &gitrepo.CommitRecord{Hash: fmt.Sprintf("c%06d", len(r.commits)), Message: message}, nil
}

func (r *fakeRepo) TrackedFiles(ctx context.Context) ([]string, error) { return r.tracked, nil }

func (r *fakeRepo) DiffCommit(ctx context.Context, hash string) (string, error) { return "", nil }

func (r *fakeRepo) Revert(ctx context.Context, rec *gitrepo.CommitRecord) error {
	r.reverted = append(r.reverted, rec.Hash)
	return nil
}

type fixture struct {
	orch   *Orchestrator
	client *fakeClient
	io     *fakeIO
	check  *fakeChecker
	dir    string
	files  *chat.FileContext
}

func newFixture(t *testing.T, cfg *config.Config, cl *fakeClient, io *fakeIO, check *fakeChecker, repo VCS) *fixture {
	t.Helper()

	dir := t.TempDir()
	files := chat.NewFileContext(dir)

	tpl := prompt.TemplatesFor(coder.FormatWholeFile)
	engine := coder.NewEngine(coder.FormatWholeFile)
	assembler := prompt.NewAssembler(tpl, false, true, cfg.Model.MaxInputTokens)

	var reverter undo.Reverter
	if r, ok := repo.(*fakeRepo); ok && r != nil {
		reverter = r
	}

	orch := New(Deps{
		Config:     cfg,
		Client:     cl,
		IO:         io,
		Files:      files,
		Engine:     engine,
		Assembler:  assembler,
		Templates:  tpl,
		Gate:       gate.New(files, asGateVCS(repo), io, cfg.Edit.DryRun, cfg.Git.DirtyCommits),
		Repo:       repo,
		Checker:    check,
		Summarizer: summary.New(cl, 1<<20),
		Undo:       undo.NewStack(reverter),
	})
	return &fixture{orch: orch, client: cl, io: io, check: check, dir: dir, files: files}
}

func asGateVCS(repo VCS) gate.VCS {
	if repo == nil {
		return nil
	}
	return repo
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Model.Name = "test-model"
	cfg.Git.AutoCommits = false
	return cfg
}

func (f *fixture) addFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	f.files.Add(rel)
}

func (f *fixture) readFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, rel))
	require.NoError(t, err)
	return string(data)
}

func wholeFileEdit(path, content string) string {
	return fmt.Sprintf("Here you go.\n\n%s\n```\n%s```\n", path, content)
}

func TestTurnAppliesOnlyApprovedEdits(t *testing.T) {
	response := wholeFileEdit("app.py", "x = 2\n") + "\n" + wholeFileEdit("new.py", "print('hi')\n")
	cl := &fakeClient{replies: []string{response}}
	io := &fakeIO{answers: map[string]bool{"creation of new file": false}}
	f := newFixture(t, testConfig(), cl, io, &fakeChecker{}, nil)
	f.addFile(t, "app.py", "x = 1\n")

	f.orch.RunTurn(context.Background(), "change x to 2")

	assert.Equal(t, "x = 2\n", f.readFile(t, "app.py"))
	_, err := os.Stat(filepath.Join(f.dir, "new.py"))
	assert.True(t, os.IsNotExist(err), "denied path must not be written")
	assert.Equal(t, StateIdle, f.orch.State())
}

func TestTurnExtractionFailureReflectsDiagnostic(t *testing.T) {
	// two files in chat, block has no filename header: extraction must fail
	bad := "```\nx = 5\n```\n"
	cl := &fakeClient{replies: []string{bad, "Understood, nothing to change."}}
	io := &fakeIO{}
	f := newFixture(t, testConfig(), cl, io, &fakeChecker{}, nil)
	f.addFile(t, "a.py", "a = 1\n")
	f.addFile(t, "b.py", "b = 1\n")

	f.orch.RunTurn(context.Background(), "change something")

	require.Len(t, cl.sent, 2, "one reflection cycle expected")
	assert.Contains(t, cl.lastUserContent(1), "no filename provided")
	assert.Equal(t, "a = 1\n", f.readFile(t, "a.py"))
	assert.Equal(t, "b = 1\n", f.readFile(t, "b.py"))
	assert.Equal(t, 1, f.orch.Reflection().Count)
}

func TestReflectionBoundedAtMax(t *testing.T) {
	bad := "```\nx = 5\n```\n"
	cl := &fakeClient{replies: []string{bad, bad, bad, bad, bad, bad}}
	io := &fakeIO{}
	f := newFixture(t, testConfig(), cl, io, &fakeChecker{}, nil)
	f.addFile(t, "a.py", "a = 1\n")
	f.addFile(t, "b.py", "b = 1\n")

	f.orch.RunTurn(context.Background(), "change something")

	// initial send plus max reflections
	assert.Len(t, cl.sent, 1+f.orch.Reflection().Max)
	assert.True(t, io.sawError("reflections allowed, stopping"))
	assert.Equal(t, StateIdle, f.orch.State())
}

func TestLintDeclineProceedsToTestingWithoutReflection(t *testing.T) {
	cfg := testConfig()
	cfg.Lint.Auto = true
	cfg.Lint.Command = "flake8"
	cfg.Test.Auto = true
	cfg.Test.Command = "pytest"

	cl := &fakeClient{replies: []string{wholeFileEdit("app.py", "x = 2\n")}}
	io := &fakeIO{answers: map[string]bool{"fix lint errors": false}}
	check := &fakeChecker{lintFail: true}
	f := newFixture(t, cfg, cl, io, check, nil)
	f.addFile(t, "app.py", "x = 1\n")

	f.orch.RunTurn(context.Background(), "change x")

	assert.Len(t, cl.sent, 1, "declining the fix must not reflect")
	assert.Equal(t, 1, check.testCalls, "testing stage still runs after declined lint fix")
	assert.Empty(t, f.orch.Reflection().Pending)
}

func TestLintAcceptReflectsReport(t *testing.T) {
	cfg := testConfig()
	cfg.Lint.Auto = true
	cfg.Lint.Command = "flake8"

	cl := &fakeClient{replies: []string{
		wholeFileEdit("app.py", "x = 2\n"),
		"Sorry, nothing further.",
	}}
	io := &fakeIO{answers: map[string]bool{"fix lint errors": true}}
	f := newFixture(t, cfg, cl, io, &fakeChecker{lintFail: true}, nil)
	f.addFile(t, "app.py", "x = 1\n")

	f.orch.RunTurn(context.Background(), "change x")

	require.Len(t, cl.sent, 2)
	assert.Contains(t, cl.lastUserContent(1), "E999 syntax error")
}

func TestInterruptWritesNoFiles(t *testing.T) {
	cl := &fakeClient{block: true}
	io := &fakeIO{}
	f := newFixture(t, testConfig(), cl, io, &fakeChecker{}, nil)
	f.addFile(t, "app.py", "x = 1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.orch.RunTurn(ctx, "change x")

	assert.Equal(t, "x = 1\n", f.readFile(t, "app.py"))
	assert.Equal(t, StateIdle, f.orch.State())
	assert.True(t, io.sawError("KeyboardInterrupt"))

	// the partial turn is kept with an interrupt note
	joined := chat.Transcript(f.orch.cur)
	assert.Contains(t, joined, "I interrupted you")
}

func TestCommitStageRecordsUndoableCommit(t *testing.T) {
	cfg := testConfig()
	cfg.Git.AutoCommits = true

	repo := &fakeRepo{}
	cl := &fakeClient{replies: []string{
		wholeFileEdit("app.py", "x = 2\n"),
		"Changed x to 2.", // commit message request
	}}
	io := &fakeIO{}
	f := newFixture(t, cfg, cl, io, &fakeChecker{}, repo)
	f.addFile(t, "app.py", "x = 1\n")

	f.orch.RunTurn(context.Background(), "change x")

	require.Len(t, repo.commits, 1)
	assert.Equal(t, []string{"app.py"}, repo.commits[0])
	assert.Equal(t, 1, f.orch.undo.Len())

	// history carries the commit notice as a synthetic exchange
	assert.Contains(t, chat.Transcript(f.orch.done), "I committed the changes with git hash")
}

func TestCleanTreeCommitYieldsNoRecord(t *testing.T) {
	cfg := testConfig()
	cfg.Git.AutoCommits = true

	repo := &fakeRepo{clean: true}
	cl := &fakeClient{replies: []string{
		wholeFileEdit("app.py", "x = 1\n"), // identical content
		"No changes.",
	}}
	io := &fakeIO{}
	f := newFixture(t, cfg, cl, io, &fakeChecker{}, repo)
	f.addFile(t, "app.py", "x = 1\n")

	f.orch.RunTurn(context.Background(), "rewrite the file unchanged")

	assert.Empty(t, repo.commits)
	assert.Zero(t, f.orch.undo.Len())

	// a no-op commit settles with the no-edits nag instead of a commit notice
	assert.Contains(t, io.outputs, "No changes made to git tracked files.")
	assert.Contains(t, chat.Transcript(f.orch.done), "I didn't see any properly formatted edits in your reply?!")
}

func TestMentionScanAddsFilesAndReflects(t *testing.T) {
	cfg := testConfig()
	repo := &fakeRepo{clean: true, tracked: []string{"util/helpers.py"}}

	cl := &fakeClient{replies: []string{
		"To do this I need to see `util/helpers.py`. Please add it.",
		"Thanks, now I can work.",
	}}
	io := &fakeIO{answers: map[string]bool{"Add these files": true}}
	f := newFixture(t, cfg, cl, io, &fakeChecker{}, repo)
	f.addFile(t, "app.py", "x = 1\n")

	// the mentioned file exists on disk but is not in the chat yet
	require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "util"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "util/helpers.py"), []byte("def helper(): pass\n"), 0644))

	f.orch.RunTurn(context.Background(), "do the thing")

	require.Len(t, cl.sent, 2)
	assert.Contains(t, cl.lastUserContent(1), "I added these files to the chat: util/helpers.py")
	assert.True(t, f.files.Contains("util/helpers.py"))
}

func TestFileMentions(t *testing.T) {
	addable := []string{"src/app.py", "docs/readme.md", "run"}

	got := FileMentions("Please check `src/app.py` and also readme.md, thanks.", addable)
	assert.Equal(t, []string{"docs/readme.md", "src/app.py"}, got)

	// bare words never match basenames without separators
	got = FileMentions("just run it", addable)
	assert.Empty(t, got)
}
