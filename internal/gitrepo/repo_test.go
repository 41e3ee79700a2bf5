package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	return dir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscoverOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	repo, err := Discover(t.TempDir(), false)
	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestCommitAndDirty(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()

	repo, err := Discover(dir, true)
	require.NoError(t, err)
	require.NotNil(t, repo)

	writeFile(t, dir, "app.py", "x = 1\n")
	assert.True(t, repo.IsDirty(ctx, "app.py"))

	rec, err := repo.Commit(ctx, []string{"app.py"}, "add app", true)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.NotEmpty(t, rec.Hash)
	assert.Contains(t, rec.Message, "(aider)")
	assert.False(t, repo.IsDirty(ctx, "app.py"))
}

func TestCommitNothingToCommit(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()

	repo, err := Discover(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "a\n")
	_, err = repo.Commit(ctx, []string{"a.txt"}, "first", false)
	require.NoError(t, err)

	// identical second commit request is a no-op
	rec, err := repo.Commit(ctx, []string{"a.txt"}, "again", false)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestTrackedFilesRespectsIgnore(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()

	writeFile(t, dir, ".aiderignore", "secret.txt\n")

	repo, err := Discover(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "keep.txt", "k\n")
	writeFile(t, dir, "secret.txt", "s\n")
	_, err = repo.Commit(ctx, []string{"keep.txt", "secret.txt", ".aiderignore"}, "seed", false)
	require.NoError(t, err)

	files, err := repo.TrackedFiles(ctx)
	require.NoError(t, err)
	assert.Contains(t, files, "keep.txt")
	assert.NotContains(t, files, "secret.txt")
}

func TestRevertRefusesWhenHeadMoved(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()

	repo, err := Discover(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "1\n")
	rec, err := repo.Commit(ctx, []string{"a.txt"}, "one", false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	writeFile(t, dir, "a.txt", "2\n")
	_, err = repo.Commit(ctx, []string{"a.txt"}, "two", false)
	require.NoError(t, err)

	assert.Error(t, repo.Revert(ctx, rec))
}

func TestIgnoreFilePatterns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".aiderignore")
	require.NoError(t, os.WriteFile(path, []byte("# comment\n*.log\nbuild/\nnode_modules\n"), 0644))

	ig := LoadIgnoreFile(path)
	assert.True(t, ig.Ignored("debug.log"))
	assert.True(t, ig.Ignored("build/out.txt"))
	assert.True(t, ig.Ignored("pkg/node_modules"))
	assert.False(t, ig.Ignored("main.go"))
}
