// Package gitrepo wraps the git command line for the chat session: dirty
// checks, attributed commits, and tracked-file listings. All operations
// shell out to git the same way a user would.
package gitrepo

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Chitius/aider/internal/logging"
)

// CommitRecord identifies a commit made during the session so it can be
// undone later.
type CommitRecord struct {
	Hash    string
	Message string
}

// Repo is a handle on the working repository.
type Repo struct {
	root string

	// attribute appends an attribution trailer to commit messages for
	// commits that contain generated edits.
	attribute bool

	ignore *IgnoreFile
}

// Discover locates the repository containing dir. It returns nil without
// error when dir is not inside a git work tree.
func Discover(dir string, attribute bool) (*Repo, error) {
	out, err := runGit(context.Background(), dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if _, lookErr := exec.LookPath("git"); lookErr != nil {
			return nil, fmt.Errorf("git not found in PATH: %w", lookErr)
		}
		// not a repository
		return nil, nil
	}

	root := strings.TrimSpace(out)
	r := &Repo{root: root, attribute: attribute}
	r.ignore = LoadIgnoreFile(filepath.Join(root, ".aiderignore"))
	return r, nil
}

// Root returns the absolute path of the repository work tree.
func (r *Repo) Root() string { return r.root }

// PathInRepo reports whether the relative path is inside the work tree and
// not excluded by .aiderignore.
func (r *Repo) PathInRepo(rel string) bool {
	if strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return false
	}
	return !r.ignore.Ignored(rel)
}

// IsDirty reports whether any of the given paths (or the whole tree when
// paths is empty) has uncommitted changes.
func (r *Repo) IsDirty(ctx context.Context, paths ...string) bool {
	args := []string{"status", "--porcelain"}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := runGit(ctx, r.root, args...)
	if err != nil {
		logging.Warn("git status failed", "error", err)
		return false
	}
	return strings.TrimSpace(out) != ""
}

// TrackedFiles lists all files known to git, relative to the work tree.
func (r *Repo) TrackedFiles(ctx context.Context) ([]string, error) {
	out, err := runGit(ctx, r.root, "ls-files")
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || r.ignore.Ignored(line) {
			continue
		}
		files = append(files, line)
	}
	return files, nil
}

// Add stages the given relative paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	if _, err := runGit(ctx, r.root, args...); err != nil {
		return fmt.Errorf("git add: %w", err)
	}
	return nil
}

// Commit stages the given paths and commits them with the message. It
// returns nil when there was nothing to commit. The attributed flag marks
// the commit as containing generated edits.
func (r *Repo) Commit(ctx context.Context, paths []string, message string, attributed bool) (*CommitRecord, error) {
	if message == "" {
		message = "aider: changes"
	}
	if attributed && r.attribute {
		message += " (aider)"
	}

	if err := r.Add(ctx, paths...); err != nil {
		return nil, err
	}

	args := []string{"commit", "-m", message}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	} else {
		args = append(args, "-a")
	}
	if !r.IsDirty(ctx, paths...) {
		return nil, nil
	}
	if _, err := runGit(ctx, r.root, args...); err != nil {
		return nil, fmt.Errorf("git commit: %w", err)
	}

	hash, err := runGit(ctx, r.root, "rev-parse", "--short", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("git rev-parse: %w", err)
	}

	rec := &CommitRecord{Hash: strings.TrimSpace(hash), Message: message}
	logging.Info("committed", "hash", rec.Hash, "message", rec.Message)
	return rec, nil
}

// DiffCommit returns the diff introduced by the given commit.
func (r *Repo) DiffCommit(ctx context.Context, hash string) (string, error) {
	out, err := runGit(ctx, r.root, "show", "--format=", hash)
	if err != nil {
		return "", fmt.Errorf("git show: %w", err)
	}
	return out, nil
}

// HeadHash returns the abbreviated hash of HEAD, or "" before any commit.
func (r *Repo) HeadHash(ctx context.Context) string {
	out, err := runGit(ctx, r.root, "rev-parse", "--short", "HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// Revert undoes the given commit with a new revert commit. It refuses when
// HEAD has moved past the commit, since reverting would then clobber later
// work.
func (r *Repo) Revert(ctx context.Context, rec *CommitRecord) error {
	head := r.HeadHash(ctx)
	if head != rec.Hash {
		return fmt.Errorf("HEAD is %s, not %s; cannot undo", head, rec.Hash)
	}
	if _, err := runGit(ctx, r.root, "revert", "--no-edit", rec.Hash); err != nil {
		return fmt.Errorf("git revert: %w", err)
	}
	return nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
