// Package gate decides which proposed edits may touch the working tree.
// Every target path is resolved to a decision before any edit is applied,
// so a refusal in the middle of a batch never leaves earlier edits half
// done.
package gate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/coder"
	"github.com/Chitius/aider/internal/gitrepo"
	"github.com/Chitius/aider/internal/logging"
)

// VCS is the slice of repository behavior the gate needs. Nil means no
// repository.
type VCS interface {
	PathInRepo(rel string) bool
	IsDirty(ctx context.Context, paths ...string) bool
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, paths []string, message string, attributed bool) (*gitrepo.CommitRecord, error)
}

// Prompter asks the user for permission and reports diagnostics.
type Prompter interface {
	Confirm(question string) bool
	ToolOutput(messages ...string)
	ToolError(message string)
}

// Gate mediates edit permission for one session.
type Gate struct {
	files *chat.FileContext
	repo  VCS
	io    Prompter

	dryRun       bool
	dirtyCommits bool
}

// New creates a Gate. repo may be nil when the session runs outside git.
func New(files *chat.FileContext, repo VCS, io Prompter, dryRun, dirtyCommits bool) *Gate {
	return &Gate{files: files, repo: repo, io: io, dryRun: dryRun, dirtyCommits: dirtyCommits}
}

// Resolve filters candidates down to the approved set. Each distinct path
// is decided once per batch; the decision is reused for later candidates
// touching the same path. Dirty in-chat files are committed before the
// approved set is returned so the pre-edit state stays recoverable.
func (g *Gate) Resolve(ctx context.Context, cands []coder.EditCandidate) ([]coder.EditCandidate, error) {
	decisions := make(map[string]bool)
	needCommit := make(map[string]bool)

	var approved []coder.EditCandidate
	for _, cand := range cands {
		allowed, seen := decisions[cand.Path]
		if !seen {
			allowed = g.allow(ctx, cand.Path, needCommit)
			decisions[cand.Path] = allowed
		}
		if allowed {
			approved = append(approved, cand)
		}
	}

	if len(needCommit) > 0 {
		paths := make([]string, 0, len(needCommit))
		for p := range needCommit {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		if _, err := g.repo.Commit(ctx, paths, "aider: committing dirty files before edits", false); err != nil {
			return nil, fmt.Errorf("pre-edit commit: %w", err)
		}
	}

	return approved, nil
}

// allow implements the per-path decision: in-chat files pass, new files and
// files outside the chat need confirmation.
func (g *Gate) allow(ctx context.Context, rel string, needCommit map[string]bool) bool {
	abs := g.files.AbsPath(rel)

	needAdd := g.repo != nil && !g.repo.PathInRepo(rel)

	if g.files.Contains(rel) {
		g.markDirty(ctx, rel, needCommit)
		return true
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		if !g.io.Confirm(fmt.Sprintf("Allow creation of new file %s?", rel)) {
			g.io.ToolError(fmt.Sprintf("Skipping edits to %s", rel))
			return false
		}

		if !g.dryRun {
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				g.io.ToolError(fmt.Sprintf("Unable to create %s: %v", rel, err))
				return false
			}
			if err := os.WriteFile(abs, nil, 0644); err != nil {
				g.io.ToolError(fmt.Sprintf("Unable to create %s: %v", rel, err))
				return false
			}
			if needAdd {
				if err := g.repo.Add(ctx, rel); err != nil {
					logging.Warn("git add failed", "path", rel, "error", err)
				}
			}
		}

		g.files.Add(rel)
		return true
	}

	if !g.io.Confirm(fmt.Sprintf("Allow edits to %s which was not previously added to chat?", rel)) {
		g.io.ToolError(fmt.Sprintf("Skipping edits to %s", rel))
		return false
	}

	if needAdd && !g.dryRun {
		if err := g.repo.Add(ctx, rel); err != nil {
			logging.Warn("git add failed", "path", rel, "error", err)
		}
	}

	g.files.Add(rel)
	g.markDirty(ctx, rel, needCommit)
	return true
}

func (g *Gate) markDirty(ctx context.Context, rel string, needCommit map[string]bool) {
	if g.repo == nil || !g.dirtyCommits {
		return
	}
	if !g.repo.IsDirty(ctx, rel) {
		return
	}
	g.io.ToolOutput(fmt.Sprintf("Committing %s before applying edits.", rel))
	needCommit[rel] = true
}
