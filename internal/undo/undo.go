// Package undo keeps the session-scoped stack of commits made from edits so
// the most recent one can be rolled back on request.
package undo

import (
	"context"
	"fmt"

	"github.com/Chitius/aider/internal/gitrepo"
)

// Reverter undoes a commit in the repository.
type Reverter interface {
	Revert(ctx context.Context, rec *gitrepo.CommitRecord) error
}

// Stack records commits in the order they were made.
type Stack struct {
	repo Reverter
	recs []*gitrepo.CommitRecord
}

// NewStack creates a Stack backed by the given repository.
func NewStack(repo Reverter) *Stack {
	return &Stack{repo: repo}
}

// Push records a commit. Nil records (nothing was committed) are ignored.
func (s *Stack) Push(rec *gitrepo.CommitRecord) {
	if rec == nil {
		return
	}
	s.recs = append(s.recs, rec)
}

// Len returns the number of undoable commits.
func (s *Stack) Len() int { return len(s.recs) }

// Last returns the most recent commit without removing it.
func (s *Stack) Last() *gitrepo.CommitRecord {
	if len(s.recs) == 0 {
		return nil
	}
	return s.recs[len(s.recs)-1]
}

// UndoLast reverts the most recent commit and pops it. It fails when there
// is nothing to undo or the repository refuses the revert.
func (s *Stack) UndoLast(ctx context.Context) (*gitrepo.CommitRecord, error) {
	if len(s.recs) == 0 {
		return nil, fmt.Errorf("no commits to undo in this session")
	}

	rec := s.recs[len(s.recs)-1]
	if err := s.repo.Revert(ctx, rec); err != nil {
		return nil, err
	}
	s.recs = s.recs[:len(s.recs)-1]
	return rec, nil
}
