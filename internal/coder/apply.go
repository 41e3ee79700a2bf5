package coder

import (
	"fmt"
	"os"
	"strings"

	"github.com/Chitius/aider/internal/fileutil"
)

// Apply writes candidates to disk, in order. resolve maps a relative path
// to an absolute one. Writes are atomic per file; a search or hunk that no
// longer matches yields a MalformedError so the orchestrator can reflect.
func (e *Engine) Apply(cands []EditCandidate, resolve func(rel string) string) error {
	for _, cand := range cands {
		if err := e.applyOne(cand, resolve(cand.Path)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyOne(cand EditCandidate, abs string) error {
	switch e.format {
	case FormatSearchReplace:
		return applySearchReplace(cand, abs)
	case FormatUnifiedDiff:
		return applyHunk(cand, abs)
	default:
		return fileutil.AtomicWriteString(abs, strings.Join(cand.Lines, ""), 0644)
	}
}

func readExisting(abs string) string {
	data, err := os.ReadFile(abs)
	if err != nil {
		return ""
	}
	return string(data)
}

func applySearchReplace(cand EditCandidate, abs string) error {
	content := readExisting(abs)

	if cand.Search == "" {
		// empty SEARCH populates a new or empty file
		return fileutil.AtomicWriteString(abs, content+cand.Replace, 0644)
	}

	if !strings.Contains(content, cand.Search) {
		return &MalformedError{Reason: fmt.Sprintf(
			"SEARCH block did not match any content in %s", cand.Path)}
	}

	updated := strings.ReplaceAll(content, cand.Search, cand.Replace)
	return fileutil.AtomicWriteString(abs, updated, 0644)
}

func applyHunk(cand EditCandidate, abs string) error {
	before, after := hunkBeforeAfter(cand.Hunk)

	if cand.NewFile {
		return fileutil.AtomicWriteString(abs, after, 0644)
	}

	content := readExisting(abs)
	if before == "" {
		return fileutil.AtomicWriteString(abs, content+after, 0644)
	}

	if !strings.Contains(content, before) {
		return &MalformedError{Reason: fmt.Sprintf(
			"hunk failed to apply: context not found in %s", cand.Path)}
	}

	updated := strings.Replace(content, before, after, 1)
	return fileutil.AtomicWriteString(abs, updated, 0644)
}
