// Package coder recovers structured file edits from unstructured, sometimes
// malformed model output. Extraction is tolerant: filenames are inferred
// through a confidence-ranked heuristic chain and a forgotten final fence is
// treated as an implicit close.
package coder

import (
	"fmt"
	"strings"

	"github.com/Chitius/aider/internal/chat"
)

// Confidence ranks how a candidate's filename was resolved. Higher values
// win when deduplicating edits to the same path.
type Confidence int

const (
	// ConfidenceSoleFileDefault means exactly one file was in chat and the
	// block defaulted to it.
	ConfidenceSoleFileDefault Confidence = iota
	// ConfidenceInferredFromMention means an earlier prose line quoted the
	// filename in backticks.
	ConfidenceInferredFromMention
	// ConfidenceExplicitHeader means the line above the fence named the file.
	ConfidenceExplicitHeader
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceExplicitHeader:
		return "explicit-header"
	case ConfidenceInferredFromMention:
		return "inferred-from-mention"
	case ConfidenceSoleFileDefault:
		return "sole-file-default"
	default:
		return "unknown"
	}
}

// EditCandidate is a parsed, not-yet-applied proposed change to one file.
// Candidates are turn-scoped and never persisted.
type EditCandidate struct {
	Path       string
	Confidence Confidence

	// Lines holds the complete new content for the whole-file format,
	// with line endings preserved.
	Lines []string

	// Search/Replace hold the search-replace format payload. Search
	// applies to all occurrences.
	Search  string
	Replace string

	// Hunk holds one unified-diff hunk (prefixed lines). NewFile marks a
	// /dev/null origin.
	Hunk    []string
	NewFile bool
}

// MalformedError means the parser could not resolve a filename or fence
// pairing. It is recoverable: the orchestrator feeds it back as reflection.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return e.Reason
}

// Format is the closed set of edit wire formats, selected once per session.
type Format int

const (
	FormatWholeFile Format = iota
	FormatSearchReplace
	FormatUnifiedDiff
)

// ParseFormat maps a config string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "whole", "":
		return FormatWholeFile, nil
	case "diff", "search-replace":
		return FormatSearchReplace, nil
	case "udiff":
		return FormatUnifiedDiff, nil
	default:
		return 0, fmt.Errorf("unknown edit format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case FormatWholeFile:
		return "whole"
	case FormatSearchReplace:
		return "diff"
	case FormatUnifiedDiff:
		return "udiff"
	default:
		return "unknown"
	}
}

// Engine extracts and applies edits for one session's chosen format.
type Engine struct {
	format Format
	fence  chat.Fence
}

// NewEngine creates an engine for the given format with the default fence.
func NewEngine(format Format) *Engine {
	return &Engine{format: format, fence: chat.DefaultFence}
}

// Format returns the engine's wire format.
func (e *Engine) Format() Format {
	return e.format
}

// SetFence updates the fence chosen for the current turn.
func (e *Engine) SetFence(f chat.Fence) {
	e.fence = f
}

// Extract parses accumulated response text into an ordered set of edit
// candidates. chatFiles are the in-chat relative paths used by the filename
// inference chain.
func (e *Engine) Extract(content string, chatFiles []string) ([]EditCandidate, error) {
	switch e.format {
	case FormatSearchReplace:
		return e.extractSearchReplace(content, chatFiles)
	case FormatUnifiedDiff:
		return e.extractUnifiedDiff(content)
	default:
		return e.extractWholeFile(content, chatFiles)
	}
}

// splitKeepEnds splits text into lines, each retaining its trailing newline.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			return lines
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
		if s == "" {
			return lines
		}
	}
}

func containsPath(paths []string, p string) bool {
	for _, q := range paths {
		if q == p {
			return true
		}
	}
	return false
}

// dedupe keeps, for each path, only the candidate from the highest-
// confidence source. Within a tier the first-seen candidate wins; a later
// same-confidence edit to the same path is discarded.
func dedupe(edits []EditCandidate) []EditCandidate {
	seen := make(map[string]bool)
	var refined []EditCandidate
	for _, conf := range []Confidence{
		ConfidenceExplicitHeader,
		ConfidenceInferredFromMention,
		ConfidenceSoleFileDefault,
	} {
		for _, edit := range edits {
			if edit.Confidence != conf || seen[edit.Path] {
				continue
			}
			seen[edit.Path] = true
			refined = append(refined, edit)
		}
	}
	return refined
}
