package coder

import "strings"

// extractUnifiedDiff parses standard unified diffs: ---/+++ headers and
// @@ hunks without line numbers. New files use /dev/null as the origin
// path. Fence lines around the diff are tolerated and skipped.
func (e *Engine) extractUnifiedDiff(content string) ([]EditCandidate, error) {
	lines := splitKeepEnds(content)

	var edits []EditCandidate
	curPath := ""
	newFile := false
	var hunk []string
	inHunk := false

	flush := func() {
		if inHunk && len(hunk) > 0 && curPath != "" {
			edits = append(edits, EditCandidate{
				Path:       curPath,
				Confidence: ConfidenceExplicitHeader,
				Hunk:       hunk,
				NewFile:    newFile,
			})
		}
		hunk = nil
		inHunk = false
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(trimmed, "--- "):
			flush()
			newFile = strings.TrimSpace(trimmed[4:]) == "/dev/null"

		case strings.HasPrefix(trimmed, "+++ "):
			curPath = stripDiffPath(strings.TrimSpace(trimmed[4:]))

		case strings.HasPrefix(trimmed, "@@"):
			flush()
			if curPath == "" {
				return nil, &MalformedError{Reason: "hunk without +++ file header in diff"}
			}
			inHunk = true

		case e.isFenceLine(line):
			flush()

		case inHunk:
			if len(trimmed) > 0 && !strings.ContainsRune(" -+", rune(trimmed[0])) {
				// prose inside a hunk ends it
				flush()
				continue
			}
			hunk = append(hunk, line)
		}
	}
	flush()

	if len(edits) == 0 && strings.Contains(content, "@@") {
		return nil, &MalformedError{Reason: "could not parse any hunks from diff"}
	}

	return edits, nil
}

// stripDiffPath removes the conventional a/ or b/ prefix from a diff path.
func stripDiffPath(p string) string {
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}

// hunkBeforeAfter splits a hunk's prefixed lines into the text the hunk
// expects to find and the text that replaces it.
func hunkBeforeAfter(hunk []string) (before, after string) {
	var b, a strings.Builder
	for _, line := range hunk {
		body := line
		prefix := byte(' ')
		if len(line) > 0 && (line[0] == ' ' || line[0] == '-' || line[0] == '+') {
			prefix = line[0]
			body = line[1:]
		}
		switch prefix {
		case ' ':
			b.WriteString(body)
			a.WriteString(body)
		case '-':
			b.WriteString(body)
		case '+':
			a.WriteString(body)
		}
	}
	return b.String(), a.String()
}
