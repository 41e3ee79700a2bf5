package coder

import (
	"fmt"
	"strings"
)

const (
	searchMarker  = "<<<<<<< SEARCH"
	dividerMarker = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// extractSearchReplace parses fenced search/replace blocks. Each block is a
// file-path line, the opening fence, a SEARCH marker, the exact original
// text, a divider, the replacement text, a REPLACE marker, and the closing
// fence. The filename inference chain matches the whole-file format.
func (e *Engine) extractSearchReplace(content string, chatFiles []string) ([]EditCandidate, error) {
	lines := splitKeepEnds(content)

	var edits []EditCandidate
	sawFname := ""

	for i := 0; i < len(lines); i++ {
		if !e.isFenceLine(lines[i]) {
			sawFname = scanMention(lines[i], chatFiles, sawFname)
			continue
		}

		fname := ""
		conf := ConfidenceExplicitHeader
		if i > 0 {
			fname = inferHeaderName(lines[i-1], chatFiles)
		}
		if fname == "" {
			switch {
			case sawFname != "":
				fname = sawFname
				conf = ConfidenceInferredFromMention
			case len(chatFiles) == 1:
				fname = chatFiles[0]
				conf = ConfidenceSoleFileDefault
			default:
				return nil, &MalformedError{Reason: fmt.Sprintf(
					"no filename provided before %s on line %d", e.fence.Open, i+1)}
			}
		}

		edit, next, err := e.parseSearchReplaceBlock(lines, i+1, fname, conf)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit)
		sawFname = ""
		i = next
	}

	return edits, nil
}

// parseSearchReplaceBlock consumes marker-delimited sections starting at
// start (the line after the opening fence) and returns the candidate plus
// the index of the closing fence line.
func (e *Engine) parseSearchReplaceBlock(lines []string, start int, fname string, conf Confidence) (EditCandidate, int, error) {
	i := start
	fail := func(format string, args ...any) (EditCandidate, int, error) {
		return EditCandidate{}, 0, &MalformedError{Reason: fmt.Sprintf(format, args...)}
	}

	if i >= len(lines) || strings.TrimRight(lines[i], "\r\n") != searchMarker {
		return fail("expected %q after fence for %s", searchMarker, fname)
	}
	i++

	var search strings.Builder
	for ; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == dividerMarker {
			break
		}
		search.WriteString(lines[i])
	}
	if i >= len(lines) {
		return fail("missing %q divider in block for %s", dividerMarker, fname)
	}
	i++

	var replace strings.Builder
	for ; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r\n") == replaceMarker {
			break
		}
		replace.WriteString(lines[i])
	}
	if i >= len(lines) {
		return fail("missing %q marker in block for %s", replaceMarker, fname)
	}
	i++

	// tolerate a forgotten closing fence at end of input
	if i < len(lines) && e.isFenceLine(lines[i]) {
		// closing fence consumed
	} else if i < len(lines) {
		return fail("expected closing fence after %q for %s", replaceMarker, fname)
	} else {
		i--
	}

	return EditCandidate{
		Path:       fname,
		Confidence: conf,
		Search:     search.String(),
		Replace:    replace.String(),
	}, i, nil
}
