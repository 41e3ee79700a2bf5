package coder

import (
	"fmt"
	"path"
	"strings"
)

// inferHeaderName resolves a filename from the line immediately above an
// opening fence. Markup (bold markers, backticks, a trailing colon) is
// stripped. A name not in chat whose basename is in chat is corrected to
// the in-chat basename, guarding against an invented path prefix.
func inferHeaderName(prev string, chatFiles []string) string {
	name := strings.TrimSpace(prev)
	name = strings.Trim(name, "*")
	name = strings.TrimRight(name, ":")
	name = strings.Trim(name, "`")

	if name != "" && !containsPath(chatFiles, name) && containsPath(chatFiles, path.Base(name)) {
		name = path.Base(name)
	}
	return name
}

// scanMention updates the last backtick-quoted in-chat filename seen in a
// prose line, e.g. the model saying "we can update `app.py` like so".
func scanMention(line string, chatFiles []string, saw string) string {
	for _, word := range strings.Fields(strings.TrimSpace(line)) {
		word = strings.TrimRight(word, ".:,;!")
		for _, cf := range chatFiles {
			if word == "`"+cf+"`" {
				saw = cf
			}
		}
	}
	return saw
}

func (e *Engine) isFenceLine(line string) bool {
	trimmed := strings.TrimRight(line, "\r\n")
	return strings.HasPrefix(trimmed, e.fence.Open) || strings.HasPrefix(trimmed, e.fence.Close)
}

// extractWholeFile scans for fence-delimited blocks each replacing a whole
// file. A fence line toggles block state; on opening, the filename comes
// from the preceding line, an earlier backtick mention, or the sole in-chat
// file, in that order. A trailing block with no closing fence is closed
// implicitly at end of input.
func (e *Engine) extractWholeFile(content string, chatFiles []string) ([]EditCandidate, error) {
	lines := splitKeepEnds(content)

	var edits []EditCandidate
	var newLines []string
	sawFname := ""
	fname := ""
	conf := ConfidenceExplicitHeader
	inBlock := false

	for i, line := range lines {
		if e.isFenceLine(line) {
			if inBlock {
				edits = append(edits, EditCandidate{Path: fname, Confidence: conf, Lines: newLines})
				inBlock = false
				fname = ""
				sawFname = ""
				newLines = nil
				continue
			}

			fname = ""
			conf = ConfidenceExplicitHeader
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
			inBlock = true
			continue
		}

		if inBlock {
			newLines = append(newLines, line)
			continue
		}

		sawFname = scanMention(line, chatFiles, sawFname)
	}

	if inBlock && fname != "" {
		// the model forgot the final fence
		edits = append(edits, EditCandidate{Path: fname, Confidence: conf, Lines: newLines})
	}

	return dedupe(edits), nil
}
