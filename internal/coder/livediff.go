package coder

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RenderLiveDiff produces a user-facing rendering of the in-progress
// response: prose passes through, and each whole-file block becomes a
// partial unified diff of the original content against the accumulated
// block content. It tolerates an incomplete trailing block and never
// mutates any file. Non-whole-file formats already stream a readable diff
// shape, so their text is returned unchanged.
func (e *Engine) RenderLiveDiff(content string, chatFiles []string, readFile func(rel string) (string, bool)) string {
	if e.format != FormatWholeFile {
		return content
	}

	lines := splitKeepEnds(content)

	var out []string
	var newLines []string
	sawFname := ""
	fname := ""
	inBlock := false

	emit := func(final bool) {
		orig, ok := readFile(fname)
		if !ok {
			out = append(out, e.fence.Open+"\n")
			out = append(out, newLines...)
			out = append(out, e.fence.Close+"\n")
			return
		}
		out = append(out, partialDiff(orig, strings.Join(newLines, ""), final))
	}

	for i, line := range lines {
		if e.isFenceLine(line) {
			if inBlock {
				emit(true)
				inBlock = false
				fname = ""
				sawFname = ""
				newLines = nil
				continue
			}

			fname = ""
			if i > 0 {
				fname = inferHeaderName(lines[i-1], chatFiles)
			}
			if fname == "" {
				if sawFname != "" {
					fname = sawFname
				} else if len(chatFiles) == 1 {
					fname = chatFiles[0]
				}
			}
			if fname == "" {
				// keep rendering; extraction will report this block
				out = append(out, line)
				continue
			}
			inBlock = true
			continue
		}

		if inBlock {
			newLines = append(newLines, line)
			continue
		}

		sawFname = scanMention(line, chatFiles, sawFname)
		out = append(out, line)
	}

	if inBlock && fname != "" {
		emit(false)
	}

	return strings.Join(out, "")
}

// partialDiff renders a line diff of orig against updated. When the block
// is still streaming (final=false) the not-yet-reached tail of the
// original is appended to the updated side so it does not show as deleted.
func partialDiff(orig, updated string, final bool) string {
	if !final {
		origLines := splitKeepEnds(orig)
		doneLines := len(splitKeepEnds(updated))
		if doneLines < len(origLines) {
			updated += strings.Join(origLines[doneLines:], "")
		}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(orig, updated)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitKeepEnds(d.Text) {
			out.WriteString(prefix)
			out.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
