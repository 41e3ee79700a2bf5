package agent

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
)

const addedFilesPrompt = `I added these files to the chat: %s.

If you need to propose edits to other existing files not already added to the chat, you *MUST* tell me their full path names and ask me to *add the files to the chat*. End your reply and wait for my approval. You can keep asking if you then decide you need to edit more files.`

// FileMentions returns the addable files named in the text, by full
// relative path or by unambiguous basename. Basenames that could be plain
// words (no path separator, dot, underscore, or dash) never match.
func FileMentions(text string, addable []string) []string {
	words := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		word = strings.TrimRight(word, ",.!;:")
		word = strings.Trim(word, "\"'`")
		words[strings.ReplaceAll(word, "\\", "/")] = true
	}

	mentioned := make(map[string]bool)
	baseToRel := make(map[string][]string)

	for _, rel := range addable {
		normalized := strings.ReplaceAll(rel, "\\", "/")
		if words[normalized] {
			mentioned[rel] = true
		}

		base := path.Base(normalized)
		if strings.ContainsAny(base, "/._-") {
			baseToRel[base] = append(baseToRel[base], rel)
		}
	}

	for base, rels := range baseToRel {
		if len(rels) == 1 && words[base] {
			mentioned[rels[0]] = true
		}
	}

	out := make([]string, 0, len(mentioned))
	for rel := range mentioned {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// scanMentions checks the assistant's reply for files it wants that are not
// in the chat yet. With user approval they are added and an added-files
// notice is returned for the next cycle.
func (o *Orchestrator) scanMentions(ctx context.Context, content string) string {
	mentioned := FileMentions(content, o.addableFiles(ctx))
	if len(mentioned) == 0 {
		return ""
	}

	for _, rel := range mentioned {
		o.io.ToolOutput(rel)
	}
	if !o.io.Confirm("Add these files to the chat?") {
		return ""
	}

	for _, rel := range mentioned {
		o.files.Add(rel)
	}
	return fmt.Sprintf(addedFilesPrompt, strings.Join(mentioned, ", "))
}

// addableFiles lists tracked files that are not in the chat yet.
func (o *Orchestrator) addableFiles(ctx context.Context) []string {
	if o.repo == nil {
		return nil
	}
	tracked, err := o.repo.TrackedFiles(ctx)
	if err != nil {
		return nil
	}

	var addable []string
	for _, rel := range tracked {
		if !o.files.Contains(rel) {
			addable = append(addable, rel)
		}
	}
	return addable
}
