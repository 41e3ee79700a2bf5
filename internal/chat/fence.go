package chat

import "strings"

// Fence is the delimiter pair marking code blocks in model output.
type Fence struct {
	Open  string
	Close string
}

func wrapFence(name string) Fence {
	return Fence{Open: "<" + name + ">", Close: "</" + name + ">"}
}

// FenceCandidates are the delimiters tried when picking a fence that does
// not collide with file contents, in preference order.
var FenceCandidates = []Fence{
	{Open: "```", Close: "```"},
	wrapFence("source"),
	wrapFence("code"),
	wrapFence("pre"),
	wrapFence("codeblock"),
	wrapFence("sourcecode"),
}

// DefaultFence is the triple-backtick fence.
var DefaultFence = FenceCandidates[0]

// ChooseFence picks the first candidate fence that appears in none of the
// given file contents. If every candidate collides it falls back to the
// first one and reports ok=false so the caller can warn: downstream blocks
// may then be ambiguous, which is surfaced rather than fatal.
func ChooseFence(contents []string) (fence Fence, ok bool) {
	all := strings.Join(contents, "\n")
	for _, f := range FenceCandidates {
		if strings.Contains(all, f.Open) || strings.Contains(all, f.Close) {
			continue
		}
		return f, true
	}
	return DefaultFence, false
}
