package chat

import (
	"os"
	"path/filepath"
	"sort"
)

// FileContent pairs a relative path with the file's current content.
type FileContent struct {
	Path    string // relative display path
	Content string
}

// FileContext tracks which files are part of the active conversation.
// Paths are stored as absolute paths keyed by their relative display path.
// Every path must resolve to an existing regular file at time of use or it
// is dropped with a diagnostic.
type FileContext struct {
	root  string
	files map[string]string // rel -> abs

	onAdd    func(rel string)
	onRemove func(rel string)
}

// NewFileContext creates a FileContext rooted at the given directory.
func NewFileContext(root string) *FileContext {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &FileContext{
		root:  abs,
		files: make(map[string]string),
	}
}

// Root returns the absolute root directory.
func (fc *FileContext) Root() string {
	return fc.root
}

// AbsPath resolves a relative path against the context root.
func (fc *FileContext) AbsPath(rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(fc.root, rel)
}

// RelPath converts an absolute path to a path relative to the root.
func (fc *FileContext) RelPath(abs string) string {
	rel, err := filepath.Rel(fc.root, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// Notify registers hooks fired when a file enters or leaves the chat,
// including files evicted by Contents. Replaces any earlier hooks.
func (fc *FileContext) Notify(onAdd, onRemove func(rel string)) {
	fc.onAdd = onAdd
	fc.onRemove = onRemove
}

// Add puts a file into the chat by relative path.
func (fc *FileContext) Add(rel string) {
	abs := fc.AbsPath(rel)
	key := fc.RelPath(abs)
	if _, ok := fc.files[key]; ok {
		return
	}
	fc.files[key] = abs
	if fc.onAdd != nil {
		fc.onAdd(key)
	}
}

// Drop removes a file from the chat. Reports whether it was present.
func (fc *FileContext) Drop(rel string) bool {
	key := fc.RelPath(fc.AbsPath(rel))
	if _, ok := fc.files[key]; !ok {
		return false
	}
	fc.evict(key, nil)
	return true
}

func (fc *FileContext) evict(rel string, onDrop func(rel string)) {
	delete(fc.files, rel)
	if onDrop != nil {
		onDrop(rel)
	}
	if fc.onRemove != nil {
		fc.onRemove(rel)
	}
}

// Contains reports whether the relative path is in the chat.
func (fc *FileContext) Contains(rel string) bool {
	_, ok := fc.files[fc.RelPath(fc.AbsPath(rel))]
	return ok
}

// Len returns the number of in-chat files.
func (fc *FileContext) Len() int {
	return len(fc.files)
}

// RelFiles returns the sorted relative paths of all in-chat files.
func (fc *FileContext) RelFiles() []string {
	rels := make([]string, 0, len(fc.files))
	for rel := range fc.files {
		rels = append(rels, rel)
	}
	sort.Strings(rels)
	return rels
}

// Contents reads every in-chat file. Files that no longer resolve to a
// readable regular file are dropped from the context; onDrop is called with
// the relative path of each one.
func (fc *FileContext) Contents(onDrop func(rel string)) []FileContent {
	var out []FileContent
	for _, rel := range fc.RelFiles() {
		abs := fc.files[rel]
		info, err := os.Stat(abs)
		if err != nil || !info.Mode().IsRegular() {
			fc.evict(rel, onDrop)
			continue
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			fc.evict(rel, onDrop)
			continue
		}
		out = append(out, FileContent{Path: rel, Content: string(data)})
	}
	return out
}
