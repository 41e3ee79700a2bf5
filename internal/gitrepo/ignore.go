package gitrepo

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnoreFile holds the glob patterns from an .aiderignore file. Files that
// match are invisible to the session: never offered, never edited.
type IgnoreFile struct {
	patterns []string
}

// LoadIgnoreFile reads the ignore file at path. A missing file yields an
// empty matcher.
func LoadIgnoreFile(path string) *IgnoreFile {
	ig := &IgnoreFile{}

	f, err := os.Open(path)
	if err != nil {
		return ig
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ig.patterns = append(ig.patterns, line)
	}
	return ig
}

// Ignored reports whether the relative path matches any pattern. Directory
// patterns (trailing slash) match everything beneath them.
func (ig *IgnoreFile) Ignored(rel string) bool {
	if ig == nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, p := range ig.patterns {
		if strings.HasSuffix(p, "/") {
			p += "**"
		}
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
		// bare names match at any depth, like gitignore
		if !strings.Contains(p, "/") {
			if ok, err := doublestar.Match("**/"+p, rel); err == nil && ok {
				return true
			}
		}
	}
	return false
}
