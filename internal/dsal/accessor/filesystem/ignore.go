package filesystem

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// ignoreSet combines .gitignore and .bbignore patterns found at the root
// of a data source (spec §6 "the native gitignore/bbignore file format:
// one pattern per line, # comments, ! negation").
type ignoreSet struct {
	matcher        gitignore.Matcher
	gitignoreFound bool
	bbignoreFound  bool
}

func loadIgnoreSet(root string) *ignoreSet {
	var patterns []gitignore.Pattern

	set := &ignoreSet{}
	if ps, ok := readPatternFile(filepath.Join(root, ".gitignore")); ok {
		patterns = append(patterns, ps...)
		set.gitignoreFound = true
	}
	if ps, ok := readPatternFile(filepath.Join(root, ".bbignore")); ok {
		patterns = append(patterns, ps...)
		set.bbignoreFound = true
	}

	set.matcher = gitignore.NewMatcher(patterns)
	return set
}

func readPatternFile(path string) ([]gitignore.Pattern, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, true
}

func (s *ignoreSet) matches(rel string, isDir bool) bool {
	if s == nil || s.matcher == nil {
		return false
	}
	parts := strings.Split(rel, "/")
	return s.matcher.Match(parts, isDir)
}
