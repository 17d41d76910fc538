package filesystem

import (
	"regexp"
	"strings"

	"github.com/rakunlabs/at/internal/dsal/accessor"
)

// searchMatcher finds occurrences of a query in file content and renders
// a ±context-char window snippet around each, truncating with an ellipsis
// only when the window was actually clipped (scenario S3: a full-content
// match produces a snippet with no ellipses).
type searchMatcher struct {
	re            *regexp.Regexp
	caseSensitive bool
	contextChars  int
}

const defaultContextChars = 40

func newSearchMatcher(query string, opts accessor.SearchOptions) (*searchMatcher, error) {
	// query is literal free-text (as in the notion/googledocs accessors);
	// opts.ContentPattern, when set, is the regex filter applied instead.
	pattern := regexp.QuoteMeta(query)
	if opts.ContentPattern != "" {
		pattern = opts.ContentPattern
	}
	if !opts.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	ctx := opts.ContextLines
	if ctx <= 0 {
		ctx = defaultContextChars
	}
	return &searchMatcher{re: re, caseSensitive: opts.CaseSensitive, contextChars: ctx}, nil
}

func (m *searchMatcher) findSnippets(content string) []string {
	locs := m.re.FindAllStringIndex(content, -1)
	if locs == nil {
		return nil
	}

	var out []string
	for _, loc := range locs {
		start, end := loc[0], loc[1]

		winStart := start - m.contextChars
		if winStart < 0 {
			winStart = 0
		}

		winEnd := end + m.contextChars
		if winEnd > len(content) {
			winEnd = len(content)
		}

		snippet := content[winStart:winEnd]

		var b strings.Builder
		if start-m.contextChars > 0 {
			b.WriteString("...")
		}
		b.WriteString(snippet)
		if end+m.contextChars < len(content) {
			b.WriteString("...")
		}
		out = append(out, b.String())

		if len(out) >= 5 {
			break
		}
	}
	return out
}
