package extract

import (
	"regexp"
	"strings"
)

// patterns are the identifier shapes recognized in bio text, applied in
// order. Each pattern captures the identifier in group 1.
//
// Handles are 5-32 word characters starting with a letter, matching the
// platform's username rules. The domain pattern is deliberately restricted
// to an allow-list of TLDs to keep false positives out of the graph.
var patterns = []*regexp.Regexp{
	// @-mention handles: @name, letter first, 5-32 chars total.
	regexp.MustCompile(`(?i)@([a-zA-Z]\w{4,31})`),

	// t.me paths, optionally schemed; "+" prefix marks invite links.
	regexp.MustCompile(`(?i)(?:https?://)?t\.me/(\+?[a-zA-Z0-9_\-]+)`),

	// Bare domains over the TLD allow-list.
	regexp.MustCompile(`(?i)(?:https?://)?([a-zA-Z0-9][\w\-]*\.(?:io|com|net|org|in|ag|co|me|ru|cc|gg|xyz|dev|app))`),
}

// blacklist holds placeholder strings that carry no intelligence value.
// Matching is case-insensitive.
var blacklist = map[string]bool{
	"nohello":     true,
	"nohello.org": true,
	"nohello.com": true,
	"nohello.net": true,
	"hello":       true,
	"example":     true,
	"test":        true,
	"username":    true,
}

// Extractor extracts contact identifiers from bio text. The zero value is
// ready to use; New exists for symmetry with the other components.
type Extractor struct{}

// New returns a ready-to-use Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the deduplicated identifiers found in text, in first-seen
// order. Duplicates and blacklist entries are compared case-insensitively;
// the first-seen casing is preserved. Empty input yields nil.
func (e *Extractor) Extract(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]bool)
	var links []string
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			link := m[1]
			key := strings.ToLower(link)
			if seen[key] || blacklist[key] {
				continue
			}
			seen[key] = true
			links = append(links, link)
		}
	}
	return links
}
