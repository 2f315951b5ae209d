package linkpreview

import (
	"net/url"
	"regexp"
	"slices"
	"strings"
)

var (
	// bracketLinkPattern matches <url> and <url|label> markup from chat bridges.
	bracketLinkPattern = regexp.MustCompile(`(?i)<(https?://[^|>\s]+)(?:\|[^>]*)?>`)

	// markdownLinkPattern matches [label](url), allowing one level of
	// balanced parentheses inside the URL.
	markdownLinkPattern = regexp.MustCompile(`(?i)\[[^\]]*\]\((https?://[^\s()]+(?:\([^\s()]*\)[^\s()]*)*)\)`)

	// urlPattern matches bare http(s) URLs in message text.
	urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>"]+`)
)

// unsafeChars may not appear unescaped in a URL (RFC 1738 section 2.2).
const unsafeChars = "{}|\\^[]`"

type candidate struct {
	pos       int
	raw       string
	delimited bool
}

// ExtractURLs returns the http(s) links in content in order of first
// appearance, without duplicates. Delimited forms (<url>, <url|label>,
// [label](url)) are recognised alongside bare URLs.
func ExtractURLs(content string) []string {
	var found []candidate

	masked := []byte(content)
	for _, re := range []*regexp.Regexp{bracketLinkPattern, markdownLinkPattern} {
		for _, loc := range re.FindAllSubmatchIndex(masked, -1) {
			found = append(found, candidate{
				pos:       loc[0],
				raw:       string(masked[loc[2]:loc[3]]),
				delimited: true,
			})
			for i := loc[0]; i < loc[1]; i++ {
				masked[i] = ' '
			}
		}
	}
	for _, loc := range urlPattern.FindAllIndex(masked, -1) {
		found = append(found, candidate{pos: loc[0], raw: string(masked[loc[0]:loc[1]])})
	}

	slices.SortStableFunc(found, func(a, b candidate) int { return a.pos - b.pos })

	var urls []string
	seen := make(map[string]bool, len(found))
	for _, c := range found {
		u, ok := cleanURL(c.raw, c.delimited)
		if !ok || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

func cleanURL(raw string, delimited bool) (string, bool) {
	if !delimited {
		raw = trimTrailing(raw)
	}
	if strings.ContainsAny(raw, unsafeChars) {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	if u.Hostname() == "" {
		return "", false
	}
	return raw, true
}

// trailingPunct is sentence punctuation that never ends a bare URL,
// including the CJK full-width marks.
const trailingPunct = ".,;:!?'\"*\u3002\u3001\uff0c\uff01\uff1f\uff1b\uff1a"

// trimTrailing strips sentence punctuation, quotes and unbalanced closing
// brackets from the end of a bare URL.
func trimTrailing(s string) string {
	for {
		n := len(s)
		s = strings.TrimRight(s, trailingPunct)
		for _, pair := range []string{"()", "[]"} {
			open, closing := pair[:1], pair[1:]
			if strings.HasSuffix(s, closing) && strings.Count(s, open) < strings.Count(s, closing) {
				s = s[:len(s)-1]
			}
		}
		if len(s) == n {
			return s
		}
	}
}
