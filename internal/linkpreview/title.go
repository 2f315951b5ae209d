package linkpreview

import (
	"bytes"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const ellipsis = "…"

// ExtractTitle returns the display title of an HTML document: the first
// <title>, falling back to og:title and twitter:title. The result is
// whitespace-collapsed and truncated to maxLen runes.
func ExtractTitle(body []byte, contentType string, maxLen int) (string, error) {
	var r io.Reader = bytes.NewReader(body)
	if cr, err := charset.NewReader(r, contentType); err == nil {
		r = cr
	} else {
		r = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &FetchError{Kind: KindMalformed, Err: err}
	}

	title := CleanText(doc.Find("title").First().Text())
	if title == "" {
		for _, sel := range []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`} {
			if v, ok := doc.Find(sel).First().Attr("content"); ok {
				if title = CleanText(v); title != "" {
					break
				}
			}
		}
	}
	if title == "" {
		return "", &FetchError{Kind: KindNoTitle}
	}
	return Truncate(title, maxLen), nil
}

// CleanText collapses whitespace runs, drops control and format characters
// and repairs invalid UTF-8.
func CleanText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most maxLen runes, marking the cut with an
// ellipsis.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return strings.TrimRightFunc(string(runes[:maxLen-1]), unicode.IsSpace) + ellipsis
}
