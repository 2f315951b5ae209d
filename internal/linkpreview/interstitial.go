package linkpreview

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// shortPageText is the visible-text length below which a page is treated as
// a bare notice rather than real content.
const shortPageText = 600

var challengeTitles = []string{
	"just a moment...",
	"attention required! | cloudflare",
	"please wait...",
	"ddos-guard",
}

// challengeSelector matches markup injected by common CDN bot challenges.
const challengeSelector = `script[src*="challenge-platform"], form#challenge-form, #cf-wrapper, [id^="cf-chl"], [class*="cf-chl"]`

// wallTitles are title prefixes used by consent and notice pages. A page
// titled this way carries no usable title of its own.
var wallTitles = []string{
	"before you continue",
	"cookie consent",
	"cookies required",
	"javascript required",
	"enable javascript",
}

var wallPhrases = []string{
	"enable cookies",
	"cookies are disabled",
	"cookies must be enabled",
	"accept cookies to continue",
	"enable javascript",
	"javascript is disabled",
	"javascript is required",
	"requires javascript",
	"turn javascript on",
}

// IsInterstitial reports whether a page is a cookie-consent wall or a
// JavaScript challenge rather than the requested content.
func IsInterstitial(finalURL string, body []byte) bool {
	if u, err := url.Parse(finalURL); err == nil && consentHost(u.Hostname()) {
		return true
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, t := range challengeTitles {
		if title == t {
			return true
		}
	}
	if doc.Find(challengeSelector).Length() > 0 {
		return true
	}

	// A real title is what the reply needs; text heuristics only decide
	// for pages that lack one.
	if usableTitle(title) {
		return false
	}

	doc.Find("script, style, template").Remove()
	noscript := normalizeText(doc.Find("noscript").Text())
	doc.Find("noscript").Remove()
	text := normalizeText(doc.Find("body").Text())
	if len(text) > shortPageText {
		return false
	}
	for _, phrase := range wallPhrases {
		if strings.Contains(text, phrase) || (text == "" && strings.Contains(noscript, phrase)) {
			return true
		}
	}
	return false
}

func usableTitle(title string) bool {
	if title == "" {
		return false
	}
	for _, prefix := range wallTitles {
		if strings.HasPrefix(title, prefix) {
			return false
		}
	}
	return true
}

func consentHost(host string) bool {
	host = strings.ToLower(host)
	return strings.HasPrefix(host, "consent.") || strings.HasPrefix(host, "guce.")
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
