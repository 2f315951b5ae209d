package reply

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/enzyme/urlbot/internal/history"
	"github.com/enzyme/urlbot/internal/linkpreview"
)

const (
	ellipsis = "…"
	// zwnj keeps a nick from triggering highlight notifications.
	zwnj = "\u200c"

	absoluteLayout = "2006-01-02 15:04 UTC"

	// minBodyBudget is the least room kept for the title when a repost
	// annotation has to fit on the same line.
	minBodyBudget = 16
)

var failureTags = map[linkpreview.ErrorKind]string{
	linkpreview.KindTimeout:          "[timed out]",
	linkpreview.KindTooLarge:         "[response too large]",
	linkpreview.KindRedirectLoop:     "[too many redirects]",
	linkpreview.KindConnectionFailed: "[connection failed]",
	linkpreview.KindCookiesRequired:  "[requires cookies]",
	linkpreview.KindUnsupported:      "[unsupported content]",
	linkpreview.KindNoTitle:          "[no title found]",
	linkpreview.KindMalformed:        "[unreadable content]",
}

type Options struct {
	Prefix    string
	MaxLength int
	// TimeFormat is "relative" or "absolute".
	TimeFormat     string
	MaskHighlights bool
	// ReportMIME describes unsupported payloads by type and size instead of
	// a tag.
	ReportMIME bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// Formatter renders summaries as single chat lines.
type Formatter struct {
	opts Options
}

func NewFormatter(opts Options) *Formatter {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 510
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Formatter{opts: opts}
}

// Format renders s, annotated with the first sighting prev when the link
// has been posted before.
func (f *Formatter) Format(s linkpreview.Summary, prev *history.Entry) string {
	var body string
	switch s.Kind {
	case linkpreview.SummaryTitle:
		body = s.Title
	case linkpreview.SummaryMedia:
		body = DescribeMedia(s.Media)
	default:
		body = f.failureText(s)
	}

	var annotation string
	if prev != nil && s.OK() {
		annotation = f.annotation(prev)
	}

	prefix := flatten(f.opts.Prefix)
	body = flatten(body)
	annotation = flatten(annotation)

	if len(prefix)+len(body)+len(annotation) <= f.opts.MaxLength {
		return prefix + body + annotation
	}
	if budget := f.opts.MaxLength - len(prefix) - len(annotation); budget >= minBodyBudget {
		return prefix + TruncateBytes(body, budget) + annotation
	}
	return TruncateBytes(prefix+body+annotation, f.opts.MaxLength)
}

func (f *Formatter) failureText(s linkpreview.Summary) string {
	switch s.Failure {
	case linkpreview.KindBadStatus:
		if text := http.StatusText(s.Status); text != "" {
			return fmt.Sprintf("[HTTP %d %s]", s.Status, text)
		}
		return fmt.Sprintf("[HTTP %d]", s.Status)
	case linkpreview.KindUnsupported:
		if f.opts.ReportMIME && s.MIME != "" {
			if s.Size >= 0 {
				return s.MIME + " " + humanize.Bytes(uint64(s.Size))
			}
			return s.MIME
		}
	}
	if tag, ok := failureTags[s.Failure]; ok {
		return tag
	}
	return "[error]"
}

func (f *Formatter) annotation(prev *history.Entry) string {
	nick := prev.Nick
	if f.opts.MaskHighlights {
		nick = MaskNick(nick)
	}

	var b strings.Builder
	b.WriteString(" (first posted by ")
	b.WriteString(nick)
	if prev.Channel != "" {
		b.WriteString(" in ")
		b.WriteString(prev.Channel)
	}
	b.WriteString(", ")
	b.WriteString(f.when(prev.CreatedAt))
	b.WriteString(")")
	return b.String()
}

func (f *Formatter) when(t time.Time) string {
	if f.opts.TimeFormat == "absolute" {
		return t.UTC().Format(absoluteLayout)
	}
	return humanize.RelTime(t, f.opts.Now(), "ago", "from now")
}

// DescribeMedia renders image metadata, e.g. "PNG image, 800×400, 12 kB".
func DescribeMedia(m *linkpreview.Media) string {
	if m == nil {
		return "[unreadable content]"
	}
	s := fmt.Sprintf("%s image, %d×%d", m.Format, m.Width, m.Height)
	if m.Size > 0 {
		s += ", " + humanize.Bytes(uint64(m.Size))
	}
	return s
}

// MaskNick inserts a zero-width non-joiner after the first character so the
// nick is displayed intact but does not highlight its owner.
func MaskNick(nick string) string {
	if nick == "" {
		return nick
	}
	_, size := utf8.DecodeRuneInString(nick)
	// Keep combining marks attached to the first character.
	for size < len(nick) {
		r, n := utf8.DecodeRuneInString(nick[size:])
		if !unicode.Is(unicode.Mn, r) {
			break
		}
		size += n
	}
	return nick[:size] + zwnj + nick[size:]
}

// TruncateBytes shortens s to at most max bytes without splitting a UTF-8
// sequence, marking the cut with an ellipsis.
func TruncateBytes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	cut := max - len(ellipsis)
	marker := ellipsis
	if cut < 0 {
		cut, marker = max, ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRightFunc(s[:cut], unicode.IsSpace) + marker
}

func flatten(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}
