package linkpreview

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a link could not be summarised.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota + 1
	KindTooLarge
	KindBadStatus
	KindRedirectLoop
	KindConnectionFailed
	KindCookiesRequired
	KindUnsupported
	KindNoTitle
	KindMalformed
)

var kindNames = map[ErrorKind]string{
	KindTimeout:          "timeout",
	KindTooLarge:         "too_large",
	KindBadStatus:        "bad_status",
	KindRedirectLoop:     "redirect_loop",
	KindConnectionFailed: "connection_failed",
	KindCookiesRequired:  "cookies_required",
	KindUnsupported:      "unsupported",
	KindNoTitle:          "no_title",
	KindMalformed:        "malformed",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FetchError is returned by Fetch and the content extractors.
type FetchError struct {
	Kind   ErrorKind
	Status int // set for KindBadStatus
	Err    error
}

func (e *FetchError) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindBadStatus {
		msg = fmt.Sprintf("%s %d", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AsFetchError returns err as a *FetchError. Errors of any other type are
// reported as connection failures.
func AsFetchError(err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: KindConnectionFailed, Err: err}
}

// Response is the outcome of a successful GET, or of a failed one whose
// headers were received.
type Response struct {
	Status        int
	Header        http.Header
	Body          []byte
	FinalURL      string
	ContentLength int64 // declared length, -1 when unknown
	Class         Classification
}

// ContentKind is the closed set of payload kinds the resolver understands.
type ContentKind int

const (
	ContentUnsupported ContentKind = iota
	ContentHTML
	ContentImage
)

func (k ContentKind) String() string {
	switch k {
	case ContentHTML:
		return "html"
	case ContentImage:
		return "image"
	default:
		return "unsupported"
	}
}

type Classification struct {
	Kind   ContentKind
	Format string // image subtype, e.g. "png"
	MIME   string
}

type SummaryKind int

const (
	SummaryFailure SummaryKind = iota
	SummaryTitle
	SummaryMedia
)

// Media describes an image by its container metadata.
type Media struct {
	Format string
	Width  int
	Height int
	Size   int64
}

// Summary is the displayable result of resolving one link.
type Summary struct {
	Kind     SummaryKind
	Title    string
	Media    *Media
	FinalURL string

	// Failure details
	Failure ErrorKind
	Status  int
	MIME    string
	Size    int64 // -1 when unknown
	Err     error
}

func (s Summary) OK() bool {
	return s.Kind != SummaryFailure
}
