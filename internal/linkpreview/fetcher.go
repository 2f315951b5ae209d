package linkpreview

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

// sniffLen is how much of the body is read before deciding whether the
// payload is worth downloading in full.
const sniffLen = 512

var errTooManyRedirects = errors.New("too many redirects")

// Options controls fetch behaviour.
type Options struct {
	Timeout        time.Duration
	MaxBodySize    int64
	MaxRedirects   int
	UserAgent      string
	AcceptLanguage string
	// AllowPrivate permits connections to loopback and private networks.
	AllowPrivate bool
}

// Fetcher retrieves a single link with bounded time, size and redirects.
type Fetcher struct {
	opts   Options
	client *http.Client
}

// NewFetcher creates a Fetcher with an SSRF-safe HTTP client.
func NewFetcher(opts Options) *Fetcher {
	return NewFetcherWithClient(opts, nil)
}

// NewFetcherWithClient creates a Fetcher with a custom HTTP client.
// If client is nil, a default SSRF-safe client is used. The client's
// CheckRedirect and Jar are replaced on every fetch.
func NewFetcherWithClient(opts Options, client *http.Client) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 4 << 20
	}
	if opts.MaxRedirects < 0 {
		opts.MaxRedirects = 0
	}

	if client == nil {
		dialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: 30 * time.Second}
		transport := &http.Transport{
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   opts.Timeout,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			// Encodings are negotiated and decoded by readBody.
			DisableCompression: true,
		}
		if !opts.AllowPrivate {
			transport.DialContext = safeDialContext(dialer)
		}
		client = &http.Client{Transport: otelhttp.NewTransport(transport)}
	}

	return &Fetcher{opts: opts, client: client}
}

// Fetch performs one GET for rawURL. On failure the returned error is a
// *FetchError; the Response is still returned when headers were received,
// so callers can describe unsupported or rejected payloads.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindConnectionFailed, Err: err}
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*;q=0.9,*/*;q=0.8")
	if f.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	}
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	// Cookies live for the duration of a single fetch.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, &FetchError{Kind: KindConnectionFailed, Err: err}
	}
	client := *f.client
	client.Jar = jar
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > f.opts.MaxRedirects {
			return errTooManyRedirects
		}
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	out := &Response{
		Status:        resp.StatusCode,
		Header:        resp.Header.Clone(),
		FinalURL:      rawURL,
		ContentLength: resp.ContentLength,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		out.FinalURL = resp.Request.URL.String()
	}

	if resp.ContentLength > f.opts.MaxBodySize {
		return out, &FetchError{Kind: KindTooLarge, Err: fmt.Errorf("content length %d exceeds limit of %d bytes", resp.ContentLength, f.opts.MaxBodySize)}
	}

	body, err := newBodyReader(resp)
	if err != nil {
		return out, &FetchError{Kind: KindMalformed, Err: err}
	}
	defer body.Close()

	head, err := readHead(body, min(sniffLen, f.opts.MaxBodySize+1))
	if err != nil {
		return out, readError(ctx, err)
	}
	out.Body = head
	out.Class = Classify(out.Header, head)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !(challengeStatus(resp.StatusCode) && out.Class.Kind == ContentHTML) {
		return out, &FetchError{Kind: KindBadStatus, Status: resp.StatusCode}
	}
	if ok && out.Class.Kind == ContentUnsupported {
		return out, &FetchError{Kind: KindUnsupported, Err: fmt.Errorf("content type %s", out.Class.MIME)}
	}

	rest, err := io.ReadAll(io.LimitReader(body, f.opts.MaxBodySize+1-int64(len(head))))
	if err != nil {
		return out, readError(ctx, err)
	}
	out.Body = append(head, rest...)
	if int64(len(out.Body)) > f.opts.MaxBodySize {
		out.Body = nil
		if !ok {
			return out, &FetchError{Kind: KindBadStatus, Status: resp.StatusCode}
		}
		return out, &FetchError{Kind: KindTooLarge, Err: fmt.Errorf("response body exceeds limit of %d bytes", f.opts.MaxBodySize)}
	}

	if out.Class.Kind == ContentHTML && IsInterstitial(out.FinalURL, out.Body) {
		return out, &FetchError{Kind: KindCookiesRequired}
	}
	if !ok {
		return out, &FetchError{Kind: KindBadStatus, Status: resp.StatusCode}
	}
	return out, nil
}

// challengeStatus reports whether a status is commonly used by consent walls
// and bot challenges, which are worth inspecting before giving up.
func challengeStatus(code int) bool {
	switch code {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func transportError(ctx context.Context, err error) *FetchError {
	switch {
	case errors.Is(err, errTooManyRedirects):
		return &FetchError{Kind: KindRedirectLoop, Err: err}
	case isTimeout(ctx, err):
		return &FetchError{Kind: KindTimeout, Err: err}
	default:
		return &FetchError{Kind: KindConnectionFailed, Err: err}
	}
}

func readError(ctx context.Context, err error) *FetchError {
	if isTimeout(ctx, err) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &FetchError{Kind: KindConnectionFailed, Err: err}
	}
	return &FetchError{Kind: KindMalformed, Err: err}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

type bodyReader struct {
	io.Reader
	closers []io.Closer
}

func (b *bodyReader) Close() error {
	for i := len(b.closers) - 1; i >= 0; i-- {
		_ = b.closers[i].Close()
	}
	return nil
}

// newBodyReader wraps the response body with a decoder for its
// Content-Encoding.
func newBodyReader(resp *http.Response) (*bodyReader, error) {
	b := &bodyReader{Reader: resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.Reader = strings.NewReader("")
				return b, nil
			}
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		b.Reader = gz
		b.closers = append(b.closers, gz)
	case "br":
		b.Reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		b.Reader = fl
		b.closers = append(b.closers, fl)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
	return b, nil
}

// readHead reads up to n bytes, returning fewer only at end of body.
func readHead(r io.Reader, n int64) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	return buf[:read], err
}

// privateRanges are CIDR blocks for private, loopback and link-local IPs.
var privateRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8",
		"127.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"::/128",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	} {
		_, block, _ := net.ParseCIDR(cidr)
		privateRanges = append(privateRanges, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	for _, block := range privateRanges {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// safeDialContext resolves DNS then rejects private IPs before connecting.
func safeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("no addresses for %s", host)
		}

		for _, ip := range ips {
			if isPrivateIP(ip.IP) {
				return nil, fmt.Errorf("connection to private IP %s is not allowed", ip.IP)
			}
		}

		// Connect to the first resolved IP.
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
	}
}
