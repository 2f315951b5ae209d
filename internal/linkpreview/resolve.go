package linkpreview

import (
	"context"
	"fmt"
)

// PageFetcher is satisfied by *Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

type ResolverOptions struct {
	TitleMaxLength int
	// ReportMetadata describes images by format and dimensions. When false
	// images are reported like any other unsupported payload.
	ReportMetadata bool
}

// Resolver turns a link into a Summary: fetch, classify, extract.
type Resolver struct {
	fetcher PageFetcher
	opts    ResolverOptions
}

func NewResolver(fetcher PageFetcher, opts ResolverOptions) *Resolver {
	if opts.TitleMaxLength <= 0 {
		opts.TitleMaxLength = 200
	}
	return &Resolver{fetcher: fetcher, opts: opts}
}

// Resolve never fails; every error is folded into a failure Summary.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) Summary {
	resp, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return failure(rawURL, resp, err)
	}

	switch resp.Class.Kind {
	case ContentHTML:
		title, err := ExtractTitle(resp.Body, resp.Header.Get("Content-Type"), r.opts.TitleMaxLength)
		if err != nil {
			return failure(rawURL, resp, err)
		}
		return Summary{Kind: SummaryTitle, Title: title, FinalURL: resp.FinalURL}

	case ContentImage:
		if !r.opts.ReportMetadata {
			s := failure(rawURL, resp, &FetchError{Kind: KindUnsupported, Err: fmt.Errorf("content type %s", resp.Class.MIME)})
			s.Size = int64(len(resp.Body))
			return s
		}
		media, err := DescribeImage(resp.Body, int64(len(resp.Body)))
		if err != nil {
			return failure(rawURL, resp, err)
		}
		return Summary{Kind: SummaryMedia, Media: media, FinalURL: resp.FinalURL}

	default:
		return failure(rawURL, resp, &FetchError{Kind: KindUnsupported, Err: fmt.Errorf("content type %s", resp.Class.MIME)})
	}
}

func failure(rawURL string, resp *Response, err error) Summary {
	fe := AsFetchError(err)
	s := Summary{
		Kind:     SummaryFailure,
		FinalURL: rawURL,
		Failure:  fe.Kind,
		Status:   fe.Status,
		Size:     -1,
		Err:      err,
	}
	if resp != nil {
		s.FinalURL = resp.FinalURL
		s.MIME = resp.Class.MIME
		s.Size = resp.ContentLength
		if s.Size < 0 && fe.Kind != KindUnsupported && resp.Body != nil {
			s.Size = int64(len(resp.Body))
		}
	}
	return s
}
