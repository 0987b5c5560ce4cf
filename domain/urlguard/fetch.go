package urlguard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds a single outbound fetch when the caller's
// context carries no deadline of its own.
const DefaultFetchTimeout = 10 * time.Second

const maxResponseBytes = 1 << 20

// Fetcher performs a single guarded HTTPS GET.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (status int, body []byte, err error)
}

// HTTPFetcher is the production Fetcher. Every URL, including each redirect
// hop, must re-pass Validate before the body is consumed.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects")
				}
				return Validate(req.URL.String())
			},
		},
	}
}

func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	if err := Validate(rawURL); err != nil {
		return 0, nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	return resp.StatusCode, body, nil
}
