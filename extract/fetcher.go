package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/documentloaders"
)

// Fetcher retrieves the text behind a URL.
// Implementations decide how pages, feeds or profiles become text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads a page and reduces it to text with the HTML loader.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a 30 second timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client, maxBytes: defaultMaxFileSize}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}

	docs, err := documentloaders.NewHTML(io.LimitReader(resp.Body, f.maxBytes)).Load(ctx)
	if err != nil {
		return "", err
	}
	return joinPages(docs), nil
}
