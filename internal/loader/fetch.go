package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/arbor/pkg/jsonutil"
)

// maxDocumentSize caps a single node document.
const maxDocumentSize = 32 << 20

// Fetcher retrieves the raw bytes of one source.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, source string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, source string) ([]byte, error) {
	return f(ctx, source)
}

// ============================================================
// HTTP
// ============================================================

// HTTPFetcher performs read-only GETs with retry on transient failures.
type HTTPFetcher struct {
	Client   *http.Client
	Attempts int
	Delay    time.Duration
}

// NewHTTPFetcher returns a fetcher over a client with the given timeout.
func NewHTTPFetcher(timeout time.Duration, attempts int, delay time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		Attempts: attempts,
		Delay:    delay,
	}
}

// Fetch GETs source. 404 maps to ErrNotFound; network errors and 5xx
// responses are retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	var body []byte
	err := retry(ctx, f.Attempts, f.Delay, func() error {
		var err error
		body, err = f.get(ctx, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", source, err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, Retryable(fmt.Errorf("fetching %s: %w", source, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetching %s: %w", source, ErrNotFound)
	case resp.StatusCode >= 500:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, Retryable(fmt.Errorf("fetching %s: status %d: %s",
			source, resp.StatusCode, jsonutil.Truncate(strings.TrimSpace(string(snippet)), 120)))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("fetching %s: status %d", source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, Retryable(fmt.Errorf("reading %s: %w", source, err))
	}
	return body, nil
}

// ============================================================
// Local files
// ============================================================

// FileFetcher reads local files; a "file://" prefix is accepted.
type FileFetcher struct{}

// Fetch reads the file behind source.
func (FileFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := FilePath(source)
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return body, nil
}
