package download

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/doccrawl/internal/model"
)

// DefaultTimeout bounds one download attempt, body included.
const DefaultTimeout = 30 * time.Second

// Fetcher performs single download attempts into one directory.
type Fetcher struct {
	client    *http.Client
	dir       string
	timeout   time.Duration
	userAgent string
	cookie    string
	headers   map[string]string
}

// NewFetcher creates a Fetcher writing into dir. A nil client selects a
// default client; the per-attempt timeout applies either way.
func NewFetcher(client *http.Client, dir string) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:  client,
		dir:     dir,
		timeout: DefaultTimeout,
		headers: make(map[string]string),
	}
}

// Dir returns the destination directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// Fetch downloads rawURL into the destination directory as filename.
// There is no retry: the first failure is returned.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, filename string) (model.Digest, error) {
	target, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return model.Digest{}, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" || target.Host == "" {
		return model.Digest{}, fmt.Errorf("%w: %q", ErrMalformedURL, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return model.Digest{}, fmt.Errorf("%w: %w", ErrMalformedURL, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return model.Digest{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Digest{}, &HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	return writeFile(f.dir, filename, resp.Body)
}
