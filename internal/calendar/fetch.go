package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// feedURLPattern accepts http(s) and webcal URLs whose path ends in .ics,
// optionally followed by a query string.
var feedURLPattern = regexp.MustCompile(`(?i)^(https?|webcal)://[^\s/?#]+(/[^\s?#]*)?\.ics(\?[^\s#]*)?$`)

// IsFeedURL reports whether u is syntactically an iCal feed URL.
func IsFeedURL(u string) bool {
	return feedURLPattern.MatchString(strings.TrimSpace(u))
}

// Fetcher retrieves raw feed bodies over HTTP.
type Fetcher struct {
	client         *http.Client
	validateClient *http.Client
	maxBytes       int64
}

// NewFetcher creates a Fetcher. fetchTimeout bounds GET requests,
// validateTimeout bounds the HEAD check and maxBytes caps body size.
func NewFetcher(fetchTimeout, validateTimeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		client:         &http.Client{Timeout: fetchTimeout},
		validateClient: &http.Client{Timeout: validateTimeout},
		maxBytes:       maxBytes,
	}
}

// Fetch downloads the feed at url. Redirects are followed. Any network
// error, timeout or non-2xx status is reported as ErrFeedUnreachable.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrFeedUnreachable, err)
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching calendar: %v", ErrFeedUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: calendar returned status %d", ErrFeedUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading calendar: %v", ErrFeedUnreachable, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: calendar larger than %d bytes", ErrFeedMalformed, f.maxBytes)
	}

	return body, nil
}

// ValidateFeed checks a feed URL before it is stored: the URL must match the
// .ics pattern and answer a HEAD request with a 2xx status within the
// validation timeout. Any failure, including network errors, is reported as
// ErrInvalidFeedURL.
func (f *Fetcher) ValidateFeed(ctx context.Context, url string) error {
	if !IsFeedURL(url) {
		return fmt.Errorf("%w: %s does not end in .ics", ErrInvalidFeedURL, redactURL(url))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, httpURL(url), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}

	resp, err := f.validateClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrInvalidFeedURL, resp.StatusCode)
	}
	return nil
}

// httpURL rewrites webcal:// links, which booking platforms hand out for
// subscriptions, to https://.
func httpURL(u string) string {
	u = strings.TrimSpace(u)
	if len(u) >= 9 && strings.EqualFold(u[:9], "webcal://") {
		return "https://" + u[9:]
	}
	return u
}

// redactURL keeps only scheme and host. Platform feed URLs embed secret
// tokens in the path or query.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexAny(rest, "/?#"); j != -1 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
