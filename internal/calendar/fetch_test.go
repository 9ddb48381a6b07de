package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFeedURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.airbnb.com/calendar/ical/123.ics?s=abc", true},
		{"http://example.com/feed.ics", true},
		{"webcal://example.com/cal/feed.ICS", true},
		{"https://example.com:8443/x.ics", true},
		{"https://example.com/feed", false},
		{"ftp://example.com/feed.ics", false},
		{"https://example.com/feed.ics#frag", false},
		{"example.com/feed.ics", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFeedURL(tt.url))
		})
	}
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.ics":
			w.Header().Set("Content-Type", "text/calendar")
			_, _ = w.Write([]byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
		case "/moved.ics":
			http.Redirect(w, r, "/ok.ics", http.StatusFound)
		case "/big.ics":
			_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, time.Second, 1024)
	ctx := context.Background()

	body, err := f.Fetch(ctx, srv.URL+"/ok.ics")
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	body, err = f.Fetch(ctx, srv.URL+"/moved.ics")
	require.NoError(t, err)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	_, err = f.Fetch(ctx, srv.URL+"/missing.ics")
	assert.ErrorIs(t, err, ErrFeedUnreachable)

	_, err = f.Fetch(ctx, srv.URL+"/big.ics")
	assert.ErrorIs(t, err, ErrFeedMalformed)
}

func TestFetcher_FetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(50*time.Millisecond, time.Second, 1024)
	_, err := f.Fetch(context.Background(), srv.URL+"/slow.ics")
	assert.ErrorIs(t, err, ErrFeedUnreachable)
}

func TestFetcher_FetchUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/gone.ics"
	srv.Close()

	_, err := NewFetcher(time.Second, time.Second, 1024).Fetch(context.Background(), url)
	assert.ErrorIs(t, err, ErrFeedUnreachable)
}

func TestFetcher_ValidateFeed(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path != "/cal.ics" {
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, time.Second, 1024)
	ctx := context.Background()

	assert.NoError(t, f.ValidateFeed(ctx, srv.URL+"/cal.ics"))
	assert.ErrorIs(t, f.ValidateFeed(ctx, srv.URL+"/other.ics"), ErrInvalidFeedURL)
	assert.ErrorIs(t, f.ValidateFeed(ctx, srv.URL+"/cal"), ErrInvalidFeedURL)
	assert.Equal(t, []string{http.MethodHead, http.MethodHead}, methods, "pattern failures never hit the network")
}

func TestHTTPURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a.ics", httpURL("webcal://example.com/a.ics"))
	assert.Equal(t, "https://example.com/a.ics", httpURL("WEBCAL://example.com/a.ics"))
	assert.Equal(t, "http://example.com/a.ics", httpURL("http://example.com/a.ics"))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://www.airbnb.com/...(redacted)", redactURL("https://www.airbnb.com/calendar/ical/1.ics?s=secret"))
	assert.Equal(t, "https://host/...(redacted)", redactURL("https://host?token=x"))
	assert.NotContains(t, redactURL("garbage-secret"), "secret")
}
