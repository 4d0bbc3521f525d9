package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type flakyFetcher struct {
	failures   int
	calls      int
	identities []string
	page       Page
}

func (f *flakyFetcher) Fetch(_ context.Context, _ string, identity string) (Page, error) {
	f.calls++
	f.identities = append(f.identities, identity)
	if f.calls <= f.failures {
		return Page{}, errors.New("transient failure")
	}
	return f.page, nil
}

func TestRetryPolicy_Attempts(t *testing.T) {
	var zero RetryPolicy
	if got := zero.Attempts(); got != DefaultMaxRetries+1 {
		t.Errorf("zero-value Attempts() = %d, want %d", got, DefaultMaxRetries+1)
	}
	if got := NewRetryPolicy(0, 0).Attempts(); got != 1 {
		t.Errorf("explicit zero retries Attempts() = %d, want 1", got)
	}
	if got := NewRetryPolicy(5, 0).Attempts(); got != 6 {
		t.Errorf("Attempts() = %d, want 6", got)
	}
}

func TestRetryPolicy_IdentityRotation(t *testing.T) {
	p := RetryPolicy{Identities: []string{"a", "b"}}
	got := []string{p.Identity(0), p.Identity(1), p.Identity(2), p.Identity(3)}
	want := []string{"a", "b", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Identity(%d) = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExtract_FailTwiceThenSucceed(t *testing.T) {
	fetcher := &flakyFetcher{
		failures: 2,
		page: Page{
			Title: "Example",
			Text:  "code at github.com/org/repo",
		},
	}
	e := NewExtractor(fetcher, NewRetryPolicy(2, 0), nil)

	out := e.Extract(context.Background(), "https://example.com/post")
	if out.Failed {
		t.Fatal("expected success after retries")
	}
	if out.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", out.Attempts)
	}
	if len(out.RepositoryURLs) != 1 || out.RepositoryURLs[0] != "https://github.com/org/repo" {
		t.Errorf("RepositoryURLs = %v", out.RepositoryURLs)
	}
	// Each attempt must present a distinct rotated identity.
	if fetcher.identities[0] == fetcher.identities[1] {
		t.Error("identity was not rotated between attempts")
	}
}

func TestExtract_ExhaustedRetries(t *testing.T) {
	fetcher := &flakyFetcher{failures: 100}
	e := NewExtractor(fetcher, NewRetryPolicy(2, 0), nil)

	out := e.Extract(context.Background(), "https://example.com/broken")
	if !out.Failed {
		t.Fatal("expected failed outcome")
	}
	if out.Attempts != 3 {
		t.Errorf("Attempts = %d, want maxRetries+1 = 3", out.Attempts)
	}
	if out.TextContent != "" || out.RepositoryURLs != nil {
		t.Error("failed outcome must carry zero content")
	}
	if out.SourceURL != "https://example.com/broken" {
		t.Errorf("SourceURL = %q", out.SourceURL)
	}
}

func TestExtract_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &flakyFetcher{failures: 100}
	e := NewExtractor(fetcher, NewRetryPolicy(5, 0), nil)

	out := e.Extract(ctx, "https://example.com/x")
	if !out.Failed {
		t.Fatal("expected failed outcome under cancelled context")
	}
	if fetcher.calls != 0 {
		t.Errorf("expected no fetch calls after cancellation, got %d", fetcher.calls)
	}
}

func TestHTTPFetcher_ParsesPage(t *testing.T) {
	const body = `<html><head><title>JWT in Go</title></head><body>
<p>Use the library at <a href="https://github.com/golang-jwt/jwt">golang-jwt</a>.</p>
<pre>token, err := jwt.Parse(raw, keyFunc)</pre>
<script>ignore_me()</script>
</body></html>`

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(body))
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	page, err := f.Fetch(context.Background(), srv.URL, "test-agent")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotUA != "test-agent" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if page.Title != "JWT in Go" {
		t.Errorf("Title = %q", page.Title)
	}
	if len(page.Links) != 1 || page.Links[0] != "https://github.com/golang-jwt/jwt" {
		t.Errorf("Links = %v", page.Links)
	}
	if len(page.CodeBlocks) != 1 {
		t.Fatalf("CodeBlocks = %v", page.CodeBlocks)
	}
	if page.CodeBlocks[0] != "token, err := jwt.Parse(raw, keyFunc)" {
		t.Errorf("CodeBlocks[0] = %q", page.CodeBlocks[0])
	}
	if strings.Contains(page.Text, "ignore_me") {
		t.Error("script content leaked into text")
	}
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}
	_, err := f.Fetch(context.Background(), srv.URL, "agent")
	if !errors.Is(err, ErrBadStatus) {
		t.Errorf("expected ErrBadStatus, got %v", err)
	}
}

func TestExtract_LinksAndCodeContributeRepoURLs(t *testing.T) {
	fetcher := &flakyFetcher{page: Page{
		Text:       "an article with no inline references",
		Links:      []string{"https://github.com/only/in-links"},
		CodeBlocks: []string{"git clone https://github.com/only/in-code.git"},
	}}
	e := NewExtractor(fetcher, NewRetryPolicy(0, 0), nil)

	out := e.Extract(context.Background(), "https://example.com/a")
	want := []string{"https://github.com/only/in-links", "https://github.com/only/in-code"}
	if len(out.RepositoryURLs) != 2 ||
		out.RepositoryURLs[0] != want[0] || out.RepositoryURLs[1] != want[1] {
		t.Errorf("RepositoryURLs = %v, want %v", out.RepositoryURLs, want)
	}
}
