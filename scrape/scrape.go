package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/jonwraymond/repodiscovery/model"
	"github.com/jonwraymond/repodiscovery/repourl"
)

// Extraction caps. Pages are evidence for repository discovery, not
// archives; anything beyond these bounds adds noise without adding
// repository references.
const (
	maxTextChars  = 5000
	maxLinks      = 50
	maxCodeBlocks = 10
	maxBodyBytes  = 2 << 20
)

// ErrBadStatus is returned by HTTPFetcher for non-2xx responses.
var ErrBadStatus = errors.New("scrape: unexpected response status")

// Page is the parsed content of one fetched document.
type Page struct {
	Title      string
	Text       string
	Links      []string
	CodeBlocks []string
}

// Fetcher retrieves and parses a single page. Implementations must treat
// timeouts as ordinary errors so the retry policy can absorb them.
type Fetcher interface {
	Fetch(ctx context.Context, url, identity string) (Page, error)
}

// HTTPFetcher fetches pages over HTTP and parses them as HTML.
type HTTPFetcher struct {
	// Client overrides the HTTP client. Nil uses a client with a 30s
	// timeout.
	Client *http.Client
}

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// Fetch retrieves url with the given request identity and parses the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, identity string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("scrape: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", identity)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client().Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("scrape: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("%w: %s returned %d", ErrBadStatus, url, resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("scrape: parse %s: %w", url, err)
	}
	return parsePage(doc), nil
}

// parsePage walks the HTML tree collecting the title, visible text, link
// targets, and code blocks, each clipped to the package caps.
func parsePage(doc *html.Node) Page {
	var p Page
	var text strings.Builder

	var walk func(n *html.Node, inCode bool)
	walk = func(n *html.Node, inCode bool) {
		switch n.Type {
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if p.Title == "" {
					p.Title = strings.TrimSpace(textOf(n))
				}
				return
			case "a":
				if len(p.Links) < maxLinks {
					if href := attr(n, "href"); href != "" {
						p.Links = append(p.Links, href)
					}
				}
			case "pre", "code":
				if !inCode {
					if len(p.CodeBlocks) < maxCodeBlocks {
						if block := strings.TrimSpace(textOf(n)); block != "" {
							p.CodeBlocks = append(p.CodeBlocks, block)
						}
					}
					inCode = true
				}
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" && text.Len() < maxTextChars {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inCode)
		}
	}
	walk(doc, false)

	p.Text = text.String()
	if len(p.Text) > maxTextChars {
		p.Text = p.Text[:maxTextChars]
	}
	return p
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Extractor runs fetches under the retry policy and turns pages into
// extraction outcomes.
type Extractor struct {
	Fetcher Fetcher
	Policy  RetryPolicy

	// Logger records attempt failures. Nil disables logging.
	Logger *zap.Logger
}

// NewExtractor returns an extractor using the given fetcher and policy.
func NewExtractor(fetcher Fetcher, policy RetryPolicy, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{Fetcher: fetcher, Policy: policy, Logger: logger}
}

func (e *Extractor) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// Extract fetches url under the retry policy and returns what was found.
// The outcome is always usable: on exhausted retries Failed is set, the
// content fields are zero, and Attempts records the full attempt count.
func (e *Extractor) Extract(ctx context.Context, url string) model.ExtractionOutcome {
	var page Page
	attempts, err := e.Policy.Do(ctx, func(ctx context.Context, identity string) error {
		var ferr error
		page, ferr = e.Fetcher.Fetch(ctx, url, identity)
		if ferr != nil {
			e.logger().Warn("fetch attempt failed",
				zap.String("url", url),
				zap.Error(ferr))
		}
		return ferr
	})
	if err != nil {
		e.logger().Warn("extraction failed",
			zap.String("url", url),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return model.ExtractionOutcome{SourceURL: url, Failed: true, Attempts: attempts}
	}

	// Repository references can hide in prose, link targets, or code.
	evidence := page.Text + "\n" + strings.Join(page.Links, "\n") + "\n" +
		strings.Join(page.CodeBlocks, "\n")
	return model.ExtractionOutcome{
		SourceURL:      url,
		Title:          page.Title,
		TextContent:    page.Text,
		RepositoryURLs: repourl.Extract(evidence),
		CodeFragments:  page.CodeBlocks,
		Attempts:       attempts,
	}
}
