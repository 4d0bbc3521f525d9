package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/jonwraymond/repodiscovery/model"
)

const defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGo searches the DuckDuckGo HTML endpoint, which needs no API key.
type DuckDuckGo struct {
	// Client overrides the HTTP client. Nil uses a client with a 20s
	// timeout.
	Client *http.Client

	// BaseURL overrides the endpoint, for tests.
	BaseURL string

	// SiteFilter restricts results to one site, e.g. "youtube.com" for
	// the video adapter.
	SiteFilter string
}

func (d *DuckDuckGo) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return &http.Client{Timeout: 20 * time.Second}
}

func (d *DuckDuckGo) baseURL() string {
	if d.BaseURL != "" {
		return d.BaseURL
	}
	return defaultDuckDuckGoURL
}

// Search runs one query and parses the result page.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if d.SiteFilter != "" {
		query += " site:" + d.SiteFilter
	}
	u := d.baseURL() + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")

	resp, err := d.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: query duckduckgo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: duckduckgo returned %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("websearch: parse result page: %w", err)
	}
	return parseResults(doc, maxResults), nil
}

// parseResults walks the result page collecting title links and snippets.
// The endpoint marks them with the result__a and result__snippet classes.
func parseResults(doc *html.Node, maxResults int) []model.SearchResult {
	var results []model.SearchResult
	var current *model.SearchResult

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				if current != nil && current.URL != "" {
					results = append(results, *current)
				}
				current = &model.SearchResult{
					Title: strings.TrimSpace(nodeText(n)),
					URL:   resolveRedirect(attrVal(n, "href")),
				}
			case hasClass(n, "result__snippet"):
				if current != nil {
					current.Snippet = strings.TrimSpace(nodeText(n))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if current != nil && current.URL != "" {
		results = append(results, *current)
	}
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

// resolveRedirect unwraps the endpoint's /l/?uddg= redirect links to the
// destination URL.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if dest := u.Query().Get("uddg"); dest != "" {
		if unescaped, err := url.QueryUnescape(dest); err == nil {
			return unescaped
		}
		return dest
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrVal(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
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
