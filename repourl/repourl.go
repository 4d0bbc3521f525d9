package repourl

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/jonwraymond/repodiscovery/model"
)

// repoPattern matches repository URLs on the hosting services we recognize,
// with or without a scheme or www prefix. The name segment must not end in
// a dot so sentence punctuation after a bare URL is left behind.
var repoPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?(github\.com|gitlab\.com|bitbucket\.org)/([A-Za-z0-9][A-Za-z0-9_.-]*)/([A-Za-z0-9](?:[A-Za-z0-9_.-]*[A-Za-z0-9_-])?)`)

// Extract returns the canonical repository URLs referenced in text, in
// first-seen order, deduplicated.
func Extract(text string) []string {
	matches := repoPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var urls []string
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		host, owner, name := m[1], m[2], m[3]
		u := Canonicalize("https://" + host + "/" + owner + "/" + name)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// HasRepoReference reports whether text mentions a recognizable repository
// URL.
func HasRepoReference(text string) bool {
	return repoPattern.MatchString(text)
}

// Canonicalize normalizes a repository URL into its dedup key: https
// scheme, lower-cased host and path, no query, no fragment, no trailing
// slash, no .git suffix, no www prefix. Two URLs identify the same
// repository iff their canonical forms are equal. Returns "" for strings
// that cannot be parsed as a URL with a host and path.
func Canonicalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.ToLower(u.EscapedPath())
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" {
		return ""
	}
	return "https://" + host + path
}

// Dedupe merges the repository URLs found across extraction outcomes into
// candidates keyed by canonical URL. Each candidate records the source
// pages that referenced it, sorted for determinism. Candidate order follows
// first appearance in the outcome slice, so deterministic input order
// yields deterministic output order. Dedupe is idempotent: feeding its
// output back through (as single-URL outcomes) changes nothing.
func Dedupe(outcomes []model.ExtractionOutcome) []model.RepositoryCandidate {
	byKey := make(map[string]*model.RepositoryCandidate)
	var order []string

	for _, out := range outcomes {
		for _, raw := range out.RepositoryURLs {
			key := Canonicalize(raw)
			if key == "" {
				continue
			}
			cand, ok := byKey[key]
			if !ok {
				cand = &model.RepositoryCandidate{CanonicalURL: key}
				byKey[key] = cand
				order = append(order, key)
			}
			if out.SourceURL != "" && !contains(cand.Sources, out.SourceURL) {
				cand.Sources = append(cand.Sources, out.SourceURL)
			}
		}
	}

	candidates := make([]model.RepositoryCandidate, 0, len(order))
	for _, key := range order {
		cand := byKey[key]
		sort.Strings(cand.Sources)
		candidates = append(candidates, *cand)
	}
	return candidates
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Split returns the owner and repository name from a canonical URL.
func Split(canonical string) (owner, name string, ok bool) {
	m := repoPattern.FindStringSubmatch(canonical)
	if m == nil {
		return "", "", false
	}
	return m[2], strings.TrimSuffix(m[3], ".git"), true
}
