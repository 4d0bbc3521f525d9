package quality

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/jonwraymond/repodiscovery/model"
)

// ErrNotFound is returned when the repository does not exist or is not
// visible with the configured credentials.
var ErrNotFound = errors.New("quality: repository not found")

// readmeExcerptLen bounds how much README text is carried in the metrics.
const readmeExcerptLen = 500

// minReadmeLen is the documentation floor: a README shorter than this does
// not count as docs.
const minReadmeLen = 200

// GitHubClient pulls repository metadata from the GitHub API.
type GitHubClient struct {
	gh *github.Client
}

// NewGitHubClient builds a client. An empty token uses unauthenticated
// access, which is enough for public metadata at low volume.
func NewGitHubClient(ctx context.Context, token string) *GitHubClient {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token}))
	}
	return &GitHubClient{gh: github.NewClient(hc)}
}

// Metadata fetches the metrics for owner/name. File count comes from the
// default-branch tree; a truncated tree yields a partial count, which is
// acceptable for scoring.
func (c *GitHubClient) Metadata(ctx context.Context, owner, name string) (model.RepositoryMetrics, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return model.RepositoryMetrics{}, fmt.Errorf("%w: %s/%s", ErrNotFound, owner, name)
		}
		return model.RepositoryMetrics{}, fmt.Errorf("quality: get %s/%s: %w", owner, name, err)
	}

	m := model.RepositoryMetrics{
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
		LastUpdate:  repo.GetPushedAt().Time,
		SizeKB:      repo.GetSize(),
		Description: repo.GetDescription(),
	}

	if readme, _, err := c.gh.Repositories.GetReadme(ctx, owner, name, nil); err == nil {
		if content, err := readme.GetContent(); err == nil {
			content = strings.TrimSpace(content)
			m.HasDocs = len(content) >= minReadmeLen
			if len(content) > readmeExcerptLen {
				content = content[:readmeExcerptLen]
			}
			m.ReadmeExcerpt = content
		}
	}

	if branch := repo.GetDefaultBranch(); branch != "" {
		if tree, _, err := c.gh.Git.GetTree(ctx, owner, name, branch, true); err == nil {
			count := 0
			for _, entry := range tree.Entries {
				if entry.GetType() == "blob" {
					count++
				}
			}
			m.FileCount = count
		}
	}
	return m, nil
}
