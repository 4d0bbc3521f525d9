package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Doc is one searchable document, typically a registered tool and its
// guide content.
type Doc struct {
	ID          string
	Name        string
	Feature     string
	Description string
	Content     string
	Tags        []string
}

// Hit is one ranked search result.
type Hit struct {
	ID    string
	Score float64
}

// Config tunes field boosts and safety limits. Zero values take the
// defaults noted per field.
type Config struct {
	NameBoost    float64 // default 3
	FeatureBoost float64 // default 2
	TagsBoost    float64 // default 2
	ContentBoost float64 // default 1

	// MaxDocs caps how many documents are indexed (0 = unlimited).
	MaxDocs int

	// MaxContentLen truncates long content before indexing
	// (0 = unlimited).
	MaxContentLen int
}

func (c Config) withDefaults() Config {
	if c.NameBoost <= 0 {
		c.NameBoost = 3
	}
	if c.FeatureBoost <= 0 {
		c.FeatureBoost = 2
	}
	if c.TagsBoost <= 0 {
		c.TagsBoost = 2
	}
	if c.ContentBoost <= 0 {
		c.ContentBoost = 1
	}
	return c
}

// Searcher ranks documents with an in-memory Bleve index. Safe for
// concurrent use; the index is cached and rebuilt only when the document
// fingerprint changes.
type Searcher struct {
	cfg Config

	mu          sync.RWMutex
	idx         bleve.Index
	fingerprint string
}

// NewSearcher creates a searcher with the given config.
func NewSearcher(cfg Config) *Searcher {
	return &Searcher{cfg: cfg.withDefaults()}
}

// Search ranks docs against query and returns at most limit hits. An empty
// query returns the first documents in input order with zero scores.
func (s *Searcher) Search(docs []Doc, queryStr string, limit int) ([]Hit, error) {
	if limit <= 0 {
		return nil, nil
	}
	if s.cfg.MaxDocs > 0 && len(docs) > s.cfg.MaxDocs {
		docs = docs[:s.cfg.MaxDocs]
	}

	if strings.TrimSpace(queryStr) == "" {
		hits := make([]Hit, 0, min(limit, len(docs)))
		for _, d := range docs {
			if len(hits) == limit {
				break
			}
			hits = append(hits, Hit{ID: d.ID})
		}
		return hits, nil
	}

	idx, err := s.index(docs)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequestOptions(s.buildQuery(queryStr), limit, 0, false)
	res, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: query %q: %w", queryStr, err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{ID: h.ID, Score: h.Score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// index returns the cached Bleve index, rebuilding it when the document
// set changed.
func (s *Searcher) index(docs []Doc) (bleve.Index, error) {
	fp := fingerprint(docs)

	s.mu.RLock()
	if s.idx != nil && s.fingerprint == fp {
		idx := s.idx
		s.mu.RUnlock()
		return idx, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx != nil && s.fingerprint == fp {
		return s.idx, nil
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}
	for _, d := range docs {
		content := d.Content
		if s.cfg.MaxContentLen > 0 && len(content) > s.cfg.MaxContentLen {
			content = content[:s.cfg.MaxContentLen]
		}
		err := idx.Index(d.ID, map[string]any{
			"name":        d.Name,
			"feature":     d.Feature,
			"description": d.Description,
			"content":     content,
			"tags":        strings.Join(d.Tags, " "),
		})
		if err != nil {
			return nil, fmt.Errorf("search: index doc %s: %w", d.ID, err)
		}
	}

	if s.idx != nil {
		_ = s.idx.Close()
	}
	s.idx = idx
	s.fingerprint = fp
	return idx, nil
}

func (s *Searcher) buildQuery(queryStr string) query.Query {
	field := func(name string, boost float64) query.Query {
		q := bleve.NewMatchQuery(queryStr)
		q.SetField(name)
		q.SetBoost(boost)
		return q
	}
	return bleve.NewDisjunctionQuery(
		field("name", s.cfg.NameBoost),
		field("feature", s.cfg.FeatureBoost),
		field("tags", s.cfg.TagsBoost),
		field("description", s.cfg.ContentBoost),
		field("content", s.cfg.ContentBoost),
	)
}
