package mockdata

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/shelfwise/bookcat/internal/domain"
)

const generatedAnswerBody = "This is a generated response based on the search results. " +
	"The information comes from multiple sources in your document collection."

// Search returns the corpus entries whose title or content contains query,
// compared with Unicode case folding. An empty query returns everything.
func (c *Catalog) Search(query string) []domain.SearchResult {
	if query == "" {
		return slices.Clone(searchCorpus)
	}

	fold := cases.Fold()
	needle := fold.String(query)

	out := make([]domain.SearchResult, 0, len(searchCorpus))
	for _, r := range searchCorpus {
		if strings.Contains(fold.String(r.Content), needle) || strings.Contains(fold.String(r.Title), needle) {
			out = append(out, r)
		}
	}

	return out
}

// Answer builds the offline answer for query, citing the sources of hits.
func (c *Catalog) Answer(query string, hits []domain.SearchResult) domain.GeneratedAnswer {
	lead := "the answer is"
	if strings.Contains(cases.Fold().String(query), "what") {
		lead = "here is what I found"
	}

	sources := make([]string, 0, len(hits))
	for _, r := range hits {
		sources = append(sources, r.Source)
	}

	return domain.GeneratedAnswer{
		Answer:     fmt.Sprintf("Based on the provided context, %s: %s", lead, generatedAnswerBody),
		Sources:    sources,
		Confidence: 0.85,
	}
}

// Stats reports a healthy index updated now.
func (c *Catalog) Stats() domain.RAGStats {
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()

	return domain.RAGStats{
		TotalDocuments:   1234,
		IndexedDocuments: 1200,
		TotalEmbeddings:  45678,
		LastUpdated:      now.UTC().Format("2006-01-02T15:04:05.000Z"),
		IndexStatus:      "healthy",
	}
}

// Rebuild acknowledges an index rebuild with a clock-derived job id.
func (c *Catalog) Rebuild() domain.RebuildJob {
	c.mu.Lock()
	now := c.now()
	c.mu.Unlock()

	return domain.RebuildJob{
		Message:       "Index rebuild started",
		JobID:         fmt.Sprintf("rebuild_%d", now.UnixMilli()),
		EstimatedTime: "5-10 minutes",
	}
}
