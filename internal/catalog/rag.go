package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/fallback"
)

// Search defaults applied when SearchOptions leaves a field zero.
const (
	DefaultMaxResults = 10
	DefaultThreshold  = 0.7

	// DefaultQuickLimit is the result cap of the quick search endpoint.
	DefaultQuickLimit = 5
)

var (
	epRAGSearch   = fallback.Endpoint{Name: "rag.search", Policy: fallback.ExtendedPolicy}
	epRAGGenerate = fallback.Endpoint{Name: "rag.generate", Policy: fallback.ExtendedPolicy}
	epRAGStats    = fallback.Endpoint{Name: "rag.stats", Policy: fallback.ExtendedPolicy}
	epRAGRebuild  = fallback.Endpoint{Name: "rag.rebuild_index", Policy: fallback.ExtendedPolicy, Mutating: true}
)

// RAG is the retrieval-augmented search resource.
type RAG struct {
	d *deps
}

// SearchOptions tunes a retrieval search.
type SearchOptions struct {
	MaxResults int
	Threshold  float64
}

func (o SearchOptions) request(query string) domain.SearchRequest {
	req := domain.SearchRequest{Query: query, MaxResults: o.MaxResults, Threshold: o.Threshold}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}

	if req.Threshold <= 0 {
		req.Threshold = DefaultThreshold
	}

	return req
}

// Search runs a retrieval query.
func (r *RAG) Search(ctx context.Context, query string, opts SearchOptions) (api.Envelope[[]domain.SearchResult], error) {
	return call(ctx, r.d, epRAGSearch, http.MethodPost, "/rag/search", opts.request(query),
		func() []domain.SearchResult { return r.d.mock.Search(query) })
}

// Generate asks for an answer to query grounded in hits.
func (r *RAG) Generate(ctx context.Context, query string, hits []domain.SearchResult) (api.Envelope[domain.GeneratedAnswer], error) {
	if hits == nil {
		hits = []domain.SearchResult{}
	}

	return call(ctx, r.d, epRAGGenerate, http.MethodPost, "/rag/generate",
		domain.GenerateRequest{Query: query, Context: hits},
		func() domain.GeneratedAnswer { return r.d.mock.Answer(query, hits) })
}

// Stats fetches index statistics.
func (r *RAG) Stats(ctx context.Context) (api.Envelope[domain.RAGStats], error) {
	return call(ctx, r.d, epRAGStats, http.MethodGet, "/rag/stats", nil, r.d.mock.Stats)
}

// RebuildIndex starts an index rebuild.
func (r *RAG) RebuildIndex(ctx context.Context) (api.Envelope[domain.RebuildJob], error) {
	return call(ctx, r.d, epRAGRebuild, http.MethodPost, "/rag/rebuild-index", nil, r.d.mock.Rebuild)
}

// QuickSearch calls POST /search with the query in the URL. It never falls
// back. A non-positive limit uses DefaultQuickLimit.
func (r *RAG) QuickSearch(ctx context.Context, query string, limit int) (api.Envelope[domain.QuickSearchResponse], error) {
	if limit <= 0 {
		limit = DefaultQuickLimit
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("limit", strconv.Itoa(limit))

	return direct[domain.QuickSearchResponse](ctx, r.d, http.MethodPost, "/search", nil, api.WithQuery(q))
}
