// Package catalog exposes one typed accessor per backend resource. Each
// accessor goes through the shared api.Client and, where the endpoint
// declares a fallback policy, degrades to the offline mirrors in mockdata.
package catalog

import (
	"context"
	"log/slog"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/fallback"
	"github.com/shelfwise/bookcat/internal/mockdata"
	"github.com/shelfwise/bookcat/internal/session"
)

// Options configures a Service.
type Options struct {
	// FallbackEnabled turns offline substitution on. When false every
	// failure reaches the caller.
	FallbackEnabled bool
	Logger          *slog.Logger
}

// deps is shared by every resource accessor.
type deps struct {
	client   *api.Client
	mock     *mockdata.Catalog
	resolver *fallback.Resolver
	session  *session.Store
	logger   *slog.Logger
}

// Service groups the resource accessors. Construct once with New and pass
// by reference.
type Service struct {
	Auth            *Auth
	Books           *Books
	Authors         *Authors
	Genres          *Genres
	Reviews         *Reviews
	Documents       *Documents
	RAG             *RAG
	Admin           *Admin
	Ingestion       *Ingestion
	Imbibing        *Imbibing
	Recommendations *Recommendations
}

// New wires every accessor to client, the offline mirrors and the session
// store. A nil mock gets fresh seed data.
func New(client *api.Client, mock *mockdata.Catalog, store *session.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if mock == nil {
		mock = mockdata.NewCatalog()
	}

	d := &deps{
		client:   client,
		mock:     mock,
		resolver: fallback.NewResolver(opts.FallbackEnabled, logger),
		session:  store,
		logger:   logger,
	}

	authors := &Authors{d: d}
	genres := &Genres{d: d}

	return &Service{
		Auth:            &Auth{d: d},
		Books:           &Books{d: d, authors: authors, genres: genres},
		Authors:         authors,
		Genres:          genres,
		Reviews:         &Reviews{d: d},
		Documents:       &Documents{d: d},
		RAG:             &RAG{d: d},
		Admin:           &Admin{d: d},
		Ingestion:       &Ingestion{d: d},
		Imbibing:        &Imbibing{d: d},
		Recommendations: &Recommendations{d: d},
	}
}

// call runs one JSON request through the fallback resolver.
func call[T any](
	ctx context.Context, d *deps, ep fallback.Endpoint,
	method, path string, body any, substitute func() T, opts ...api.RequestOption,
) (api.Envelope[T], error) {
	return fallback.Do(ctx, d.resolver, ep,
		func(ctx context.Context) (api.Envelope[T], error) {
			return api.Call[T](ctx, d.client, method, path, body, opts...)
		},
		substitute,
	)
}

// direct runs one JSON request with no fallback.
func direct[T any](ctx context.Context, d *deps, method, path string, body any, opts ...api.RequestOption) (api.Envelope[T], error) {
	return api.Call[T](ctx, d.client, method, path, body, opts...)
}
