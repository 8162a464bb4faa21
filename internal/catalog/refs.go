package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/fallback"
)

var (
	epAuthorsList   = fallback.Endpoint{Name: "authors.list", Policy: fallback.CatalogPolicy}
	epAuthorsCreate = fallback.Endpoint{Name: "authors.create", Policy: fallback.CatalogPolicy, Mutating: true}
	epAuthorsUpdate = fallback.Endpoint{Name: "authors.update", Policy: fallback.CatalogPolicy, Mutating: true}
	epAuthorsDelete = fallback.Endpoint{Name: "authors.delete", Policy: fallback.CatalogPolicy, Mutating: true}

	epGenresList   = fallback.Endpoint{Name: "genres.list", Policy: fallback.CatalogPolicy}
	epGenresCreate = fallback.Endpoint{Name: "genres.create", Policy: fallback.CatalogPolicy, Mutating: true}
	epGenresUpdate = fallback.Endpoint{Name: "genres.update", Policy: fallback.CatalogPolicy, Mutating: true}
	epGenresDelete = fallback.Endpoint{Name: "genres.delete", Policy: fallback.CatalogPolicy, Mutating: true}
)

// Authors is the /authors resource.
type Authors struct {
	d *deps
}

// List fetches every author.
func (a *Authors) List(ctx context.Context) (api.Envelope[[]domain.Author], error) {
	return call(ctx, a.d, epAuthorsList, http.MethodGet, "/authors", nil, a.d.mock.Authors)
}

// Create adds an author.
func (a *Authors) Create(ctx context.Context, name string) (api.Envelope[domain.Author], error) {
	return call(ctx, a.d, epAuthorsCreate, http.MethodPost, "/authors", domain.NameInput{Name: name},
		func() domain.Author { return a.d.mock.AddAuthor(name) })
}

// Update renames an author.
func (a *Authors) Update(ctx context.Context, id int, name string) (api.Envelope[domain.Author], error) {
	return call(ctx, a.d, epAuthorsUpdate, http.MethodPut, fmt.Sprintf("/authors/%d", id), domain.NameInput{Name: name},
		func() domain.Author { return a.d.mock.UpdateAuthor(id, name) })
}

// Delete removes an author.
func (a *Authors) Delete(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, a.d, epAuthorsDelete, http.MethodDelete, fmt.Sprintf("/authors/%d", id), nil,
		func() domain.Message { return a.d.mock.DeleteAuthor(id) })
}

// Genres is the /genres resource.
type Genres struct {
	d *deps
}

// List fetches every genre.
func (g *Genres) List(ctx context.Context) (api.Envelope[[]domain.Genre], error) {
	return call(ctx, g.d, epGenresList, http.MethodGet, "/genres", nil, g.d.mock.Genres)
}

// Create adds a genre.
func (g *Genres) Create(ctx context.Context, name string) (api.Envelope[domain.Genre], error) {
	return call(ctx, g.d, epGenresCreate, http.MethodPost, "/genres", domain.NameInput{Name: name},
		func() domain.Genre { return g.d.mock.AddGenre(name) })
}

// Update renames a genre.
func (g *Genres) Update(ctx context.Context, id int, name string) (api.Envelope[domain.Genre], error) {
	return call(ctx, g.d, epGenresUpdate, http.MethodPut, fmt.Sprintf("/genres/%d", id), domain.NameInput{Name: name},
		func() domain.Genre { return g.d.mock.UpdateGenre(id, name) })
}

// Delete removes a genre.
func (g *Genres) Delete(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, g.d, epGenresDelete, http.MethodDelete, fmt.Sprintf("/genres/%d", id), nil,
		func() domain.Message { return g.d.mock.DeleteGenre(id) })
}
