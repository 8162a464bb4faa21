package catalog

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/fallback"
)

var (
	epBooksList       = fallback.Endpoint{Name: "books.list", Policy: fallback.CatalogPolicy}
	epBooksGet        = fallback.Endpoint{Name: "books.get", Policy: fallback.CatalogPolicy}
	epBooksCreate     = fallback.Endpoint{Name: "books.create", Policy: fallback.CatalogPolicy, Mutating: true}
	epBooksUpdate     = fallback.Endpoint{Name: "books.update", Policy: fallback.CatalogPolicy, Mutating: true}
	epBooksDelete     = fallback.Endpoint{Name: "books.delete", Policy: fallback.CatalogPolicy, Mutating: true}
	epBooksGenSummary = fallback.Endpoint{Name: "books.generate_summary", Policy: fallback.CatalogPolicy, Mutating: true}
	epBooksSummary    = fallback.Endpoint{Name: "books.summary", Policy: fallback.CatalogPolicy}
	epDropdownAuthors = fallback.Endpoint{Name: "books.dropdown_authors", Policy: fallback.CatalogPolicy}
	epDropdownGenres  = fallback.Endpoint{Name: "books.dropdown_genres", Policy: fallback.CatalogPolicy}
)

// Books is the /books resource.
type Books struct {
	d       *deps
	authors *Authors
	genres  *Genres
}

// List fetches every book.
func (b *Books) List(ctx context.Context) (api.Envelope[[]domain.Book], error) {
	return call(ctx, b.d, epBooksList, http.MethodGet, "/books", nil, b.d.mock.Books)
}

// Get fetches one book. Offline, Data is nil when the mirror has no such id.
func (b *Books) Get(ctx context.Context, id int) (api.Envelope[*domain.Book], error) {
	return call(ctx, b.d, epBooksGet, http.MethodGet, fmt.Sprintf("/books/%d", id), nil,
		func() *domain.Book { return b.d.mock.Book(id) })
}

// Create adds a book.
func (b *Books) Create(ctx context.Context, in domain.BookInput) (api.Envelope[domain.Book], error) {
	return call(ctx, b.d, epBooksCreate, http.MethodPost, "/books", in,
		func() domain.Book { return b.d.mock.AddBook(in) })
}

// Update replaces the fields set in in. Offline, Data is nil when the
// mirror has no such id.
func (b *Books) Update(ctx context.Context, id int, in domain.BookInput) (api.Envelope[*domain.Book], error) {
	return call(ctx, b.d, epBooksUpdate, http.MethodPut, fmt.Sprintf("/books/%d", id), in,
		func() *domain.Book { return b.d.mock.UpdateBook(id, in) })
}

// Delete removes a book.
func (b *Books) Delete(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, b.d, epBooksDelete, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil,
		func() domain.Message { return b.d.mock.DeleteBook(id) })
}

// GenerateSummary asks the backend to (re)generate a book summary.
func (b *Books) GenerateSummary(ctx context.Context, id int) (api.Envelope[domain.BookSummary], error) {
	return call(ctx, b.d, epBooksGenSummary, http.MethodPost, fmt.Sprintf("/books/%d/generate-summary", id), nil,
		b.d.mock.SummaryGenerated)
}

// Summary fetches the stored summary of a book.
func (b *Books) Summary(ctx context.Context, id int) (api.Envelope[domain.BookSummary], error) {
	return call(ctx, b.d, epBooksSummary, http.MethodGet, fmt.Sprintf("/books/%d/summary", id), nil,
		b.d.mock.BookSummary)
}

// DropdownAuthors fetches the author choices for the book form.
func (b *Books) DropdownAuthors(ctx context.Context) (api.Envelope[[]domain.Author], error) {
	return call(ctx, b.d, epDropdownAuthors, http.MethodGet, "/books/dropdown/authors", nil, b.d.mock.Authors)
}

// DropdownGenres fetches the genre choices for the book form.
func (b *Books) DropdownGenres(ctx context.Context) (api.Envelope[[]domain.Genre], error) {
	return call(ctx, b.d, epDropdownGenres, http.MethodGet, "/books/dropdown/genres", nil, b.d.mock.Genres)
}

// FormOptions holds the choices the book form offers.
type FormOptions struct {
	Authors []domain.Author
	Genres  []domain.Genre

	// Substituted is true when either list came from the offline mirror.
	Substituted bool
}

// FormOptions loads both dropdowns concurrently and returns once both have
// resolved. The first failure cancels the other load.
func (b *Books) FormOptions(ctx context.Context) (FormOptions, error) {
	var (
		authors api.Envelope[[]domain.Author]
		genres  api.Envelope[[]domain.Genre]
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		authors, err = b.DropdownAuthors(gctx)

		return err
	})

	g.Go(func() error {
		var err error
		genres, err = b.DropdownGenres(gctx)

		return err
	})

	if err := g.Wait(); err != nil {
		return FormOptions{}, err
	}

	return FormOptions{
		Authors:     authors.Data,
		Genres:      genres.Data,
		Substituted: authors.Substituted || genres.Substituted,
	}, nil
}

// NewBook describes a book whose author and genre do not exist yet.
type NewBook struct {
	Title         string
	AuthorName    string
	GenreName     string
	YearPublished int
}

// AddWithNewRefs creates the author, then the genre, then the book that
// references both. Each step needs the id the previous one returned, so
// they run strictly in order and the first failure stops the chain.
func (b *Books) AddWithNewRefs(ctx context.Context, nb NewBook) (domain.Book, error) {
	author, err := b.authors.Create(ctx, nb.AuthorName)
	if err != nil {
		return domain.Book{}, fmt.Errorf("creating author %q: %w", nb.AuthorName, err)
	}

	genre, err := b.genres.Create(ctx, nb.GenreName)
	if err != nil {
		return domain.Book{}, fmt.Errorf("creating genre %q: %w", nb.GenreName, err)
	}

	book, err := b.Create(ctx, domain.BookInput{
		Title:         nb.Title,
		AuthorID:      author.Data.ID,
		GenreID:       genre.Data.ID,
		YearPublished: nb.YearPublished,
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("creating book %q: %w", nb.Title, err)
	}

	return book.Data, nil
}
