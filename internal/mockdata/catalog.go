// Package mockdata holds the in-memory mirrors that stand in for the
// backend when it is unreachable. Mirrors start from fixed seed records and
// track mock writes, so a list after a mock create shows the new record for
// the rest of the process. Every accessor returns copies.
package mockdata

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shelfwise/bookcat/internal/domain"
)

// firstMockID is the first id handed to a mock-created record; seeds use 1–3.
const firstMockID = 4

// Catalog is the set of offline mirrors. Safe for concurrent use.
type Catalog struct {
	mu sync.Mutex

	books     []domain.Book
	authors   []domain.Author
	genres    []domain.Genre
	documents []domain.Document
	users     []domain.User
	roles     []domain.Role

	nextBookID     int
	nextAuthorID   int
	nextGenreID    int
	nextDocumentID int

	nowFunc func() time.Time
}

// NewCatalog returns mirrors populated with the seed records.
func NewCatalog() *Catalog {
	return &Catalog{
		books:          seedBooks(),
		authors:        seedAuthors(),
		genres:         seedGenres(),
		documents:      seedDocuments(),
		users:          seedUsers(),
		roles:          seedRoles(),
		nextBookID:     firstMockID,
		nextAuthorID:   firstMockID,
		nextGenreID:    firstMockID,
		nextDocumentID: firstMockID,
		nowFunc:        time.Now,
	}
}

// SetClock overrides the time source used for dates and job ids.
func (c *Catalog) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nowFunc = now
}

func (c *Catalog) now() time.Time {
	return c.nowFunc()
}

// notFound is the benign result of deleting an absent record.
func notFound(kind string) domain.Message {
	return domain.Message{Message: kind + " not found"}
}

func deleted(kind string) domain.Message {
	return domain.Message{Message: kind + " deleted successfully"}
}

// --- books ---

// Books returns every mirrored book.
func (c *Catalog) Books() []domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.books)
}

// Book returns the book with id, or nil.
func (c *Catalog) Book(id int) *domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.IndexFunc(c.books, func(b domain.Book) bool { return b.ID == id }); i >= 0 {
		b := c.books[i]
		return &b
	}

	return nil
}

// AddBook mirrors a create and returns the stored record.
func (c *Catalog) AddBook(in domain.BookInput) domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := domain.Book{
		ID:            c.nextBookID,
		Title:         in.Title,
		AuthorID:      in.AuthorID,
		GenreID:       in.GenreID,
		YearPublished: in.YearPublished,
		Author:        firstNonEmpty(in.Author, c.authorNameLocked(in.AuthorID)),
		Genre:         firstNonEmpty(in.Genre, c.genreNameLocked(in.GenreID)),
	}
	c.nextBookID++
	c.books = append(c.books, b)

	return b
}

// UpdateBook merges in into the book with id. Returns nil when absent.
func (c *Catalog) UpdateBook(id int, in domain.BookInput) *domain.Book {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.books, func(b domain.Book) bool { return b.ID == id })
	if i < 0 {
		return nil
	}

	b := &c.books[i]
	if in.Title != "" {
		b.Title = in.Title
	}

	if in.AuthorID != 0 {
		b.AuthorID = in.AuthorID
		b.Author = firstNonEmpty(c.authorNameLocked(in.AuthorID), b.Author)
	}

	if in.GenreID != 0 {
		b.GenreID = in.GenreID
		b.Genre = firstNonEmpty(c.genreNameLocked(in.GenreID), b.Genre)
	}

	if in.Author != "" {
		b.Author = in.Author
	}

	if in.Genre != "" {
		b.Genre = in.Genre
	}

	if in.YearPublished != 0 {
		b.YearPublished = in.YearPublished
	}

	out := *b

	return &out
}

// DeleteBook removes the book with id. Absent ids are not an error.
func (c *Catalog) DeleteBook(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.books)
	c.books = slices.DeleteFunc(c.books, func(b domain.Book) bool { return b.ID == id })

	if len(c.books) == n {
		return notFound("Book")
	}

	return deleted("Book")
}

// BookSummary is the offline summary text.
func (c *Catalog) BookSummary() domain.BookSummary {
	return domain.BookSummary{Summary: "This is a mock summary for the book."}
}

// SummaryGenerated acknowledges a summary request.
func (c *Catalog) SummaryGenerated() domain.BookSummary {
	return domain.BookSummary{Message: "Summary generated successfully"}
}

// --- authors and genres ---

// Authors returns every mirrored author.
func (c *Catalog) Authors() []domain.Author {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.authors)
}

// AddAuthor mirrors a create.
func (c *Catalog) AddAuthor(name string) domain.Author {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := domain.Author{ID: c.nextAuthorID, Name: name}
	c.nextAuthorID++
	c.authors = append(c.authors, a)

	return a
}

// UpdateAuthor renames the author with id. An absent id echoes the input.
func (c *Catalog) UpdateAuthor(id int, name string) domain.Author {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.IndexFunc(c.authors, func(a domain.Author) bool { return a.ID == id }); i >= 0 {
		c.authors[i].Name = name
	}

	return domain.Author{ID: id, Name: name}
}

// DeleteAuthor removes the author with id. Absent ids are not an error.
func (c *Catalog) DeleteAuthor(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.authors)
	c.authors = slices.DeleteFunc(c.authors, func(a domain.Author) bool { return a.ID == id })

	if len(c.authors) == n {
		return notFound("Author")
	}

	return deleted("Author")
}

// Genres returns every mirrored genre.
func (c *Catalog) Genres() []domain.Genre {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.genres)
}

// AddGenre mirrors a create.
func (c *Catalog) AddGenre(name string) domain.Genre {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := domain.Genre{ID: c.nextGenreID, Name: name}
	c.nextGenreID++
	c.genres = append(c.genres, g)

	return g
}

// UpdateGenre renames the genre with id. An absent id echoes the input.
func (c *Catalog) UpdateGenre(id int, name string) domain.Genre {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := slices.IndexFunc(c.genres, func(g domain.Genre) bool { return g.ID == id }); i >= 0 {
		c.genres[i].Name = name
	}

	return domain.Genre{ID: id, Name: name}
}

// DeleteGenre removes the genre with id. Absent ids are not an error.
func (c *Catalog) DeleteGenre(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.genres)
	c.genres = slices.DeleteFunc(c.genres, func(g domain.Genre) bool { return g.ID == id })

	if len(c.genres) == n {
		return notFound("Genre")
	}

	return deleted("Genre")
}

func (c *Catalog) authorNameLocked(id int) string {
	if i := slices.IndexFunc(c.authors, func(a domain.Author) bool { return a.ID == id }); i >= 0 {
		return c.authors[i].Name
	}

	return ""
}

func (c *Catalog) genreNameLocked(id int) string {
	if i := slices.IndexFunc(c.genres, func(g domain.Genre) bool { return g.ID == id }); i >= 0 {
		return c.genres[i].Name
	}

	return ""
}

// --- documents ---

// Documents returns every mirrored document.
func (c *Catalog) Documents() []domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.documents)
}

// AddDocument mirrors an upload of a file with the given name and size in
// bytes. A zero size is shown as 1.0 MB.
func (c *Catalog) AddDocument(name string, size int64) domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		name = "uploaded-file.pdf"
	}

	sizeText := "1.0 MB"
	if size > 0 {
		sizeText = fmt.Sprintf("%.1f MB", float64(size)/1024/1024)
	}

	d := domain.Document{
		ID:         c.nextDocumentID,
		Name:       name,
		Size:       sizeText,
		UploadDate: c.now().UTC().Format(time.DateOnly),
		Status:     "Processing",
	}
	c.nextDocumentID++
	c.documents = append(c.documents, d)

	return d
}

// DeleteDocument removes the document with id. Absent ids are not an error.
func (c *Catalog) DeleteDocument(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.documents)
	c.documents = slices.DeleteFunc(c.documents, func(d domain.Document) bool { return d.ID == id })

	if len(c.documents) == n {
		return notFound("Document")
	}

	return deleted("Document")
}

// DocumentDownload is the offline file body.
func (c *Catalog) DocumentDownload() domain.Download {
	return domain.Download{
		ContentType: "application/pdf",
		Data:        []byte("Mock file content for document"),
	}
}

// --- users and roles ---

// Users returns every mirrored user.
func (c *Catalog) Users() []domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.users)
}

// UpdateUser merges in into the user with id. Returns nil when absent.
func (c *Catalog) UpdateUser(id int, in domain.UserInput) *domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.IndexFunc(c.users, func(u domain.User) bool { return u.ID == id })
	if i < 0 {
		return nil
	}

	u := &c.users[i]
	if in.Username != "" {
		u.Username = in.Username
	}

	if in.Email != "" {
		u.Email = in.Email
	}

	if in.Status != "" {
		u.Status = in.Status
	}

	if len(in.RoleNames) > 0 {
		u.Role = in.RoleNames[0]
	}

	out := *u

	return &out
}

// DeleteUser removes the user with id. Absent ids are not an error.
func (c *Catalog) DeleteUser(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.users)
	c.users = slices.DeleteFunc(c.users, func(u domain.User) bool { return u.ID == id })

	if len(c.users) == n {
		return notFound("User")
	}

	return deleted("User")
}

// Roles returns every mirrored role.
func (c *Catalog) Roles() []domain.Role {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.roles)
}

// DeleteRole removes the role with id. Absent ids are not an error.
func (c *Catalog) DeleteRole(id int) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.roles)
	c.roles = slices.DeleteFunc(c.roles, func(r domain.Role) bool { return r.ID == id })

	if len(c.roles) == n {
		return notFound("Role")
	}

	return deleted("Role")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}
