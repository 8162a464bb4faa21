package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// Reviews is the /books/{id}/reviews resource. Reviews are user content
// and never fall back.
type Reviews struct {
	d *deps
}

// List fetches the reviews of a book.
func (r *Reviews) List(ctx context.Context, bookID int) (api.Envelope[[]domain.Review], error) {
	return direct[[]domain.Review](ctx, r.d, http.MethodGet, fmt.Sprintf("/books/%d/reviews", bookID), nil)
}

// Add posts a review for a book.
func (r *Reviews) Add(ctx context.Context, bookID int, rev domain.Review) (api.Envelope[domain.Review], error) {
	return direct[domain.Review](ctx, r.d, http.MethodPost, fmt.Sprintf("/books/%d/reviews", bookID), rev)
}
