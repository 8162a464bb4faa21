package catalog

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// Recommendations is the /recommendations resource.
type Recommendations struct {
	d *deps
}

// List fetches recommendations. params, when non-empty, become the query
// string (for example limit and user_id).
func (r *Recommendations) List(ctx context.Context, params url.Values) (api.Envelope[[]domain.Recommendation], error) {
	var opts []api.RequestOption
	if len(params) > 0 {
		opts = append(opts, api.WithQuery(params))
	}

	return direct[[]domain.Recommendation](ctx, r.d, http.MethodGet, "/recommendations", nil, opts...)
}
