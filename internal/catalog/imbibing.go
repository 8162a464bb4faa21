package catalog

import (
	"context"
	"net/http"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// Imbibing is the /imbibing resource.
type Imbibing struct {
	d *deps
}

// Run starts an imbibing pass.
func (i *Imbibing) Run(ctx context.Context) (api.Envelope[domain.JobAck], error) {
	return direct[domain.JobAck](ctx, i.d, http.MethodPost, "/imbibing/run", nil)
}

// Status fetches the imbibing progress.
func (i *Imbibing) Status(ctx context.Context) (api.Envelope[domain.JobStatus], error) {
	return direct[domain.JobStatus](ctx, i.d, http.MethodGet, "/imbibing/status", nil)
}
