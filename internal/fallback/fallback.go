// Package fallback lets endpoint calls degrade to offline substitute data
// when the backend is unreachable or failing, so the client stays usable in
// a disconnected demo setup. Which failures fall back is declared per
// endpoint with a Policy.
package fallback

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shelfwise/bookcat/internal/api"
)

// Policy is the set of error kinds that fall back to substitute data.
type Policy struct {
	kinds []api.Kind
}

// NewPolicy builds a policy covering kinds.
func NewPolicy(kinds ...api.Kind) Policy {
	return Policy{kinds: slices.Clone(kinds)}
}

// Predefined policies.
var (
	// CatalogPolicy covers an absent or failing backend.
	CatalogPolicy = NewPolicy(api.KindNetworkUnreachable, api.KindServerError)

	// ExtendedPolicy also covers endpoints the backend may not expose yet.
	ExtendedPolicy = NewPolicy(api.KindNetworkUnreachable, api.KindServerError,
		api.KindNotFound, api.KindForbidden)

	// AdminPolicy additionally covers rejected admin reads.
	AdminPolicy = NewPolicy(api.KindNetworkUnreachable, api.KindServerError,
		api.KindNotFound, api.KindForbidden, api.KindValidation)

	// Never covers nothing.
	Never = Policy{}
)

// userFacingKinds must reach the user when they initiated a write.
var userFacingKinds = []api.Kind{api.KindUnauthorized, api.KindConflict, api.KindValidation}

// Covers reports whether failures of kind fall back.
func (p Policy) Covers(kind api.Kind) bool {
	return slices.Contains(p.kinds, kind)
}

// Kinds returns the covered kinds.
func (p Policy) Kinds() []api.Kind {
	return slices.Clone(p.kinds)
}

// ForMutation drops the kinds a user-initiated write must never mask.
func (p Policy) ForMutation() Policy {
	out := make([]api.Kind, 0, len(p.kinds))
	for _, k := range p.kinds {
		if !slices.Contains(userFacingKinds, k) {
			out = append(out, k)
		}
	}

	return Policy{kinds: out}
}

// Endpoint declares one wrapped operation.
type Endpoint struct {
	Name     string
	Policy   Policy
	Mutating bool
}

// effectivePolicy applies the mutation restriction.
func (e Endpoint) effectivePolicy() Policy {
	if e.Mutating {
		return e.Policy.ForMutation()
	}

	return e.Policy
}

// Resolver decides fallbacks for a set of endpoints. A disabled resolver
// never substitutes.
type Resolver struct {
	enabled bool
	logger  *slog.Logger
}

// NewResolver creates a Resolver. A nil logger uses slog.Default().
func NewResolver(enabled bool, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{enabled: enabled, logger: logger}
}

// Enabled reports whether substitution is on.
func (r *Resolver) Enabled() bool {
	return r != nil && r.enabled
}

// ShouldFallback classifies err and reports whether ep substitutes for it.
func (r *Resolver) ShouldFallback(ep Endpoint, err error) (*api.Error, bool) {
	apiErr := api.Classify(err)
	if !r.Enabled() {
		return apiErr, false
	}

	return apiErr, ep.effectivePolicy().Covers(apiErr.Kind)
}

// Do runs call first, always. On success the real envelope is returned
// unchanged. On a failure the endpoint's policy covers, substitute is
// invoked and its value returned with Substituted set; substitute runs
// only in that case, so mirror mutations happen only when the backend
// did not perform the write. Other failures propagate unchanged.
func Do[T any](
	ctx context.Context, r *Resolver, ep Endpoint,
	call func(context.Context) (api.Envelope[T], error),
	substitute func() T,
) (api.Envelope[T], error) {
	env, err := call(ctx)
	if err == nil {
		return env, nil
	}

	apiErr, ok := r.ShouldFallback(ep, err)
	if !ok {
		return env, err
	}

	r.logger.Warn("backend not available, using mock data",
		slog.String("endpoint", ep.Name),
		slog.String("kind", apiErr.Kind.String()),
	)

	return api.Envelope[T]{Data: substitute(), Substituted: true}, nil
}
