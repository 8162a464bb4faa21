package api

import (
	"context"
	"net/http"
)

// Envelope is a typed response. Substituted is true when Data came from the
// offline mirror instead of the backend.
type Envelope[T any] struct {
	Status      int
	Data        T
	Substituted bool
}

// Call performs method on path and decodes the JSON body into T.
func Call[T any](ctx context.Context, c *Client, method, path string, body any, opts ...RequestOption) (Envelope[T], error) {
	var env Envelope[T]

	resp, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return env, err
	}

	env.Status = resp.Status
	if err := resp.Decode(&env.Data); err != nil {
		return env, Classify(err)
	}

	return env, nil
}

// GetJSON is Call with GET and no body.
func GetJSON[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (Envelope[T], error) {
	return Call[T](ctx, c, http.MethodGet, path, nil, opts...)
}
