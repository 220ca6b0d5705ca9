package secrets

import (
	"context"
	"fmt"
)

// Router dispatches references to the backend named by their scheme.
type Router struct {
	env Resolver
	bao Resolver
}

// NewRouter creates a router. bao may be nil when no OpenBao server is
// configured; bao references then fail with ErrBackendUnavailable.
func NewRouter(env, bao Resolver) *Router {
	return &Router{env: env, bao: bao}
}

// Resolve implements Resolver.
func (r *Router) Resolve(ctx context.Context, ref Ref) (string, error) {
	var backend Resolver
	switch ref.Scheme() {
	case SchemeEnv:
		backend = r.env
	case SchemeBao:
		backend = r.bao
	default:
		return "", wrapRef(ref, fmt.Errorf("%w: unknown scheme %q", ErrInvalidRef, ref.Scheme()))
	}
	if backend == nil {
		return "", wrapRef(ref, ErrBackendUnavailable)
	}
	return backend.Resolve(ctx, ref)
}
