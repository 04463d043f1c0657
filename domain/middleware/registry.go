package middleware

// Registry manages an ordered collection of middleware.
type Registry struct {
	middlewares []Middleware
}

// NewRegistry creates an empty middleware registry.
func NewRegistry() *Registry {
	return &Registry{
		middlewares: make([]Middleware, 0),
	}
}

// Use adds middleware. Middleware run in the order they are added.
func (r *Registry) Use(ms ...Middleware) *Registry {
	for _, m := range ms {
		if m != nil {
			r.middlewares = append(r.middlewares, m)
		}
	}
	return r
}

// Chain returns the complete middleware chain, or Noop when empty.
func (r *Registry) Chain() Middleware {
	if len(r.middlewares) == 0 {
		return Noop()
	}
	return Chain(r.middlewares...)
}

// Len returns the number of middleware in the registry.
func (r *Registry) Len() int {
	return len(r.middlewares)
}
