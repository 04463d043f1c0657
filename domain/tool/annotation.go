// Package tool provides the domain model for MCP tools: definitions, handlers,
// responses and the registry port.
package tool

// Annotations describe tool behavior for caching, retries and access control.
type Annotations struct {
	// ReadOnly indicates the tool has no side effects on the provider.
	ReadOnly bool `json:"readOnlyHint"`

	// Idempotent indicates multiple calls with same input yield same result.
	Idempotent bool `json:"idempotentHint"`

	// OpenWorld indicates the tool talks to an external service.
	OpenWorld bool `json:"openWorldHint"`

	// Cacheable indicates results can be cached.
	Cacheable bool `json:"-"`

	// RequiresCredentials indicates the tool needs a configured API key.
	RequiresCredentials bool `json:"-"`

	// Timeout is the maximum execution time in seconds (0 = default).
	Timeout int `json:"-"`

	// Tags are arbitrary labels for categorization.
	Tags []string `json:"-"`
}

// LookupAnnotations returns annotations for a read-only provider lookup.
func LookupAnnotations() Annotations {
	return Annotations{
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
		Cacheable:  true,
	}
}

// CanCache returns true if the tool result can be cached.
func (a Annotations) CanCache() bool {
	return a.Cacheable && (a.ReadOnly || a.Idempotent)
}

// CanRetry returns true if the tool can be safely retried on failure.
func (a Annotations) CanRetry() bool {
	return a.Idempotent || a.ReadOnly
}

// HasTag reports whether the annotations carry the tag.
func (a Annotations) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
