package attr

import (
	"fmt"

	"github.com/lexandro/ff/types"
)

// Attribute is a fully-qualified attribute name.
type Attribute struct {
	Plugin string
	Name   string
}

// String returns the "plugin.name" form.
func (a Attribute) String() string {
	return a.Plugin + "." + a.Name
}

// Descriptor declares one attribute of a provider.
type Descriptor struct {
	Name string
	Kind types.Kind
	// Cost is a small integer; higher means more expensive to compute.
	// The evaluator runs cheap tests first.
	Cost int
	// Cacheable attributes are memoized in the persistent cache keyed by
	// (path, mtime, size, attribute).
	Cacheable bool
	Help      string
}

// Provider computes a set of attributes for filesystem entries. Providers
// are registered once at startup and must be safe for concurrent use; all
// per-entry state lives in the Context.
type Provider interface {
	// Name is the plugin namespace, e.g. "file".
	Name() string
	// Requires lists the names of providers this provider depends on.
	Requires() []string
	// Descriptors declares the attributes the provider realizes.
	Descriptors() []Descriptor
	// Init prepares the provider for use. It is called at most once, and
	// only if one of the provider's attributes is actually requested.
	Init() error
	// Process computes attribute values for the entry and stores them in
	// the context via Set. One call may populate several attributes.
	Process(e *Entry, ctx *Context) error
}

// AttributeError reports an unknown or ambiguous attribute name.
type AttributeError struct {
	Name   string
	Reason string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("attribute %q: %s", e.Name, e.Reason)
}

// ProviderError reports an unrecoverable plugin failure.
type ProviderError struct {
	Plugin string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("plugin %q: %v", e.Plugin, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
