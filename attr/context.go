package attr

import (
	"github.com/lexandro/ff/types"
)

// Store is the persistent cache consulted for cacheable attributes. The
// implementation is responsible for honoring the (mtime, size) invariant:
// Get must only return records whose recorded mtime and size match the
// arguments, evicting stale records.
type Store interface {
	// Get returns the cached value for (path, mtime, size, attribute).
	// isErr marks a cached error marker. found is false on a miss.
	Get(path string, mtimeNs, size int64, attribute string) (v types.Value, isErr bool, found bool)
	// Put writes a value or error marker through to the store.
	Put(path string, mtimeNs, size int64, attribute string, v types.Value, isErr bool)
}

// Context is the per-entry scratchpad: every attribute value is computed at
// most once per entry and shared between exclusion tests, the main
// expression and the output fields. A Context is owned by a single worker
// and not safe for concurrent use.
type Context struct {
	Entry *Entry

	reg   *Registry
	store Store

	values    map[Attribute]types.Value
	failed    map[Attribute]bool
	processed map[string]bool
}

// NewContext returns a fresh Context over an entry. store may be nil when
// caching is disabled.
func NewContext(e *Entry, reg *Registry, store Store) *Context {
	return &Context{
		Entry:     e,
		reg:       reg,
		store:     store,
		values:    make(map[Attribute]types.Value),
		failed:    make(map[Attribute]bool),
		processed: make(map[string]bool),
	}
}

// Registry returns the registry the context resolves providers against.
func (c *Context) Registry() *Registry { return c.reg }

// Set stores a computed attribute value. Providers call this from Process;
// one Process call may set several attributes. Cacheable attributes are
// written through to the persistent store.
func (c *Context) Set(a Attribute, v types.Value) {
	c.values[a] = v
	if c.store != nil {
		if desc, ok := c.reg.Descriptor(a); ok && desc.Cacheable {
			c.store.Put(c.Entry.Abspath, c.Entry.MtimeNs, c.Entry.Size, a.String(), v, false)
		}
	}
}

// Get returns the value of an attribute for the context's entry. ok is
// false if the entry does not provide the attribute, either because the
// provider yields no value for it or because computing it failed; the
// failure is memoized so the work is not repeated.
func (c *Context) Get(a Attribute) (types.Value, bool) {
	if v, ok := c.values[a]; ok {
		return v, true
	}
	if c.failed[a] {
		return types.Value{}, false
	}

	// The file namespace reads straight off the Entry.
	if a.Plugin == "file" {
		v, err := c.Entry.Attribute(a.Name)
		if err != nil {
			c.failed[a] = true
			return types.Value{}, false
		}
		c.values[a] = v
		return v, true
	}

	desc, ok := c.reg.Descriptor(a)
	if !ok {
		c.failed[a] = true
		return types.Value{}, false
	}

	if desc.Cacheable && c.store != nil {
		if v, isErr, found := c.store.Get(c.Entry.Abspath, c.Entry.MtimeNs, c.Entry.Size, a.String()); found {
			if isErr {
				c.failed[a] = true
				return types.Value{}, false
			}
			c.values[a] = v
			return v, true
		}
	}

	c.process(a.Plugin)

	if v, ok := c.values[a]; ok {
		return v, true
	}

	// The provider ran but produced no value for this attribute. Remember
	// that, and cache the miss so the provider is not invoked again for
	// this file until it changes.
	c.failed[a] = true
	if desc.Cacheable && c.store != nil {
		c.store.Put(c.Entry.Abspath, c.Entry.MtimeNs, c.Entry.Size, a.String(), types.Value{}, true)
	}
	return types.Value{}, false
}

// GetError returns the value of an attribute along with the provider
// initialization error, if any. Used where plugin failures must be fatal.
func (c *Context) GetError(a Attribute) (types.Value, bool, error) {
	if a.Plugin != "file" {
		if err := c.reg.ensureInit(a.Plugin); err != nil {
			return types.Value{}, false, err
		}
	}
	v, ok := c.Get(a)
	return v, ok, nil
}

// process runs a provider once for this entry.
func (c *Context) process(plugin string) {
	if c.processed[plugin] {
		return
	}
	c.processed[plugin] = true

	if err := c.reg.ensureInit(plugin); err != nil {
		return
	}
	p, ok := c.reg.Provider(plugin)
	if !ok {
		return
	}
	// Process errors mean the provider could not handle this entry; the
	// affected attributes stay missing.
	_ = p.Process(c.Entry, c)
}
