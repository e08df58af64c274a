package attr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lexandro/ff/types"
)

// Registry is the catalog of providers and the attributes they declare.
// It is populated at startup and read-only afterwards; only the lazy
// provider initialization is guarded by a lock.
type Registry struct {
	providers   map[string]Provider
	descriptors map[Attribute]Descriptor
	byName      map[string][]string

	mu          sync.Mutex
	initialized map[string]error
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers:   make(map[string]Provider),
		descriptors: make(map[Attribute]Descriptor),
		byName:      make(map[string][]string),
		initialized: make(map[string]error),
	}
}

// Register adds a provider. Two providers declaring the same fully
// qualified attribute name are rejected.
func (r *Registry) Register(p Provider) error {
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return &ProviderError{Plugin: name, Err: fmt.Errorf("already registered")}
	}

	for _, desc := range p.Descriptors() {
		full := Attribute{Plugin: name, Name: desc.Name}
		if _, ok := r.descriptors[full]; ok {
			return &ProviderError{Plugin: name,
				Err: fmt.Errorf("duplicate attribute %s", full)}
		}
		if types.Lookup(desc.Kind) == nil {
			return &ProviderError{Plugin: name,
				Err: fmt.Errorf("attribute %s has invalid type", full)}
		}
		r.descriptors[full] = desc
		r.byName[desc.Name] = append(r.byName[desc.Name], name)
	}

	r.providers[name] = p
	return nil
}

// CheckDependencies verifies that all provider dependencies exist and that
// the depends-on relation is acyclic.
func (r *Registry) CheckDependencies() error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int)

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return &ProviderError{Plugin: name, Err: fmt.Errorf("dependency cycle")}
		}
		state[name] = visiting
		p, ok := r.providers[name]
		if !ok {
			return &ProviderError{Plugin: name, Err: fmt.Errorf("no such plugin")}
		}
		for _, dep := range p.Requires() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}

	for name := range r.providers {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Resolve parses an attribute name into its fully qualified form. A name
// with a dot must match exactly. An unqualified name resolves to the file
// provider if it declares it, otherwise it must be declared by exactly one
// provider.
func (r *Registry) Resolve(name string) (Attribute, error) {
	if plugin, attrName, ok := strings.Cut(name, "."); ok {
		full := Attribute{Plugin: plugin, Name: attrName}
		if _, ok := r.providers[plugin]; !ok {
			return Attribute{}, &AttributeError{Name: name, Reason: "no such plugin"}
		}
		if _, ok := r.descriptors[full]; !ok {
			return Attribute{}, &AttributeError{Name: name,
				Reason: fmt.Sprintf("plugin %q has no such attribute", plugin)}
		}
		return full, nil
	}

	plugins := r.byName[name]
	for _, plugin := range plugins {
		if plugin == "file" {
			return Attribute{Plugin: "file", Name: name}, nil
		}
	}

	switch len(plugins) {
	case 0:
		return Attribute{}, &AttributeError{Name: name, Reason: "no plugin provides it"}
	case 1:
		return Attribute{Plugin: plugins[0], Name: name}, nil
	default:
		choices := make([]string, len(plugins))
		for i, plugin := range plugins {
			choices[i] = plugin + "." + name
		}
		sort.Strings(choices)
		return Attribute{}, &AttributeError{Name: name,
			Reason: "ambiguous (choose between " + strings.Join(choices, ", ") + ")"}
	}
}

// Descriptor returns the descriptor of a fully qualified attribute.
func (r *Registry) Descriptor(a Attribute) (Descriptor, bool) {
	desc, ok := r.descriptors[a]
	return desc, ok
}

// Type returns the Type of a fully qualified attribute, or nil if the
// attribute does not exist.
func (r *Registry) Type(a Attribute) *types.Type {
	desc, ok := r.descriptors[a]
	if !ok {
		return nil
	}
	return types.Lookup(desc.Kind)
}

// Provider returns the provider with the given name.
func (r *Registry) Provider(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Plugins returns all provider names, "file" first, the rest sorted.
func (r *Registry) Plugins() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return sortName(names[i]) < sortName(names[j])
	})
	return names
}

// Attributes returns all declared attributes grouped by plugin, the file
// plugin first.
func (r *Registry) Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(r.descriptors))
	for a := range r.descriptors {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		if attrs[i].Plugin != attrs[j].Plugin {
			return sortName(attrs[i].Plugin) < sortName(attrs[j].Plugin)
		}
		return attrs[i].Name < attrs[j].Name
	})
	return attrs
}

// FileAttributes returns the names declared by the file provider, used to
// expand the special -o value "file".
func (r *Registry) FileAttributes() []string {
	var names []string
	for _, a := range r.Attributes() {
		if a.Plugin == "file" {
			names = append(names, a.Name)
		}
	}
	return names
}

func sortName(plugin string) string {
	if plugin == "file" {
		return ""
	}
	return plugin
}

// ensureInit initializes a provider on first use. Initialization failures
// are remembered and returned on every subsequent call.
func (r *Registry) ensureInit(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err, ok := r.initialized[name]
	if ok {
		return err
	}

	p := r.providers[name]
	err = p.Init()
	if err != nil {
		err = &ProviderError{Plugin: name, Err: err}
	}
	r.initialized[name] = err
	return err
}
