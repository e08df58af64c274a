package builtin

import (
	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Ignore exposes whether an entry matches patterns from the ignore files
// collected along its directory path.
type Ignore struct{}

// Name implements attr.Provider.
func (Ignore) Name() string { return "ignore" }

// Requires implements attr.Provider.
func (Ignore) Requires() []string { return nil }

// Init implements attr.Provider.
func (Ignore) Init() error { return nil }

// Descriptors implements attr.Provider. The results depend on the ignore
// file stack, not on the file itself, so they are not cacheable.
func (Ignore) Descriptors() []attr.Descriptor {
	return []attr.Descriptor{
		{Name: "ignored", Kind: types.Boolean, Cost: 5,
			Help: "Whether the file matches patterns in a .(git|fd|ff)ignore file."},
		{Name: "path", Kind: types.Path, Cost: 5,
			Help: "The ignore file containing the winning pattern. Unset if the file is not ignored."},
	}
}

// Process implements attr.Provider.
func (Ignore) Process(e *attr.Entry, ctx *attr.Context) error {
	ignored := false
	source := ""
	if e.Ignores != nil {
		ignored, source = e.Ignores.Match(e.Abspath, e.IsDir())
	}

	ctx.Set(attr.Attribute{Plugin: "ignore", Name: "ignored"}, types.Bool(ignored))
	if ignored && source != "" {
		ctx.Set(attr.Attribute{Plugin: "ignore", Name: "path"}, types.PathVal(source))
	}
	return nil
}
