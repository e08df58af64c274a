package ignore

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a single compiled gitignore-style glob as used by the %
// operator. A pattern with a slash anywhere but the end anchors against the
// whole path, otherwise it matches the basename. A leading "!" inverts the
// result, a trailing "/" restricts the match to directories.
type Pattern struct {
	Source   string
	Anchored bool

	include bool
	dirOnly bool
	glob    string
}

// CompilePattern validates and compiles a glob pattern.
func CompilePattern(source string) (*Pattern, error) {
	p := &Pattern{Source: source, include: true}

	glob := source
	if strings.HasPrefix(glob, `\#`) || strings.HasPrefix(glob, `\!`) {
		glob = glob[1:]
	} else if strings.HasPrefix(glob, "!") {
		p.include = false
		glob = glob[1:]
	}

	if strings.HasSuffix(glob, "/") {
		p.dirOnly = true
		glob = strings.TrimSuffix(glob, "/")
	}

	// A slash before the last character anchors the pattern at the start
	// of the path.
	if i := strings.Index(glob, "/"); i >= 0 && i < len(glob)-1 {
		p.Anchored = true
		glob = strings.TrimLeft(glob, "/")
	}

	if !doublestar.ValidatePattern(glob) {
		return nil, fmt.Errorf("invalid glob pattern %q", source)
	}

	p.glob = glob
	return p, nil
}

// Matches evaluates the pattern against an attribute value. Anchored
// patterns match the full value with any leading slash removed (the way
// gitignore matches relative paths); unanchored patterns match the
// basename. Inversion and the directory-only marker are applied here.
func (p *Pattern) Matches(value string, isDir bool) bool {
	matched := false
	if !p.dirOnly || isDir {
		target := path.Base(value)
		if p.Anchored {
			target = strings.TrimLeft(value, "/")
		}
		ok, err := doublestar.Match(p.glob, target)
		matched = err == nil && ok
	}

	if p.include {
		return matched
	}
	return !matched
}
