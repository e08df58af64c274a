package output

import (
	"path/filepath"
	"strings"

	"github.com/lexandro/ff/attr"
)

// defaultColors is the palette used when LS_COLORS is not set, matching the
// common dircolors defaults.
const defaultColors = "di=01;34:ln=01;36:or=40;31;01:so=01;35:pi=40;33:" +
	"bd=40;33;01:cd=40;33;01:ex=01;32"

// Palette maps dircolors keys and extension patterns to ANSI codes.
type Palette struct {
	keys map[string]string
	ext  map[string]string
}

// ParsePalette parses an LS_COLORS value. An empty value yields the
// dircolors default palette.
func ParsePalette(lscolors string) *Palette {
	if lscolors == "" {
		lscolors = defaultColors
	}

	p := &Palette{
		keys: make(map[string]string),
		ext:  make(map[string]string),
	}
	for _, item := range strings.Split(lscolors, ":") {
		key, code, ok := strings.Cut(item, "=")
		if !ok || code == "" {
			continue
		}
		if pattern, found := strings.CutPrefix(key, "*"); found {
			p.ext[strings.ToLower(pattern)] = code
		} else {
			p.keys[key] = code
		}
	}
	return p
}

// Paint wraps s in the ANSI sequence selected for the entry, or returns it
// unchanged when no rule applies.
func (p *Palette) Paint(e *attr.Entry, s string) string {
	code := p.code(e)
	if code == "" {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func (p *Palette) code(e *attr.Entry) string {
	switch e.TypeName {
	case "directory":
		return p.keys["di"]
	case "symlink":
		if e.Broken {
			if code := p.keys["or"]; code != "" {
				return code
			}
		}
		return p.keys["ln"]
	case "socket":
		return p.keys["so"]
	case "fifo":
		return p.keys["pi"]
	case "block":
		return p.keys["bd"]
	case "char":
		return p.keys["cd"]
	}

	if ext := strings.ToLower(filepath.Ext(e.Name)); ext != "" {
		if code, ok := p.ext[ext]; ok {
			return code
		}
	}
	if e.IsFile() && e.Mode.Perm()&0o111 != 0 {
		return p.keys["ex"]
	}
	return ""
}
