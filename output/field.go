// Package output renders matching entries: plain records, JSON, counts and
// external commands. Sinks receive entries concurrently from the walker and
// serialize their own output.
package output

import (
	"fmt"
	"strings"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Field is one resolved output or sort attribute with its modifiers.
type Field struct {
	// Name is the attribute as written on the command line.
	Name      string
	Attribute attr.Attribute
	Type      *types.Type

	// Modifier is one of 0, 'h', 'x' or 'o' and selects the formatter.
	Modifier byte
	// KeepNull ('n') keeps the record even when this field has no value.
	KeepNull bool
	// Natural ('v') selects version-aware ordering when sorting.
	Natural bool
}

// ParseFields resolves a comma-separated attribute list. The special name
// "file" expands to all attributes of the file plugin.
func ParseFields(list string, reg *attr.Registry) ([]Field, error) {
	var fields []Field
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		name, modifiers, _ := strings.Cut(item, ":")
		if name == "file" {
			for _, fileAttr := range reg.FileAttributes() {
				f, err := makeField(fileAttr, modifiers, reg)
				if err != nil {
					return nil, err
				}
				fields = append(fields, f)
			}
			continue
		}

		f, err := makeField(name, modifiers, reg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func makeField(name, modifiers string, reg *attr.Registry) (Field, error) {
	a, err := reg.Resolve(name)
	if err != nil {
		return Field{}, err
	}

	f := Field{Name: name, Attribute: a, Type: reg.Type(a)}
	for i := 0; i < len(modifiers); i++ {
		switch modifiers[i] {
		case 'h', 'x', 'o':
			f.Modifier = modifiers[i]
		case 'n':
			f.KeepNull = true
		case 'v':
			f.Natural = true
		default:
			return Field{}, fmt.Errorf("invalid modifier %q in %q", modifiers[i], name+":"+modifiers)
		}
	}
	return f, nil
}

// Value fetches the field's attribute from the entry context.
func (f Field) Value(ctx *attr.Context) (types.Value, bool) {
	return ctx.Get(f.Attribute)
}

// Format renders a value of this field for record output.
func (f Field) Format(v types.Value, si bool) string {
	return f.Type.Format(v, f.Modifier, si)
}

// Sink consumes matching entries. Accept is called concurrently from the
// walker's workers; Close flushes any buffered state.
type Sink interface {
	Accept(ctx *attr.Context)
	Close() error
}
