package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator is a comparison operator from a test expression. The > < >= <=
// aliases are normalized to + - += -= by the expression parser.
type Operator string

const (
	OpEq       Operator = "="
	OpContains Operator = ":"
	OpRegex    Operator = "~"
	OpGlob     Operator = "%"
	OpGT       Operator = "+"
	OpLT       Operator = "-"
	OpGE       Operator = "+="
	OpLE       Operator = "-="
)

// CountPolicy controls how --count accumulates an attribute.
type CountPolicy int

const (
	// CountTally counts occurrences of each distinct value.
	CountTally CountPolicy = iota
	// CountSum sums the values up to a total.
	CountSum
	// Uncountable rejects the attribute for --count.
	Uncountable
)

// Type describes how values of one kind interface with the outside world:
// which operators they support, how user input is parsed, how values are
// rendered and how sort keys are derived.
type Type struct {
	Kind      Kind
	Operators []Operator
	Count     CountPolicy
	// StringType marks types that are subject to smart-case handling.
	StringType bool
	// Choices restricts parsed values to a fixed set, nil for no limit.
	Choices map[string]string
}

var typeTable = map[Kind]*Type{
	String: {
		Kind:       String,
		Operators:  []Operator{OpEq, OpContains, OpRegex, OpGlob},
		Count:      CountTally,
		StringType: true,
	},
	Path: {
		Kind:       Path,
		Operators:  []Operator{OpEq, OpContains, OpRegex, OpGlob},
		Count:      Uncountable,
		StringType: true,
	},
	Number: {
		Kind:      Number,
		Operators: []Operator{OpEq, OpGE, OpLE, OpGT, OpLT},
		Count:     CountTally,
	},
	Size: {
		Kind:      Size,
		Operators: []Operator{OpEq, OpGE, OpLE, OpGT, OpLT},
		Count:     CountSum,
	},
	Time: {
		Kind:      Time,
		Operators: []Operator{OpEq, OpGE, OpLE, OpGT, OpLT},
		Count:     Uncountable,
	},
	Duration: {
		Kind:      Duration,
		Operators: []Operator{OpEq, OpGE, OpLE, OpGT, OpLT},
		Count:     CountSum,
	},
	Mode: {
		Kind:      Mode,
		Operators: []Operator{OpEq, OpContains, OpRegex},
		Count:     CountTally,
	},
	FileType: {
		Kind:      FileType,
		Operators: []Operator{OpEq},
		Count:     CountTally,
		Choices:   fileTypeAliases,
	},
	Boolean: {
		Kind:      Boolean,
		Operators: []Operator{OpEq},
		Count:     CountTally,
	},
	Strings: {
		Kind:       Strings,
		Operators:  []Operator{OpEq, OpContains, OpRegex, OpGlob},
		Count:      Uncountable,
		StringType: true,
	},
}

// fileTypeAliases maps accepted filetype spellings to their canonical form.
var fileTypeAliases = map[string]string{
	"d": "directory", "directory": "directory",
	"f": "file", "file": "file",
	"l": "symlink", "symlink": "symlink",
	"s": "socket", "socket": "socket",
	"p": "fifo", "pipe": "fifo", "fifo": "fifo",
	"char": "char", "block": "block",
	"door": "door", "port": "port", "whiteout": "whiteout",
	"other": "other",
}

// Lookup returns the Type for a kind.
func Lookup(kind Kind) *Type {
	return typeTable[kind]
}

// Kinds returns all kinds that have a Type, for --help-types.
func Kinds() []Kind {
	return []Kind{String, Path, Number, Size, Time, Duration, Mode, FileType, Boolean, Strings}
}

// Supports reports whether the type supports the operator.
func (t *Type) Supports(op Operator) bool {
	for _, o := range t.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Parse converts user input into a Value of this type. The si flag swaps
// the default base of bare size units from 1024 to 1000.
func (t *Type) Parse(input string, si bool) (Value, error) {
	switch t.Kind {
	case String:
		return Str(input), nil
	case Path:
		return PathVal(input), nil
	case Strings:
		return Str(input), nil // tested element-wise against the list
	case Number:
		n, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("unable to parse number %q", input)
		}
		if n < 0 {
			return Value{}, fmt.Errorf("number must not be less than 0")
		}
		return Num(n), nil
	case Size:
		n, err := ParseSize(input, si)
		if err != nil {
			return Value{}, err
		}
		return SizeVal(n), nil
	case Time:
		n, err := ParseTime(input)
		if err != nil {
			return Value{}, err
		}
		return TimeVal(n), nil
	case Duration:
		n, err := ParseDuration(input)
		if err != nil {
			return Value{}, err
		}
		return DurationVal(n), nil
	case Mode:
		n, err := ParseMode(input)
		if err != nil {
			return Value{}, err
		}
		return ModeVal(n), nil
	case FileType:
		canonical, ok := fileTypeAliases[strings.ToLower(input)]
		if !ok {
			return Value{}, fmt.Errorf("invalid file type %q", input)
		}
		return FileTypeVal(canonical), nil
	case Boolean:
		b, err := ParseBool(input)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	default:
		return Value{}, fmt.Errorf("type %s takes no value", t.Kind)
	}
}

var trueWords = []string{"true", "t", "1", "yes", "y", "on"}
var falseWords = []string{"false", "f", "0", "no", "n", "off"}

// ParseBool parses the accepted boolean spellings, ignoring case.
func ParseBool(input string) (bool, error) {
	lower := strings.ToLower(input)
	for _, w := range trueWords {
		if lower == w {
			return true, nil
		}
	}
	for _, w := range falseWords {
		if lower == w {
			return false, nil
		}
	}
	return false, fmt.Errorf("invalid boolean %q", input)
}

// Format renders a value for output. Modifier is one of 'h' (human
// readable), 'x' (hex), 'o' (octal) or 0 for none. The si flag selects
// base 1000 for human-readable sizes.
func (t *Type) Format(v Value, modifier byte, si bool) string {
	switch modifier {
	case 'h':
		switch t.Kind {
		case Size:
			base := int64(1024)
			if si {
				base = 1000
			}
			return FormatSize(v.Num, base)
		case Time:
			return FormatTime(v.Num)
		case Duration:
			return FormatDuration(v.Num)
		case Mode:
			return FormatModeSymbolic(v.Num)
		}
	case 'x':
		if t.Kind.Family() == FamilyNumber {
			return strconv.FormatInt(v.Num, 16)
		}
	case 'o':
		if t.Kind.Family() == FamilyNumber {
			return strconv.FormatInt(v.Num, 8)
		}
	}
	return v.Plain()
}

// SortKey derives the comparison key used by -S. String kinds compare
// case-insensitively; path components have leading dots stripped so that
// hidden files sort next to their visible neighbors.
func (t *Type) SortKey(v Value) Value {
	switch t.Kind {
	case String, FileType:
		return Str(strings.ToLower(v.Str))
	case Path:
		parts := strings.Split(strings.ToLower(v.Str), "/")
		for i, part := range parts {
			parts[i] = strings.TrimLeft(part, ".")
		}
		return Str(strings.Join(parts, "/"))
	case Strings:
		return Str(strings.ToLower(strings.Join(v.List, ",")))
	default:
		return v
	}
}

// SortFallback is the value used for sorting when an entry does not provide
// the attribute.
func (t *Type) SortFallback() Value {
	switch t.Kind.Family() {
	case FamilyString:
		return Str("")
	case FamilyNumber:
		return Value{Kind: t.Kind}
	case FamilyBoolean:
		return Bool(false)
	default:
		return Value{}
	}
}
