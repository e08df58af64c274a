package types

import (
	"strconv"
	"strings"
)

// Kind identifies the concrete representation of a Value.
type Kind int

const (
	Null Kind = iota
	String
	Path
	Number
	Size
	Time
	Duration
	Mode
	FileType
	Boolean
	Strings
)

// String returns the user-facing name of the kind, as shown by --help-types.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Path:
		return "path"
	case Number:
		return "number"
	case Size:
		return "size"
	case Time:
		return "time"
	case Duration:
		return "duration"
	case Mode:
		return "mode"
	case FileType:
		return "filetype"
	case Boolean:
		return "boolean"
	case Strings:
		return "string[]"
	default:
		return "null"
	}
}

// Value is a tagged variant over all attribute representations. Numeric
// kinds (number, size, time, duration, mode) use Num, string kinds use Str,
// boolean uses Bool and list-of-strings uses List. A zero Value is null.
type Value struct {
	Kind Kind
	Str  string
	Num  int64
	Bool bool
	List []string
}

// Str returns a string Value.
func Str(s string) Value { return Value{Kind: String, Str: s} }

// PathVal returns a path Value.
func PathVal(s string) Value { return Value{Kind: Path, Str: s} }

// Num returns a number Value.
func Num(n int64) Value { return Value{Kind: Number, Num: n} }

// SizeVal returns a size Value in bytes.
func SizeVal(n int64) Value { return Value{Kind: Size, Num: n} }

// TimeVal returns a time Value in seconds since the epoch.
func TimeVal(n int64) Value { return Value{Kind: Time, Num: n} }

// DurationVal returns a duration Value in seconds.
func DurationVal(n int64) Value { return Value{Kind: Duration, Num: n} }

// ModeVal returns a mode Value.
func ModeVal(n int64) Value { return Value{Kind: Mode, Num: n} }

// FileTypeVal returns a filetype Value.
func FileTypeVal(s string) Value { return Value{Kind: FileType, Str: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: Boolean, Bool: b} }

// ListVal returns a list-of-strings Value.
func ListVal(list []string) Value { return Value{Kind: Strings, List: list} }

// IsNull reports whether the value is the null value.
func (v Value) IsNull() bool { return v.Kind == Null }

// Family groups kinds into comparable classes. Values from two attributes
// can only be compared through a file reference if their kinds share a
// family.
type Family int

const (
	FamilyNone Family = iota
	FamilyString
	FamilyNumber
	FamilyBoolean
)

// Family returns the comparison family of the kind.
func (k Kind) Family() Family {
	switch k {
	case String, Path, FileType, Strings:
		return FamilyString
	case Number, Size, Time, Duration, Mode:
		return FamilyNumber
	case Boolean:
		return FamilyBoolean
	default:
		return FamilyNone
	}
}

// JSON returns the JSON-native encoding of the value: integers for numeric
// kinds, strings for string kinds, bools, string arrays, nil for null.
func (v Value) JSON() any {
	switch v.Kind {
	case String, Path, FileType:
		return v.Str
	case Number, Size, Time, Duration, Mode:
		return v.Num
	case Boolean:
		return v.Bool
	case Strings:
		if v.List == nil {
			return []string{}
		}
		return v.List
	default:
		return nil
	}
}

// Plain returns the unmodified output representation of the value.
func (v Value) Plain() string {
	switch v.Kind {
	case String, Path, FileType:
		return v.Str
	case Number, Size, Time, Duration, Mode:
		return strconv.FormatInt(v.Num, 10)
	case Boolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case Strings:
		return strings.Join(v.List, ",")
	default:
		return ""
	}
}
