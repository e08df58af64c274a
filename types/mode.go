package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Permission bit masks, in the traditional octal layout.
const (
	modeSetuid = 0o4000
	modeSetgid = 0o2000
	modeSticky = 0o1000

	modeUserAll  = 0o700
	modeGroupAll = 0o070
	modeOtherAll = 0o007

	// ModeAll covers every permission and special bit.
	ModeAll = modeSetuid | modeSetgid | modeSticky | modeUserAll | modeGroupAll | modeOtherAll
)

var modeRegex = regexp.MustCompile(`^(?:([ugoa]*)([-+=])([rwxXstugo]+)|([-+=])?([0-7]+))$`)

// ParseMode parses an octal or symbolic file mode, the same grammar as
// POSIX find -perm. Symbolic parts are comma separated, e.g. "u+rwx,g+rx".
// The X class is accepted but contributes no bits.
func ParseMode(input string) (int64, error) {
	var affected, result int64

	for _, part := range strings.Split(input, ",") {
		match := modeRegex.FindStringSubmatch(part)
		if match == nil {
			return 0, fmt.Errorf("unable to parse mode %q", input)
		}

		var operator string
		var bits int64

		if match[5] != "" {
			// Octal form.
			operator = match[4]
			if operator == "" {
				operator = "="
			}
			n, err := strconv.ParseInt(match[5], 8, 64)
			if err != nil {
				return 0, fmt.Errorf("unable to parse mode %q", input)
			}
			affected = ModeAll
			bits = n
		} else {
			classes, op, perms := match[1], match[2], match[3]
			operator = op
			if classes == "" {
				classes = "a"
			}
			for _, class := range classes {
				switch class {
				case 'u':
					affected |= modeSetuid | modeUserAll
				case 'g':
					affected |= modeSetgid | modeGroupAll
				case 'o':
					affected |= modeSticky | modeOtherAll
				case 'a':
					affected |= ModeAll
				}
			}

			switch perms {
			case "u":
				bits |= modeUserAll
			case "g":
				bits |= modeGroupAll
			case "o":
				bits |= modeOtherAll
			default:
				for _, perm := range perms {
					switch perm {
					case 'r':
						bits |= 0o444
					case 'w':
						bits |= 0o222
					case 'x':
						bits |= 0o111
					case 's':
						bits |= modeSetuid | modeSetgid
					case 't':
						bits |= modeSticky
					}
				}
			}
		}

		switch operator {
		case "+", "=":
			result |= bits
		case "-":
			result &^= bits
		}
	}

	return affected & result, nil
}

// FormatModeSymbolic renders permission bits like "rwxr-xr-x", including
// the setuid/setgid/sticky notation of ls(1).
func FormatModeSymbolic(mode int64) string {
	var b [9]byte
	perms := "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<(8-i)) != 0 {
			b[i] = perms[i]
		} else {
			b[i] = '-'
		}
	}

	if mode&modeSetuid != 0 {
		if b[2] == 'x' {
			b[2] = 's'
		} else {
			b[2] = 'S'
		}
	}
	if mode&modeSetgid != 0 {
		if b[5] == 'x' {
			b[5] = 's'
		} else {
			b[5] = 'S'
		}
	}
	if mode&modeSticky != 0 {
		if b[8] == 'x' {
			b[8] = 't'
		} else {
			b[8] = 'T'
		}
	}

	return string(b[:])
}
