package walk

import (
	"fmt"
	"strconv"
	"strings"
)

// DepthRange is one inclusive depth interval. Max below zero means
// unbounded. Direct children of a start directory have depth 0.
type DepthRange struct {
	Min int
	Max int
}

// Depths is a set of depth ranges; an entry is reported when any range
// contains its depth. An empty set reports every depth.
type Depths []DepthRange

// ParseDepth parses one -d argument: "N", "N-", "-N" or "N-M".
func ParseDepth(input string) (DepthRange, error) {
	lo, hi, ranged := strings.Cut(input, "-")

	parse := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid depth %q", input)
		}
		return n, nil
	}

	if !ranged {
		n, err := parse(lo)
		if err != nil {
			return DepthRange{}, err
		}
		return DepthRange{Min: n, Max: n}, nil
	}

	r := DepthRange{Min: 0, Max: -1}
	if lo != "" {
		n, err := parse(lo)
		if err != nil {
			return DepthRange{}, err
		}
		r.Min = n
	}
	if hi != "" {
		n, err := parse(hi)
		if err != nil {
			return DepthRange{}, err
		}
		r.Max = n
	}
	if r.Max >= 0 && r.Max < r.Min {
		return DepthRange{}, fmt.Errorf("invalid depth range %q", input)
	}
	return r, nil
}

// ParseDepths parses a list of -d arguments.
func ParseDepths(inputs []string) (Depths, error) {
	var depths Depths
	for _, input := range inputs {
		r, err := ParseDepth(input)
		if err != nil {
			return nil, err
		}
		depths = append(depths, r)
	}
	return depths, nil
}

// Match reports whether an entry at the given depth is reported.
func (d Depths) Match(depth int) bool {
	if len(d) == 0 {
		return true
	}
	for _, r := range d {
		if depth >= r.Min && (r.Max < 0 || depth <= r.Max) {
			return true
		}
	}
	return false
}

// Descend reports whether a directory at the given depth can still contain
// reportable entries. Children of a directory at depth n have depth n+1.
func (d Depths) Descend(depth int) bool {
	if len(d) == 0 {
		return true
	}
	for _, r := range d {
		if r.Max < 0 || depth < r.Max {
			return true
		}
	}
	return false
}
