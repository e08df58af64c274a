package output

import (
	"fmt"
	"strconv"
	"strings"
)

// Limit selects a window of the result list. Two forms are accepted:
// "[start]:[stop]" with negative indices counting from the end, and
// "pagesize,page" selecting one zero-based page.
type Limit struct {
	start    int
	stop     int
	hasStart bool
	hasStop  bool
}

// ParseLimit parses a -l argument.
func ParseLimit(input string) (*Limit, error) {
	if lo, hi, ok := strings.Cut(input, ":"); ok {
		l := &Limit{}
		if lo != "" {
			n, err := strconv.Atoi(lo)
			if err != nil {
				return nil, fmt.Errorf("invalid limit %q", input)
			}
			l.start = n
			l.hasStart = true
		}
		if hi != "" {
			n, err := strconv.Atoi(hi)
			if err != nil {
				return nil, fmt.Errorf("invalid limit %q", input)
			}
			l.stop = n
			l.hasStop = true
		}
		return l, nil
	}

	if size, page, ok := strings.Cut(input, ","); ok {
		sz, err1 := strconv.Atoi(size)
		pg, err2 := strconv.Atoi(page)
		if err1 != nil || err2 != nil || sz < 0 || pg < 0 {
			return nil, fmt.Errorf("invalid limit %q", input)
		}
		return &Limit{
			start: sz * pg, hasStart: true,
			stop: sz * (pg + 1), hasStop: true,
		}, nil
	}

	return nil, fmt.Errorf("invalid limit %q", input)
}

// FirstOnly is the limit behind the -1 flag.
func FirstOnly() *Limit {
	return &Limit{stop: 1, hasStop: true}
}

// Slice resolves the window against a result count, clamping out-of-range
// indices the way sequence slicing does.
func (l *Limit) Slice(n int) (start, stop int) {
	start, stop = 0, n
	if l.hasStart {
		start = clampIndex(l.start, n)
	}
	if l.hasStop {
		stop = clampIndex(l.stop, n)
	}
	if stop < start {
		stop = start
	}
	return start, stop
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
