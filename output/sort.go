package output

import (
	"sort"
	"strings"
	"sync"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Sorter buffers all matching entries, orders them by the sort key fields
// and forwards the selected window to the wrapped sink on Close. With an
// empty key list it only buffers, which is how a bare --limit is applied.
type Sorter struct {
	inner   Sink
	keys    []Field
	reverse bool
	limit   *Limit

	mu   sync.Mutex
	rows []row
}

type row struct {
	ctx  *attr.Context
	keys []types.Value
}

// NewSorter wraps a sink with sorting and limiting.
func NewSorter(inner Sink, keys []Field, reverse bool, limit *Limit) *Sorter {
	return &Sorter{inner: inner, keys: keys, reverse: reverse, limit: limit}
}

// Accept implements Sink. Sort keys are materialized immediately so that
// attribute computation stays on the walker's workers.
func (s *Sorter) Accept(ctx *attr.Context) {
	r := row{ctx: ctx, keys: make([]types.Value, len(s.keys))}
	for i, f := range s.keys {
		v, ok := f.Value(ctx)
		if !ok {
			r.keys[i] = f.Type.SortFallback()
			continue
		}
		r.keys[i] = f.Type.SortKey(v)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
}

// Close implements Sink: sort, slice, forward, close the wrapped sink.
func (s *Sorter) Close() error {
	s.mu.Lock()
	rows := s.rows
	s.mu.Unlock()

	if len(s.keys) > 0 {
		sort.SliceStable(rows, func(i, j int) bool {
			return s.less(rows[i], rows[j])
		})
	}
	if s.reverse {
		for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
			rows[i], rows[j] = rows[j], rows[i]
		}
	}
	if s.limit != nil {
		start, stop := s.limit.Slice(len(rows))
		rows = rows[start:stop]
	}

	for _, r := range rows {
		s.inner.Accept(r.ctx)
	}
	return s.inner.Close()
}

func (s *Sorter) less(a, b row) bool {
	for i, f := range s.keys {
		if c := compareValues(a.keys[i], b.keys[i], f.Natural); c != 0 {
			return c < 0
		}
	}
	return false
}

func compareValues(a, b types.Value, natural bool) int {
	switch a.Kind.Family() {
	case types.FamilyNumber:
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	case types.FamilyBoolean:
		switch {
		case !a.Bool && b.Bool:
			return -1
		case a.Bool && !b.Bool:
			return 1
		}
		return 0
	default:
		if natural {
			return naturalCompare(a.Str, b.Str)
		}
		return strings.Compare(a.Str, b.Str)
	}
}

// naturalCompare orders strings with embedded numbers the way version
// strings are expected to sort: digit runs compare by numeric value, the
// shorter of two equal-valued runs (fewer leading zeros) first.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ad, an := chunk(a)
		bd, bn := chunk(b)

		if an && bn {
			at := strings.TrimLeft(ad, "0")
			bt := strings.TrimLeft(bd, "0")
			switch {
			case len(at) != len(bt):
				if len(at) < len(bt) {
					return -1
				}
				return 1
			case at != bt:
				return strings.Compare(at, bt)
			case len(ad) != len(bd):
				if len(ad) < len(bd) {
					return -1
				}
				return 1
			}
		} else if c := strings.Compare(ad, bd); c != 0 {
			return c
		}

		a = a[len(ad):]
		b = b[len(bd):]
	}
	return strings.Compare(a, b)
}

// chunk returns the leading all-digit or all-non-digit run.
func chunk(s string) (string, bool) {
	isDigit := s[0] >= '0' && s[0] <= '9'
	for i := 1; i < len(s); i++ {
		if (s[i] >= '0' && s[i] <= '9') != isDigit {
			return s[:i], isDigit
		}
	}
	return s, isDigit
}
