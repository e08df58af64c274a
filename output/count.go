package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Count accumulates per-attribute statistics instead of emitting records.
// Attributes with a tally policy count distinct values, summable attributes
// add up. The total number of matches is always reported as _total.
type Count struct {
	fields []Field
	json   bool
	out    io.Writer

	mu      sync.Mutex
	total   int64
	tallies []map[string]int64
	sums    []int64
}

// NewCount returns a counting sink. Attributes whose type cannot be counted
// are rejected.
func NewCount(w io.Writer, fields []Field, asJSON bool) (*Count, error) {
	for _, f := range fields {
		if f.Type.Count == types.Uncountable {
			return nil, fmt.Errorf("attribute %s of type %s cannot be counted",
				f.Name, f.Type.Kind)
		}
	}

	c := &Count{
		fields:  fields,
		json:    asJSON,
		out:     w,
		tallies: make([]map[string]int64, len(fields)),
		sums:    make([]int64, len(fields)),
	}
	for i, f := range fields {
		if f.Type.Count == types.CountTally {
			c.tallies[i] = make(map[string]int64)
		}
	}
	return c, nil
}

// Accept implements Sink. Entries missing an attribute count towards _total
// but not towards that attribute.
func (c *Count) Accept(ctx *attr.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	for i, f := range c.fields {
		v, ok := f.Value(ctx)
		if !ok {
			continue
		}
		switch f.Type.Count {
		case types.CountTally:
			c.tallies[i][v.Plain()]++
		case types.CountSum:
			c.sums[i] += v.Num
		}
	}
}

// Close implements Sink and writes the accumulated counts.
func (c *Count) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.json {
		return c.writeJSON()
	}
	return c.writeText()
}

func (c *Count) writeText() error {
	w := bufio.NewWriter(c.out)
	for i, f := range c.fields {
		switch f.Type.Count {
		case types.CountTally:
			keys := make([]string, 0, len(c.tallies[i]))
			for key := range c.tallies[i] {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(w, "%s[%s]=%d\n", f.Name, key, c.tallies[i][key])
			}
		case types.CountSum:
			fmt.Fprintf(w, "%s=%d\n", f.Name, c.sums[i])
		}
	}
	fmt.Fprintf(w, "_total=%d\n", c.total)
	return w.Flush()
}

func (c *Count) writeJSON() error {
	var buf bytes.Buffer
	buf.WriteString(`{"_total":`)
	buf.WriteString(strconv.FormatInt(c.total, 10))

	for i, f := range c.fields {
		buf.WriteByte(',')
		key, _ := json.Marshal(f.Name)
		buf.Write(key)
		buf.WriteByte(':')

		switch f.Type.Count {
		case types.CountTally:
			tally, _ := json.Marshal(c.tallies[i])
			buf.Write(tally)
		case types.CountSum:
			buf.WriteString(strconv.FormatInt(c.sums[i], 10))
		}
	}
	buf.WriteString("}\n")

	_, err := c.out.Write(buf.Bytes())
	return err
}
