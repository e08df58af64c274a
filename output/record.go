package output

import (
	"bufio"
	"io"
	"sync"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// RecordOptions configures the plain record sink.
type RecordOptions struct {
	Fields []Field
	// Sep separates the fields of one record, default " ".
	Sep string
	// Null terminates records with NUL instead of newline (-0).
	Null bool
	// All keeps records with missing values instead of suppressing them.
	All bool
	// SI selects base 1000 for human-readable sizes.
	SI bool
	// Palette colorizes path-valued fields, nil for no color.
	Palette *Palette
}

// Record writes one line (or NUL-terminated record) per matching entry.
type Record struct {
	opts RecordOptions

	mu sync.Mutex
	w  *bufio.Writer
}

// NewRecord returns a record sink writing to w.
func NewRecord(w io.Writer, opts RecordOptions) *Record {
	if opts.Sep == "" {
		opts.Sep = " "
	}
	return &Record{opts: opts, w: bufio.NewWriter(w)}
}

// Accept implements Sink. A record containing a missing value is dropped
// unless --all or the field's n modifier keeps it.
func (r *Record) Accept(ctx *attr.Context) {
	cols := make([]string, 0, len(r.opts.Fields))
	for _, f := range r.opts.Fields {
		v, ok := f.Value(ctx)
		if !ok {
			if !r.opts.All && !f.KeepNull {
				return
			}
			cols = append(cols, "")
			continue
		}

		col := f.Format(v, r.opts.SI)
		if r.opts.Palette != nil && f.Type.Kind == types.Path {
			col = r.opts.Palette.Paint(ctx.Entry, col)
		}
		cols = append(cols, col)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i, col := range cols {
		if i > 0 {
			r.w.WriteString(r.opts.Sep)
		}
		r.w.WriteString(col)
	}
	if r.opts.Null {
		r.w.WriteByte(0)
	} else {
		r.w.WriteByte('\n')
	}
}

// Close implements Sink.
func (r *Record) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}
