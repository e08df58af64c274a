package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"

	"github.com/lexandro/ff/attr"
)

// marshalRecord encodes one entry as a flat JSON object. The keys appear in
// field order; missing attributes encode as null.
func marshalRecord(fields []Field, ctx *attr.Context) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.Name)
		buf.Write(key)
		buf.WriteByte(':')

		v, ok := f.Value(ctx)
		if !ok {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(v.JSON())
		if err != nil {
			buf.WriteString("null")
			continue
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// JSONLines emits one JSON object per matching entry (--jsonl).
type JSONLines struct {
	fields []Field

	mu sync.Mutex
	w  *bufio.Writer
}

// NewJSONLines returns a streaming JSON sink writing to w.
func NewJSONLines(w io.Writer, fields []Field) *JSONLines {
	return &JSONLines{fields: fields, w: bufio.NewWriter(w)}
}

// Accept implements Sink.
func (j *JSONLines) Accept(ctx *attr.Context) {
	record := marshalRecord(j.fields, ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.w.Write(record)
	j.w.WriteByte('\n')
}

// Close implements Sink.
func (j *JSONLines) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Flush()
}

// JSONArray collects all matching entries and emits a single JSON array on
// Close (--json).
type JSONArray struct {
	fields []Field
	out    io.Writer

	mu      sync.Mutex
	records [][]byte
}

// NewJSONArray returns a collecting JSON sink writing to w.
func NewJSONArray(w io.Writer, fields []Field) *JSONArray {
	return &JSONArray{fields: fields, out: w}
}

// Accept implements Sink.
func (j *JSONArray) Accept(ctx *attr.Context) {
	record := marshalRecord(j.fields, ctx)

	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, record)
}

// Close implements Sink.
func (j *JSONArray) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	w := bufio.NewWriter(j.out)
	w.WriteByte('[')
	for i, record := range j.records {
		if i > 0 {
			w.WriteByte(',')
		}
		w.Write(record)
	}
	w.WriteByte(']')
	w.WriteByte('\n')
	return w.Flush()
}
