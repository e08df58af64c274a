package builtin

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Mime detects the media type of regular files by sniffing their leading
// bytes, falling back to the extension table.
type Mime struct{}

// Name implements attr.Provider.
func (Mime) Name() string { return "mime" }

// Requires implements attr.Provider.
func (Mime) Requires() []string { return nil }

// Init implements attr.Provider.
func (Mime) Init() error { return nil }

// Descriptors implements attr.Provider.
func (Mime) Descriptors() []attr.Descriptor {
	return []attr.Descriptor{
		{Name: "mime", Kind: types.String, Cost: 20, Cacheable: true,
			Help: "The media type of the file, e.g. 'text/plain'."},
		{Name: "charset", Kind: types.String, Cost: 20, Cacheable: true,
			Help: "The character set if the media type declares one."},
	}
}

// Process implements attr.Provider.
func (Mime) Process(e *attr.Entry, ctx *attr.Context) error {
	if !e.IsFile() {
		return nil
	}

	contentType := ""
	if byExt := mime.TypeByExtension(filepath.Ext(e.Path)); byExt != "" {
		contentType = byExt
	} else {
		f, err := os.Open(e.Path)
		if err != nil {
			return err
		}
		defer f.Close()

		buf := make([]byte, 512)
		n, err := f.Read(buf)
		if err != nil && err != io.EOF {
			return err
		}
		contentType = http.DetectContentType(buf[:n])
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	ctx.Set(attr.Attribute{Plugin: "mime", Name: "mime"}, types.Str(mediaType))
	if charset := params["charset"]; charset != "" {
		ctx.Set(attr.Attribute{Plugin: "mime", Name: "charset"}, types.Str(strings.ToLower(charset)))
	}
	return nil
}
