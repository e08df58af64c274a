package builtin

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// Hash computes message digests of regular files. One Process call reads
// the file once and populates all three digests, which then go through the
// persistent cache.
type Hash struct{}

// Name implements attr.Provider.
func (Hash) Name() string { return "hash" }

// Requires implements attr.Provider.
func (Hash) Requires() []string { return nil }

// Init implements attr.Provider.
func (Hash) Init() error { return nil }

// Descriptors implements attr.Provider.
func (Hash) Descriptors() []attr.Descriptor {
	return []attr.Descriptor{
		{Name: "md5", Kind: types.String, Cost: 50, Cacheable: true,
			Help: "The MD5 digest of the file contents."},
		{Name: "sha1", Kind: types.String, Cost: 50, Cacheable: true,
			Help: "The SHA-1 digest of the file contents."},
		{Name: "sha256", Kind: types.String, Cost: 50, Cacheable: true,
			Help: "The SHA-256 digest of the file contents."},
	}
}

// Process implements attr.Provider.
func (Hash) Process(e *attr.Entry, ctx *attr.Context) error {
	if !e.IsFile() {
		return nil
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	h5 := md5.New()
	h1 := sha1.New()
	h256 := sha256.New()
	if _, err := io.Copy(io.MultiWriter(h5, h1, h256), f); err != nil {
		return err
	}

	ctx.Set(attr.Attribute{Plugin: "hash", Name: "md5"}, types.Str(hex.EncodeToString(h5.Sum(nil))))
	ctx.Set(attr.Attribute{Plugin: "hash", Name: "sha1"}, types.Str(hex.EncodeToString(h1.Sum(nil))))
	ctx.Set(attr.Attribute{Plugin: "hash", Name: "sha256"}, types.Str(hex.EncodeToString(h256.Sum(nil))))
	return nil
}
