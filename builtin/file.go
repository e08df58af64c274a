// Package builtin contains the providers that are linked into ff itself.
package builtin

import (
	"github.com/lexandro/ff/attr"
	"github.com/lexandro/ff/types"
)

// File is the provider for the essential file attributes. Its values are
// served directly off the Entry object by the Context; Process is never
// consulted. Its names are global: an unqualified attribute name that the
// file provider declares always resolves here.
type File struct{}

// Name implements attr.Provider.
func (File) Name() string { return "file" }

// Requires implements attr.Provider.
func (File) Requires() []string { return nil }

// Init implements attr.Provider.
func (File) Init() error { return nil }

// Process implements attr.Provider. The file namespace is computed by the
// Entry itself, so there is nothing to do here.
func (File) Process(e *attr.Entry, ctx *attr.Context) error { return nil }

// Descriptors implements attr.Provider.
func (File) Descriptors() []attr.Descriptor {
	return []attr.Descriptor{
		{Name: "path", Kind: types.Path, Help: "The full pathname of the file."},
		{Name: "root", Kind: types.Path, Help: "The start directory the file was found in."},
		{Name: "relpath", Kind: types.Path, Help: "The pathname relative to the start directory."},
		{Name: "dir", Kind: types.Path, Help: "The dirname portion of the file."},
		{Name: "name", Kind: types.Path, Help: "The basename portion of the file."},
		{Name: "ext", Kind: types.String, Help: "The file extension without the leading dot."},
		{Name: "pathx", Kind: types.Path, Help: "The file path without the extension."},
		{Name: "namex", Kind: types.Path, Help: "The file basename without the extension."},
		{Name: "mode", Kind: types.Mode, Help: "The mode and permission bits of the file."},
		{Name: "perm", Kind: types.Mode, Help: "The permission bits without the file type bits."},
		{Name: "type", Kind: types.FileType, Help: "The file type: 'd'/'directory', 'f'/'file', 'l'/'symlink', 's'/'socket', 'p'/'pipe'/'fifo', 'char', 'block' or 'other'."},
		{Name: "size", Kind: types.Size, Help: "The size in bytes. All types except 'file' have size 0."},
		{Name: "mtime", Kind: types.Time, Help: "The modification time in seconds since epoch."},
		{Name: "time", Kind: types.Time, Help: "An alias for 'mtime'."},
		{Name: "ctime", Kind: types.Time, Help: "The inode change time in seconds since epoch."},
		{Name: "atime", Kind: types.Time, Help: "The access time in seconds since epoch."},
		{Name: "depth", Kind: types.Number, Help: "The depth relative to the start directory."},
		{Name: "device", Kind: types.Number, Help: "The number of the device the file is on."},
		{Name: "inode", Kind: types.Number, Help: "The inode number of the file."},
		{Name: "samedev", Kind: types.Boolean, Help: "Whether the file is on the same device as the start directory."},
		{Name: "links", Kind: types.Number, Help: "The number of links to the inode."},
		{Name: "uid", Kind: types.Number, Help: "The user id of the owner."},
		{Name: "gid", Kind: types.Number, Help: "The group id of the owner."},
		{Name: "user", Kind: types.String, Cost: 2, Help: "The user name of the owner."},
		{Name: "group", Kind: types.String, Cost: 2, Help: "The group name of the owner."},
		{Name: "hide", Kind: types.Boolean, Help: "Whether the name of the file starts with a dot."},
		{Name: "hidden", Kind: types.Boolean, Help: "Whether a path component starts with a dot."},
		{Name: "empty", Kind: types.Boolean, Cost: 10, Help: "Whether the file or directory is empty."},
		{Name: "exec", Kind: types.Boolean, Help: "Whether the file is executable."},
		{Name: "link", Kind: types.Path, Help: "The target of a symbolic link relative to its parent directory."},
		{Name: "target", Kind: types.Path, Help: "The full target path of a symbolic link."},
		{Name: "broken", Kind: types.Boolean, Help: "Whether a symbolic link points to a file that does not exist."},
		{Name: "text", Kind: types.Boolean, Cost: 10, Help: "Whether the file contains text rather than binary data."},
		{Name: "mount", Kind: types.Boolean, Cost: 10, Help: "Whether the directory is a mountpoint."},
	}
}
