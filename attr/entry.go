package attr

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lexandro/ff/ignore"
	"github.com/lexandro/ff/types"
)

// ErrNoValue is returned by Entry.Attribute when an attribute is not
// defined for this entry, e.g. the link target of a regular file. Tests on
// such attributes evaluate false without failing the walk.
var ErrNoValue = errors.New("attribute has no value for this entry")

// StartDir is the reference point of a search: relpath, depth and samedev
// of every entry found below it are relative to the start directory.
type StartDir struct {
	Root    string
	AbsRoot string
	Device  uint64
}

// NewStartDir stats a start directory given on the command line.
func NewStartDir(root string, follow bool) (*StartDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := statPolicy(root, follow)
	if err != nil {
		return nil, err
	}
	return &StartDir{Root: root, AbsRoot: abs, Device: sysInfo(info).Dev}, nil
}

func statPolicy(path string, follow bool) (os.FileInfo, error) {
	if follow {
		return os.Stat(path)
	}
	return os.Lstat(path)
}

// Entry is one filesystem object discovered by the walker. All stat-derived
// state is collected at construction so that later attribute access cannot
// fail with I/O errors.
type Entry struct {
	Start   *StartDir
	Relpath string
	Path    string
	Abspath string
	Dir     string
	Name    string

	Mode     fs.FileMode
	RawMode  int64
	Size     int64
	MtimeNs  int64
	AtimeNs  int64
	CtimeNs  int64
	Dev      uint64
	Inode    uint64
	Nlink    uint64
	UID      uint32
	GID      uint32
	TypeName string

	Link    string
	Target  string
	Broken  bool
	HasLink bool

	// Ignores is the stack of ignore rule sets that applies to this
	// entry, owned by the walker.
	Ignores *ignore.Stack
}

// NewEntry builds an Entry from a stat result. relpath is relative to the
// start directory and must not be empty.
func NewEntry(start *StartDir, relpath string, info os.FileInfo, ignores *ignore.Stack) *Entry {
	e := &Entry{
		Start:   start,
		Relpath: relpath,
		Abspath: filepath.Join(start.AbsRoot, relpath),
		Ignores: ignores,
	}
	if start.Root == "." {
		e.Path = relpath
	} else {
		e.Path = filepath.Join(start.Root, relpath)
	}
	e.Dir, e.Name = filepath.Split(e.Path)
	e.Dir = strings.TrimSuffix(e.Dir, "/")

	e.Mode = info.Mode()
	e.Size = info.Size()

	sys := sysInfo(info)
	e.RawMode = int64(sys.RawMode)
	e.MtimeNs = sys.MtimeNs
	e.AtimeNs = sys.AtimeNs
	e.CtimeNs = sys.CtimeNs
	e.Dev = sys.Dev
	e.Inode = sys.Ino
	e.Nlink = sys.Nlink
	e.UID = sys.UID
	e.GID = sys.GID

	e.TypeName = typeName(e.Mode)

	// Resolve symlink information early, like the stat data.
	if e.Mode&fs.ModeSymlink != 0 {
		if link, err := os.Readlink(e.Path); err == nil {
			e.HasLink = true
			e.Link = link
			target, err := filepath.EvalSymlinks(filepath.Join(e.Dir, link))
			if err != nil {
				e.Target = filepath.Join(e.Dir, link)
				e.Broken = true
			} else {
				e.Target = target
			}
		}
	}

	return e
}

// NewReferenceEntry builds an Entry for a file given as a {ref}path value.
// Its parent directory acts as the start directory.
func NewReferenceEntry(path string, follow bool) (*Entry, error) {
	info, err := statPolicy(path, follow)
	if err != nil {
		return nil, err
	}
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	start, err := NewStartDir(dir, follow)
	if err != nil {
		return nil, err
	}
	return NewEntry(start, name, info, ignore.NewStack()), nil
}

func typeName(mode fs.FileMode) string {
	switch {
	case mode.IsRegular():
		return "file"
	case mode.IsDir():
		return "directory"
	case mode&fs.ModeSymlink != 0:
		return "symlink"
	case mode&fs.ModeSocket != 0:
		return "socket"
	case mode&fs.ModeNamedPipe != 0:
		return "fifo"
	case mode&fs.ModeCharDevice != 0:
		return "char"
	case mode&fs.ModeDevice != 0:
		return "block"
	default:
		return "other"
	}
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool { return e.TypeName == "directory" }

// IsFile reports whether the entry is a regular file.
func (e *Entry) IsFile() bool { return e.TypeName == "file" }

// IsSymlink reports whether the entry is a symbolic link.
func (e *Entry) IsSymlink() bool { return e.TypeName == "symlink" }

// Depth is the depth of the entry below its start directory, the start's
// direct children having depth 0.
func (e *Entry) Depth() int {
	return strings.Count(e.Relpath, "/")
}

func (e *Entry) perm() int64 {
	bits := int64(e.Mode.Perm())
	if e.Mode&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if e.Mode&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if e.Mode&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

// fileSize reports the size attribute: only regular files have a size, all
// other types report 0.
func (e *Entry) fileSize() int64 {
	if e.IsFile() {
		return e.Size
	}
	return 0
}

func (e *Entry) isExecutable() bool {
	if e.IsDir() || e.IsSymlink() {
		return false
	}
	return e.perm()&0o111 != 0
}

func (e *Entry) isEmpty() bool {
	switch {
	case e.IsDir():
		f, err := os.Open(e.Path)
		if err != nil {
			return false
		}
		defer f.Close()
		_, err = f.ReadDir(1)
		return err == io.EOF
	case e.IsFile():
		return e.Size == 0
	default:
		return false
	}
}

// isText sniffs the first kilobyte for NUL bytes, the same heuristic used
// for binary detection during content indexing.
func (e *Entry) isText() bool {
	if !e.IsFile() {
		return false
	}
	f, err := os.Open(e.Path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false
	}
	return bytes.IndexByte(buf[:n], 0) < 0
}

func (e *Entry) isMount() bool {
	if !e.IsDir() {
		return false
	}
	parent := filepath.Dir(e.Abspath)
	if parent == e.Abspath {
		return true
	}
	info, err := os.Lstat(parent)
	if err != nil {
		return false
	}
	return e.Dev != sysInfo(info).Dev
}

var userNames = xsync.NewMapOf[uint32, string]()
var groupNames = xsync.NewMapOf[uint32, string]()

func (e *Entry) userName() string {
	name, _ := userNames.LoadOrCompute(e.UID, func() string {
		u, err := user.LookupId(strconv.FormatUint(uint64(e.UID), 10))
		if err != nil {
			return ""
		}
		return u.Username
	})
	return name
}

func (e *Entry) groupName() string {
	name, _ := groupNames.LoadOrCompute(e.GID, func() string {
		g, err := user.LookupGroupId(strconv.FormatUint(uint64(e.GID), 10))
		if err != nil {
			return ""
		}
		return g.Name
	})
	return name
}

func splitExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext), strings.TrimPrefix(ext, ".")
}

// Attribute returns the value of a file plugin attribute. The Context
// routes requests for the file namespace here directly instead of going
// through the provider.
func (e *Entry) Attribute(name string) (types.Value, error) {
	switch name {
	case "path":
		return types.PathVal(e.Path), nil
	case "root":
		return types.PathVal(e.Start.Root), nil
	case "relpath":
		return types.PathVal(e.Relpath), nil
	case "dir":
		return types.PathVal(e.Dir), nil
	case "name":
		return types.PathVal(e.Name), nil
	case "ext":
		_, ext := splitExt(e.Path)
		return types.Str(ext), nil
	case "pathx":
		pathx, _ := splitExt(e.Path)
		return types.PathVal(pathx), nil
	case "namex":
		pathx, _ := splitExt(e.Path)
		return types.PathVal(filepath.Base(pathx)), nil
	case "mode":
		return types.ModeVal(e.RawMode), nil
	case "perm":
		return types.ModeVal(e.perm()), nil
	case "type":
		return types.FileTypeVal(e.TypeName), nil
	case "size":
		return types.SizeVal(e.fileSize()), nil
	case "mtime", "time":
		return types.TimeVal(e.MtimeNs / 1e9), nil
	case "atime":
		return types.TimeVal(e.AtimeNs / 1e9), nil
	case "ctime":
		return types.TimeVal(e.CtimeNs / 1e9), nil
	case "depth":
		return types.Num(int64(e.Depth())), nil
	case "device":
		return types.Num(int64(e.Dev)), nil
	case "inode":
		return types.Num(int64(e.Inode)), nil
	case "samedev":
		return types.Bool(e.Dev == e.Start.Device), nil
	case "links":
		return types.Num(int64(e.Nlink)), nil
	case "uid":
		return types.Num(int64(e.UID)), nil
	case "gid":
		return types.Num(int64(e.GID)), nil
	case "user":
		return types.Str(e.userName()), nil
	case "group":
		return types.Str(e.groupName()), nil
	case "hide":
		return types.Bool(strings.HasPrefix(e.Name, ".")), nil
	case "hidden":
		for _, part := range strings.Split(e.Path, "/") {
			if strings.HasPrefix(part, ".") {
				return types.Bool(true), nil
			}
		}
		return types.Bool(false), nil
	case "empty":
		return types.Bool(e.isEmpty()), nil
	case "exec":
		return types.Bool(e.isExecutable()), nil
	case "text":
		return types.Bool(e.isText()), nil
	case "mount":
		return types.Bool(e.isMount()), nil
	case "link":
		if !e.HasLink {
			return types.Value{}, ErrNoValue
		}
		return types.PathVal(e.Link), nil
	case "target":
		if !e.HasLink {
			return types.Value{}, ErrNoValue
		}
		return types.PathVal(e.Target), nil
	case "broken":
		if !e.IsSymlink() {
			return types.Bool(false), nil
		}
		return types.Bool(e.Broken), nil
	default:
		return types.Value{}, ErrNoValue
	}
}
