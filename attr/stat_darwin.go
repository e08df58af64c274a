//go:build darwin

package attr

import (
	"os"
	"syscall"
)

type rawStat struct {
	Dev     uint64
	Ino     uint64
	Nlink   uint64
	UID     uint32
	GID     uint32
	RawMode uint32
	MtimeNs int64
	AtimeNs int64
	CtimeNs int64
}

func sysInfo(info os.FileInfo) rawStat {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return rawStat{MtimeNs: info.ModTime().UnixNano(), RawMode: uint32(info.Mode())}
	}
	return rawStat{
		Dev:     uint64(st.Dev),
		Ino:     st.Ino,
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		RawMode: uint32(st.Mode),
		MtimeNs: st.Mtimespec.Nano(),
		AtimeNs: st.Atimespec.Nano(),
		CtimeNs: st.Ctimespec.Nano(),
	}
}
