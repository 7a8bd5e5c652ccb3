//go:build linux

package probe

import (
	"io/fs"
	"strconv"
	"syscall"
	"time"
)

func ownerIdentifierOf(fileInfo fs.FileInfo) (string, bool) {
	systemStat, statAvailable := fileInfo.Sys().(*syscall.Stat_t)
	if !statAvailable {
		return "", false
	}
	return strconv.FormatUint(uint64(systemStat.Uid), 10), true
}

func changeTimeOf(fileInfo fs.FileInfo) time.Time {
	systemStat, statAvailable := fileInfo.Sys().(*syscall.Stat_t)
	if !statAvailable {
		return fileInfo.ModTime()
	}
	return time.Unix(int64(systemStat.Ctim.Sec), int64(systemStat.Ctim.Nsec))
}
