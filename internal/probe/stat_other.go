//go:build !linux && !darwin

package probe

import (
	"io/fs"
	"time"
)

// Ownership is not exposed through fs.FileInfo on these platforms.
func ownerIdentifierOf(fileInfo fs.FileInfo) (string, bool) {
	return "", false
}

func changeTimeOf(fileInfo fs.FileInfo) time.Time {
	return fileInfo.ModTime()
}
