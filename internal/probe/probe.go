package probe

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"time"
	"unicode/utf8"
)

const (
	// HashChunkSizeConstant bounds the number of bytes held in memory while hashing.
	HashChunkSizeConstant         = 4096
	permissionFormatTemplate      = "%03o"
	notRegularFileMessageConstant = "not a regular file"
	nullByteConstant              = byte(0)
)

var errNotRegularFile = errors.New(notRegularFileMessageConstant)

// Result captures the probed state of a file.
type Result struct {
	Path        string
	Permissions string
	ContentHash string
	Owner       string
	Size        int64
	ChangeTime  time.Time
}

// OwnerResolver maps a numeric owner identifier to an account name.
type OwnerResolver interface {
	ResolveOwner(ownerIdentifier string) (string, error)
}

// SystemOwnerResolver resolves owners through the operating system account database.
type SystemOwnerResolver struct{}

// ResolveOwner looks up the account name for the identifier. Identifiers without an
// account entry resolve to themselves so that orphaned files remain comparable.
func (SystemOwnerResolver) ResolveOwner(ownerIdentifier string) (string, error) {
	account, lookupError := user.LookupId(ownerIdentifier)
	if lookupError != nil {
		var unknownIdentifier user.UnknownUserIdError
		if errors.As(lookupError, &unknownIdentifier) {
			return ownerIdentifier, nil
		}
		return "", lookupError
	}
	return account.Username, nil
}

// FileProbe inspects files on the local filesystem.
type FileProbe struct {
	ownerResolver OwnerResolver
}

// NewFileProbe constructs a FileProbe. A nil resolver falls back to SystemOwnerResolver.
func NewFileProbe(ownerResolver OwnerResolver) *FileProbe {
	if ownerResolver == nil {
		ownerResolver = SystemOwnerResolver{}
	}
	return &FileProbe{ownerResolver: ownerResolver}
}

// Probe returns the digest, permissions, and owner of the file at path.
func (fileProbe *FileProbe) Probe(path string) (Result, error) {
	fileInfo, statError := os.Stat(path)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return Result{}, ErrNotFound
		}
		return Result{}, newError(path, OperationStat, statError)
	}
	if !fileInfo.Mode().IsRegular() {
		return Result{}, newError(path, OperationStat, errNotRegularFile)
	}

	contentHash, hashError := hashFile(path)
	if hashError != nil {
		if errors.Is(hashError, fs.ErrNotExist) {
			return Result{}, ErrNotFound
		}
		return Result{}, newError(path, OperationHash, hashError)
	}

	owner := ""
	if ownerIdentifier, identifierAvailable := ownerIdentifierOf(fileInfo); identifierAvailable {
		resolvedOwner, resolveError := fileProbe.ownerResolver.ResolveOwner(ownerIdentifier)
		if resolveError != nil {
			return Result{}, newError(path, OperationOwner, resolveError)
		}
		owner = resolvedOwner
	}

	return Result{
		Path:        path,
		Permissions: FormatPermissions(fileInfo.Mode()),
		ContentHash: contentHash,
		Owner:       owner,
		Size:        fileInfo.Size(),
		ChangeTime:  changeTimeOf(fileInfo),
	}, nil
}

// ReadLines returns the file content split into lines without terminators.
func (fileProbe *FileProbe) ReadLines(path string) ([]string, error) {
	content, readError := os.ReadFile(path)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, newError(path, OperationRead, readError)
	}
	if !isText(content) {
		return nil, ErrContentUnreadable
	}
	return SplitLines(string(content)), nil
}

// FormatPermissions renders the nine permission bits as a three digit octal string.
func FormatPermissions(mode fs.FileMode) string {
	return fmt.Sprintf(permissionFormatTemplate, uint32(mode.Perm()))
}

func hashFile(path string) (string, error) {
	file, openError := os.Open(path)
	if openError != nil {
		return "", openError
	}
	defer file.Close()

	hasher := sha256.New()
	chunk := make([]byte, HashChunkSizeConstant)
	for {
		bytesRead, readError := file.Read(chunk)
		if bytesRead > 0 {
			hasher.Write(chunk[:bytesRead])
		}
		if readError == io.EOF {
			break
		}
		if readError != nil {
			return "", readError
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func isText(content []byte) bool {
	for _, currentByte := range content {
		if currentByte == nullByteConstant {
			return false
		}
	}
	return utf8.Valid(content)
}
