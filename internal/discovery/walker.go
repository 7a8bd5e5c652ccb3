package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
	gitignore "github.com/sabhiram/go-gitignore"
)

const (
	directoryPatternSuffixConstant = "/"
	invalidIncludePatternTemplate  = "invalid include pattern %q"
	rootNotDirectoryTemplate       = "%s is not a directory"
	rootStatErrorTemplate          = "inspect root %s: %w"
	rootWalkErrorTemplate          = "walk root %s: %w"
	excludedPathErrorTemplate      = "resolve excluded path %s: %w"
)

// Options controls which files FilesystemWalker reports.
type Options struct {
	// Ignore holds gitignore-style patterns evaluated relative to the walked root.
	Ignore []string
	// Include holds doublestar globs; when non-empty only matching files are reported.
	Include []string
	// Exclude lists files or directories that are never reported, such as the stores themselves.
	Exclude []string
}

// FilesystemWalker lists regular files beneath a root directory.
type FilesystemWalker struct {
	ignoreMatcher   *gitignore.GitIgnore
	includePatterns []string
	excludedPaths   mapset.Set[string]
}

// NewFilesystemWalker constructs a walker backed by filepath.WalkDir.
func NewFilesystemWalker(options Options) (*FilesystemWalker, error) {
	includePatterns := make([]string, 0, len(options.Include))
	for _, pattern := range options.Include {
		trimmedPattern := strings.TrimSpace(pattern)
		if len(trimmedPattern) == 0 {
			continue
		}
		if !doublestar.ValidatePattern(trimmedPattern) {
			return nil, fmt.Errorf(invalidIncludePatternTemplate, pattern)
		}
		includePatterns = append(includePatterns, trimmedPattern)
	}

	excludedPaths := mapset.NewThreadUnsafeSet[string]()
	for _, excludedPath := range options.Exclude {
		if len(strings.TrimSpace(excludedPath)) == 0 {
			continue
		}
		absolutePath, absoluteError := filepath.Abs(excludedPath)
		if absoluteError != nil {
			return nil, fmt.Errorf(excludedPathErrorTemplate, excludedPath, absoluteError)
		}
		excludedPaths.Add(absolutePath)
	}

	return &FilesystemWalker{
		ignoreMatcher:   gitignore.CompileIgnoreLines(options.Ignore...),
		includePatterns: includePatterns,
		excludedPaths:   excludedPaths,
	}, nil
}

// Walk returns the absolute paths of regular files under root in lexical order.
// Symbolic links are reported when they resolve to a regular file. Entries that
// cannot be read below the root are skipped; a root that cannot be read is an error.
func (walker *FilesystemWalker) Walk(root string) ([]string, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return nil, fmt.Errorf(rootStatErrorTemplate, root, absoluteError)
	}
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		return nil, fmt.Errorf(rootStatErrorTemplate, absoluteRoot, statError)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf(rootNotDirectoryTemplate, absoluteRoot)
	}

	discoveredPaths := make([]string, 0)
	walkError := filepath.WalkDir(absoluteRoot, func(path string, directoryEntry fs.DirEntry, walkError error) error {
		if walkError != nil {
			if path == absoluteRoot {
				return walkError
			}
			return nil
		}
		if path == absoluteRoot {
			return nil
		}

		if walker.excludedPaths.Contains(path) {
			if directoryEntry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		relativePath, relativeError := filepath.Rel(absoluteRoot, path)
		if relativeError != nil {
			return nil
		}
		relativePath = filepath.ToSlash(relativePath)

		if directoryEntry.IsDir() {
			if walker.ignoreMatcher.MatchesPath(relativePath + directoryPatternSuffixConstant) {
				return fs.SkipDir
			}
			return nil
		}

		if !isRegularFile(path, directoryEntry) {
			return nil
		}
		if walker.ignoreMatcher.MatchesPath(relativePath) {
			return nil
		}
		if !walker.included(relativePath) {
			return nil
		}

		discoveredPaths = append(discoveredPaths, path)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(rootWalkErrorTemplate, absoluteRoot, walkError)
	}
	return discoveredPaths, nil
}

func (walker *FilesystemWalker) included(relativePath string) bool {
	if len(walker.includePatterns) == 0 {
		return true
	}
	for _, pattern := range walker.includePatterns {
		matched, matchError := doublestar.Match(pattern, relativePath)
		if matchError == nil && matched {
			return true
		}
	}
	return false
}

func isRegularFile(path string, directoryEntry fs.DirEntry) bool {
	entryType := directoryEntry.Type()
	if entryType.IsRegular() {
		return true
	}
	if entryType&fs.ModeSymlink == 0 {
		return false
	}
	targetInfo, statError := os.Stat(path)
	if statError != nil {
		return false
	}
	return targetInfo.Mode().IsRegular()
}
