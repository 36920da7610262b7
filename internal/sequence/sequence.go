// Package sequence enumerates the ordered image files of a folder.
package sequence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

var ErrNotDirectory = errors.New("path is not a directory")

// ImageExtensions is the allow-set used by the flipbook viewer.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff"}

// Filter reports whether a file name belongs to the sequence.
type Filter func(name string) bool

// All accepts every regular file.
func All(string) bool { return true }

// ByExtension accepts names whose extension, lower-cased, is in exts.
func ByExtension(exts ...string) Filter {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = struct{}{}
	}

	return func(name string) bool {
		_, ok := set[strings.ToLower(filepath.Ext(name))]
		return ok
	}
}

// Images is ByExtension(ImageExtensions...).
func Images() Filter {
	return ByExtension(ImageExtensions...)
}

// List returns the full paths of the regular files in dir accepted by
// filter, sorted by file name. An empty result is not an error.
func List(dir string, filter Filter) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// symlinks to files are kept
		if mode := entry.Type(); !mode.IsRegular() && mode&os.ModeSymlink == 0 {
			continue
		}

		if filter != nil && !filter(entry.Name()) {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}

	log.WithField("folder", dir).
		WithField("count", len(paths)).
		Debug("Listed sequence files")
	return paths, nil
}

// SplitName splits a file name into base name and extension.
func SplitName(path string) (string, string) {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}
