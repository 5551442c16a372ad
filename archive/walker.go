// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"cmp"
	"errors"
	"path"
	"slices"
	"strings"
)

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. The archive argument contains path to archive passed to
// Walk, file is the entry which satisfies match condition. If an error is
// returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk calls walkFn for every regular file of the archive located under
// prefix, in name order. Prefix is matched by whole path segments, so "posts"
// selects "posts/a.html" and "posts" itself but not "posts-old/a.html". Empty
// prefix selects everything. Absolute entries, entries with ".." components
// and macOS resource forks are skipped.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return err
	}
	defer r.Close()

	files := slices.Clone(r.File)
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		return cmp.Compare(a.Name, b.Name)
	})

	prefix = strings.Trim(prefix, "/")
	for _, f := range files {
		name := f.Name
		if !isSafePath(name) || isMetadata(name) || f.FileInfo().IsDir() {
			continue
		}
		if !underPrefix(name, prefix) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

func underPrefix(name, prefix string) bool {
	if prefix == "" || name == prefix {
		return true
	}
	return strings.HasPrefix(name, prefix+"/")
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) || (len(name) > 1 && name[1] == ':') {
		return false
	}
	for _, part := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

func isMetadata(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || path.Base(name) == ".DS_Store"
}
