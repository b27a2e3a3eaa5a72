// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding"
)

// Options select archive entries visited by Walk.
type Options struct {
	// Prefix is path inside archive entries have to be under, matched on
	// whole path elements. Empty matches everything.
	Prefix string
	// Match is additional condition on entry name, may be nil.
	Match func(name string) bool
	// CodePage decodes names of entries not marked as UTF-8. Such names
	// are used as is when nil.
	CodePage encoding.Encoding
}

// Entry is a regular file in archive.
type Entry struct {
	// Name is entry path inside archive, always slash separated.
	Name string
	File *zip.File
}

// ReadAll returns uncompressed entry content.
func (e Entry) ReadAll() ([]byte, error) {
	rc, err := e.File.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// WalkFunc is called for each file in archive visited by Walk. The archive
// argument contains path to archive passed to Walk. Returned error stops
// processing.
type WalkFunc func(archive string, entry Entry) error

// Walk visits all regular files in the archive which satisfy options in
// order they are stored. Archives having entries with absolute paths or path
// traversal components ("..") are rejected to prevent Zip Slip attacks.
func Walk(archive string, opts Options, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name, err := entryName(f, opts.CodePage)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !underPrefix(name, opts.Prefix) {
			continue
		}
		if opts.Match != nil && !opts.Match(name) {
			continue
		}
		if err := walkFn(archive, Entry{Name: name, File: f}); err != nil {
			return err
		}
	}
	return nil
}

// underPrefix checks if name is prefix itself or lies under it, prefix is
// matched on whole path elements.
func underPrefix(name, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if len(prefix) == 0 || name == prefix {
		return true
	}
	return strings.HasPrefix(name, prefix+"/")
}

func entryName(f *zip.File, cp encoding.Encoding) (string, error) {
	name := f.Name
	if f.NonUTF8 && cp != nil {
		decoded, err := cp.NewDecoder().String(name)
		if err != nil {
			return "", fmt.Errorf("unable to decode name: %w", err)
		}
		name = decoded
	}
	return strings.ReplaceAll(name, `\`, "/"), nil
}

// isSafePath returns false for paths that could escape the extraction
// directory: absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || len(name) > 1 && name[1] == ':' {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
