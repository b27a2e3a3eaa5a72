package request

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Joiner resolves url() references to absolute file system paths.
type Joiner struct {
	// Root is the marker of root relative URLs.
	Root string
	// RootDir is the directory root relative URLs are resolved against. When
	// empty such URLs are resolved against the directory of the reference.
	RootDir string
	// Fallbacks are additional directories probed when referenced file does
	// not exist relative to the original directory.
	Fallbacks []string
	// FS is used to check file existence when Fallbacks are set, host file
	// system is used when nil. Paths are looked up without leading "/".
	FS fs.StatFS
}

// Join returns absolute path for uri referenced from directory.
func (j *Joiner) Join(directory, uri string) (string, bool) {
	uri = filepath.FromSlash(uri)

	base := directory
	if rel, ok := j.rootRelative(uri); ok {
		uri = rel
		if j.RootDir != "" {
			base = j.RootDir
		}
	} else if filepath.IsAbs(uri) {
		// windows drive paths
		return filepath.Clean(uri), true
	}
	if base == "" {
		return "", false
	}

	primary, err := filepath.Abs(filepath.Join(base, uri))
	if err != nil {
		return "", false
	}
	if len(j.Fallbacks) == 0 || j.exists(primary) {
		return primary, true
	}

	for _, dir := range j.Fallbacks {
		candidate, err := filepath.Abs(filepath.Join(dir, uri))
		if err != nil {
			continue
		}
		if j.exists(candidate) {
			return candidate, true
		}
	}
	return primary, true
}

// rootRelative strips root marker or leading separator from uri.
func (j *Joiner) rootRelative(uri string) (string, bool) {
	sep := string(filepath.Separator)
	if j.Root != "" && j.Root != "/" {
		if rest, ok := strings.CutPrefix(uri, filepath.FromSlash(j.Root)); ok {
			return strings.TrimLeft(rest, sep), true
		}
	}
	if rest, ok := strings.CutPrefix(uri, sep); ok {
		return strings.TrimLeft(rest, sep), true
	}
	return uri, false
}

func (j *Joiner) exists(name string) bool {
	if j.FS == nil {
		_, err := os.Stat(name)
		return err == nil
	}
	// fs.FS paths are unrooted and slash separated
	name = filepath.ToSlash(strings.TrimPrefix(name, filepath.VolumeName(name)))
	_, err := j.FS.Stat(strings.TrimPrefix(name, "/"))
	return err == nil
}

// RelativePath returns path of "to" relative to "from".
func RelativePath(from, to string) (string, bool) {
	rel, err := filepath.Rel(filepath.Clean(from), filepath.Clean(to))
	if err != nil {
		return "", false
	}
	return rel, true
}

// Primitives bundles Joiner with request rules.
type Primitives struct {
	Joiner
}

// NewPrimitives returns Primitives for given root marker and root directory.
func NewPrimitives(root, rootDir string, fallbacks ...string) *Primitives {
	return &Primitives{Joiner: Joiner{Root: root, RootDir: rootDir, Fallbacks: fallbacks}}
}

// IsURLRequest implements cssurl.Primitives.
func (p *Primitives) IsURLRequest(uri, root string) bool { return IsURLRequest(uri, root) }

// URLToRequest implements cssurl.Primitives.
func (p *Primitives) URLToRequest(relative, root string) (string, bool) {
	return URLToRequest(relative, root)
}

// RelativePath implements cssurl.Primitives.
func (p *Primitives) RelativePath(from, to string) (string, bool) { return RelativePath(from, to) }
