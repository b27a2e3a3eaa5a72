package cssurl

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultRoot is the prefix marking root relative URLs when none is configured.
const DefaultRoot = "~"

// Primitives are path and request operations the transformer depends on.
// Implementations must be pure, the transformer may be used concurrently.
type Primitives interface {
	// Join resolves possibly root relative uri against directory.
	Join(directory, uri string) (string, bool)
	// IsURLRequest reports whether uri references a file which needs
	// resolution (false for data URIs, absolute external URLs, etc).
	IsURLRequest(uri, root string) bool
	// URLToRequest encodes relative path as module request.
	URLToRequest(relative, root string) (string, bool)
	// RelativePath returns path of "to" relative to "from".
	RelativePath(from, to string) (string, bool)
}

// Options control how found references are rewritten.
type Options struct {
	// Root marks root relative URLs, DefaultRoot when empty.
	Root string
	// Absolute selects absolute file system paths instead of module relative
	// requests.
	Absolute bool
	// KeepQuery keeps ?query and #hash suffixes of rewritten references.
	KeepQuery bool
}

// Option sets optional Transformer properties.
type Option func(t *Transformer)

// WithLogger sets logger used to report rewrites at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(t *Transformer) {
		if log != nil {
			t.log = log.Named("cssurl")
		}
	}
}

// Transformer rewrites url() references for a single stylesheet. It keeps no
// state between calls.
type Transformer struct {
	filePath string
	opts     Options
	prims    Primitives
	log      *zap.Logger
}

// New returns Transformer for stylesheet located at filePath. Relative
// requests are computed against filePath.
func New(filePath string, opts Options, prims Primitives, options ...Option) *Transformer {
	if opts.Root == "" {
		opts.Root = DefaultRoot
	}
	t := &Transformer{
		filePath: filePath,
		opts:     opts,
		prims:    prims,
		log:      zap.NewNop(),
	}
	for _, fn := range options {
		fn(t)
	}
	return t
}

// Func returns Transform as a plain function value.
func (t *Transformer) Func() func(value, directory string) string {
	return t.Transform
}

// Transform rewrites every url() statement in declaration value. References
// are resolved against directory. Text outside of url() arguments is never
// changed and anything which cannot be resolved is kept as is.
func (t *Transformer) Transform(value, directory string) string {
	if !strings.Contains(value, "url") {
		return value
	}

	var sb strings.Builder
	sb.Grow(len(value))
	for seg := range Tokenize(value) {
		if seg.Kind == Argument {
			sb.WriteString(t.Resolve(seg.Text, directory))
			continue
		}
		sb.WriteString(seg.Text)
	}
	return sb.String()
}

// reference is url() argument split into parts.
type reference struct {
	uri          string
	query        string
	absolutePath string
}

// Resolve returns replacement for a single url() argument, or argument itself
// when it is not a file request or cannot be resolved.
func (t *Transformer) Resolve(argument, directory string) string {
	ref, ok := t.locate(argument, directory)
	if !ok {
		return argument
	}

	var (
		result string
		found  bool
	)
	if t.opts.Absolute {
		result, found = toSlash(ref.absolutePath)+ref.query, true
	} else {
		result, found = t.request(ref)
	}
	if !found {
		t.log.Debug("Unable to rewrite reference", zap.String("url", argument), zap.String("dir", directory))
		return argument
	}

	t.log.Debug("Reference rewritten", zap.String("from", argument), zap.String("to", result))
	return result
}

// locate splits argument and finds absolute path of the referenced file.
func (t *Transformer) locate(argument, directory string) (reference, bool) {
	ref := reference{uri: argument}
	if i := strings.IndexAny(argument, "?#"); i >= 0 {
		ref.uri = argument[:i]
		if t.opts.KeepQuery {
			ref.query = argument[i:]
		}
	}

	if ref.uri == "" || !t.prims.IsURLRequest(ref.uri, t.opts.Root) {
		return ref, false
	}

	abs, ok := t.prims.Join(directory, ref.uri)
	if !ok || abs == "" {
		return ref, false
	}
	ref.absolutePath = abs
	return ref, true
}

// request makes module request out of located reference, relative to the
// stylesheet path.
func (t *Transformer) request(ref reference) (string, bool) {
	rel, ok := t.prims.RelativePath(t.filePath, ref.absolutePath)
	if !ok {
		return "", false
	}
	rel = toSlash(rel) + ref.query
	if rel == "" {
		return "", false
	}

	req, ok := t.prims.URLToRequest(rel, t.opts.Root)
	if !ok || req == "" {
		return "", false
	}
	return req, true
}

// toSlash replaces back slashes, they are not legal in URIs.
func toSlash(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}
