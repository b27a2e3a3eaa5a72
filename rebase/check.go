package rebase

import (
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"cssrebase/cssurl"
)

// kinds of referenced files which content could be verified, by extension
var sniffable = map[string]string{
	".woff":  "woff",
	".woff2": "woff2",
	".ttf":   "ttf",
	".otf":   "otf",
	".png":   "png",
	".jpg":   "jpg",
	".jpeg":  "jpg",
	".gif":   "gif",
	".webp":  "webp",
	".bmp":   "bmp",
	".ico":   "ico",
}

// checker verifies every file reference resolves to. Each file is checked
// once per run.
type checker struct {
	cssurl.Primitives
	log *zap.Logger

	seen       sync.Map
	missing    atomic.Int64
	mismatched atomic.Int64
}

func newChecker(prims cssurl.Primitives, log *zap.Logger) *checker {
	return &checker{Primitives: prims, log: log.Named("check")}
}

// Join resolves reference and verifies the result.
func (c *checker) Join(directory, uri string) (string, bool) {
	abs, ok := c.Primitives.Join(directory, uri)
	if ok {
		c.verify(abs)
	}
	return abs, ok
}

func (c *checker) verify(abs string) {
	if _, done := c.seen.LoadOrStore(abs, struct{}{}); done {
		return
	}

	head, err := readHeader(abs)
	if err != nil {
		c.missing.Add(1)
		c.log.Warn("Referenced file is not accessible", zap.String("file", abs), zap.Error(err))
		return
	}

	kind, ok := sniffable[strings.ToLower(filepath.Ext(abs))]
	if !ok {
		return
	}
	if !filetype.Is(head, kind) {
		c.mismatched.Add(1)
		detected := "unknown"
		if t, err := filetype.Match(head); err == nil && t != filetype.Unknown {
			detected = t.Extension
		}
		c.log.Warn("Referenced file content does not match its extension",
			zap.String("file", abs), zap.String("expected", kind), zap.String("detected", detected))
	}
}
