// Package request provides default path and request primitives for cssurl.
// Request rules follow those used by webpack loaders: what is a request to
// be resolved through module system and how relative path is encoded as such
// request.
package request

import (
	"regexp"
	"strings"
)

var (
	// absolute URLs with scheme, windows drive paths are checked separately
	rxScheme = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*:`)
	// protocol relative URLs
	rxProtocolRelative = regexp.MustCompile(`^//`)
	// things which look like templates or are not paths at all
	rxNotAPath = regexp.MustCompile("^[{}\\[\\]#*;,'§$%&(=?`´^°<>]")
	// module requests, everything before "~" is dropped
	rxModuleRequest = regexp.MustCompile(`^[^?]*~`)
	// native windows absolute paths
	rxWindowsPath = regexp.MustCompile(`^[a-zA-Z]:[\\/]|^\\\\`)
	// last character of module root not followed by separator
	rxRootTail = regexp.MustCompile(`([^~/])$`)
)

// IsURLRequest reports whether uri is a reference to a file which has to be
// resolved. Absolute URLs, protocol relative URLs, fragments and template
// like strings are not. Root relative paths ("/img.png") are requests only
// when root is configured.
func IsURLRequest(uri, root string) bool {
	if uri == "" {
		return false
	}
	if rxScheme.MatchString(uri) && !rxWindowsPath.MatchString(uri) {
		return false
	}
	if rxProtocolRelative.MatchString(uri) {
		return false
	}
	if rxNotAPath.MatchString(uri) {
		return false
	}
	if root == "" && strings.HasPrefix(uri, "/") {
		return false
	}
	return true
}

// URLToRequest converts relative path into module request. Plain paths get
// "./" prefix, root relative paths are prefixed with root. Returns false for
// empty path.
func URLToRequest(uri, root string) (string, bool) {
	if uri == "" {
		return "", false
	}

	var req string
	switch {
	case rxWindowsPath.MatchString(uri):
		req = uri
	case root != "" && strings.HasPrefix(uri, "/"):
		if rxModuleRequest.MatchString(root) {
			req = rxRootTail.ReplaceAllString(root, "$1/") + uri[1:]
		} else {
			req = root + uri
		}
	case strings.HasPrefix(uri, "./"), strings.HasPrefix(uri, "../"):
		req = uri
	default:
		req = "./" + uri
	}

	if rxModuleRequest.MatchString(req) {
		req = rxModuleRequest.ReplaceAllString(req, "")
	}
	return req, req != ""
}
