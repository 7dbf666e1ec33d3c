package source

import (
	"strings"

	"github.com/pkg/errors"
)

// Path is a normalized, traversal-safe logical path used to look up content
// in any Source: slash-separated non-empty segments with no leading slash.
// The empty Path denotes a request for the backend's index document.
type Path string

// ParsePath normalizes a raw request path into a Path.
//
// A single leading slash is stripped and empty segments are collapsed, so
// parsing an already-normalized path yields the same path. Any segment equal
// to "." or ".." fails with ErrInvalidPath.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.TrimPrefix(raw, "/")
	if trimmed == "" {
		return "", nil
	}

	segments := make([]string, 0, strings.Count(trimmed, "/")+1)

	for _, seg := range strings.Split(trimmed, "/") {
		switch seg {
		case "":
			// collapse repeated slashes
		case ".", "..":
			return "", errors.Wrapf(ErrInvalidPath, "%q", raw)
		default:
			segments = append(segments, seg)
		}
	}

	return Path(strings.Join(segments, "/")), nil
}
