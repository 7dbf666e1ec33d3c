// Package source provides a uniform way of fetching named file content from
// interchangeable backends (directory search paths, tar archives, in-memory
// maps, remote HTTP endpoints).
package source

import (
	"bytes"
	"context"
	"io"

	"github.com/pkg/errors"
)

// Source encapsulates API for fetching file content by logical path.
//
// Implementations must be safe for concurrent use by multiple goroutines
// once constructed. Fetch and Exists never mutate the Source; repeated
// fetches of the same path may re-read the underlying storage every time.
type Source interface {
	// Fetch returns a reader for the content stored under the given path.
	// Absent paths fail with ErrNotFound.
	Fetch(ctx context.Context, path Path) (Reader, error)

	// Exists reports whether content is stored under the given path,
	// without materializing the content where the backend allows it.
	Exists(ctx context.Context, path Path) (bool, error)

	// ConnectionInfo returns JSON-serializable data structure containing
	// information required to reconnect to the source.
	ConnectionInfo() ConnectionInfo

	// Close releases all resources associated with the source.
	Close(ctx context.Context) error

	// DisplayName returns the name of the source for quick identification by humans.
	DisplayName() string
}

// Reader is the result of a successful fetch: a readable byte stream with
// an optional known length.
type Reader interface {
	io.ReadCloser

	// Length returns the number of bytes remaining in the stream, or -1
	// when the backend does not know it up front. When non-negative, the
	// stream yields exactly that many bytes.
	Length() int64
}

// Errors returned by Source implementations. Backend-specific failures are
// normalized to these at the Source boundary; callers match with errors.Is.
// Local read failures distinct from absence are returned as wrapped I/O
// errors that match none of the sentinels.
var (
	// ErrInvalidPath is returned when a request path is malformed or attempts traversal.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotFound is returned when a file cannot be found in the source.
	ErrNotFound = errors.New("file not found")

	// ErrDecode is returned when an archive container cannot be decoded.
	ErrDecode = errors.New("container decode error")

	// ErrUpstream is returned when a remote backend responds with an
	// unexpected non-404 failure status.
	ErrUpstream = errors.New("upstream error")
)

type bytesReader struct {
	*bytes.Reader
}

func (bytesReader) Close() error {
	return nil
}

func (r bytesReader) Length() int64 {
	return int64(r.Reader.Len())
}

// NewReader returns a Reader serving the provided byte slice.
func NewReader(b []byte) Reader {
	return bytesReader{bytes.NewReader(b)}
}

type streamReader struct {
	io.ReadCloser

	length int64
}

func (r streamReader) Length() int64 {
	return r.length
}

// NewStreamReader wraps rc into a Reader with the given known length.
// Pass length -1 when the length is not known up front.
func NewStreamReader(rc io.ReadCloser, length int64) Reader {
	return streamReader{rc, length}
}

// ReadAll consumes the reader and returns its full content.
func ReadAll(r Reader) ([]byte, error) {
	defer r.Close() //nolint:errcheck

	var buf bytes.Buffer

	if l := r.Length(); l > 0 {
		buf.Grow(int(l))
	}

	if _, err := buf.ReadFrom(r); err != nil {
		return nil, errors.Wrap(err, "error reading stream")
	}

	return buf.Bytes(), nil
}

// FetchAll fetches the content stored under the given path and buffers it fully.
func FetchAll(ctx context.Context, s Source, path Path) ([]byte, error) {
	r, err := s.Fetch(ctx, path)
	if err != nil {
		return nil, err
	}

	return ReadAll(r)
}
