// Package tarball implements a Source reading from a tar archive, optionally
// gzip-compressed.
//
// An in-memory archive is indexed lazily on first access: the single linear
// scan materializes every regular entry into a path-keyed index, after which
// lookups are lock-free. A file-backed archive is scanned sequentially on
// every lookup instead, streaming the matched entry without buffering the
// container in memory.
package tarball

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/fsource/fsource/internal/logging"
	"github.com/fsource/fsource/internal/timetrack"
	"github.com/fsource/fsource/source"
)

var log = logging.Module("source/tarball")

const tarballSourceType = "tarball"

// Options defines options for the tar archive source.
type Options struct {
	// Path of the archive file on disk. Mutually exclusive with Data.
	Path string `json:"path,omitempty"`

	// Data is the full archive image held in memory.
	Data []byte `json:"-"`

	// Compressed indicates that the archive is gzip-compressed.
	Compressed bool `json:"compressed,omitempty"`
}

type tarballSource struct {
	Options

	// buildIndexOnce guards the one-time index build for in-memory
	// archives so concurrent readers wait for a single scan.
	buildIndexOnce sync.Once
	index          map[source.Path][]byte
	indexErr       error
}

func (s *tarballSource) Fetch(ctx context.Context, path source.Path) (source.Reader, error) {
	if s.Path != "" {
		return s.scanFile(ctx, path)
	}

	index, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	data, ok := index[path]
	if !ok {
		return nil, errors.Wrapf(source.ErrNotFound, "%q not in archive", path)
	}

	return source.NewReader(data), nil
}

func (s *tarballSource) Exists(ctx context.Context, path source.Path) (bool, error) {
	if s.Path != "" {
		return s.scanFileExists(ctx, path)
	}

	index, err := s.entries(ctx)
	if err != nil {
		return false, err
	}

	_, ok := index[path]

	return ok, nil
}

func (s *tarballSource) ConnectionInfo() source.ConnectionInfo {
	return source.ConnectionInfo{
		Type:   tarballSourceType,
		Config: &s.Options,
	}
}

func (s *tarballSource) Close(ctx context.Context) error {
	return nil
}

func (s *tarballSource) DisplayName() string {
	if s.Path != "" {
		return "Archive: " + s.Path
	}

	return "Archive"
}

// entries returns the path-keyed index of the in-memory archive, building it
// on first access.
func (s *tarballSource) entries(ctx context.Context) (map[source.Path][]byte, error) {
	s.buildIndexOnce.Do(func() {
		timer := timetrack.StartTimer()

		s.index, s.indexErr = buildIndex(s.Data, s.Compressed)
		if s.indexErr != nil {
			log(ctx).Errorf("archive index build failed: %v", s.indexErr)
			return
		}

		log(ctx).Debugw("archive index built", "entries", len(s.index), "duration", timer.Elapsed())
	})

	return s.index, s.indexErr
}

func buildIndex(data []byte, compressed bool) (map[source.Path][]byte, error) {
	r, err := containerReader(bytes.NewReader(data), compressed)
	if err != nil {
		return nil, err
	}

	index := map[source.Path][]byte{}
	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return index, nil
		}

		if err != nil {
			return nil, errors.Wrapf(source.ErrDecode, "reading tar header: %v", err)
		}

		path, ok := entryPath(hdr)
		if !ok {
			continue
		}

		// for duplicate names the first entry wins, matching the
		// sequential scan order.
		if _, exists := index[path]; exists {
			continue
		}

		content := make([]byte, 0, hdr.Size)

		buf := bytes.NewBuffer(content)
		if _, err := buf.ReadFrom(tr); err != nil {
			return nil, errors.Wrapf(source.ErrDecode, "reading tar entry %q: %v", hdr.Name, err)
		}

		index[path] = buf.Bytes()
	}
}

// scanFile opens the archive file and scans entries sequentially until a
// name match is found or the container is exhausted.
func (s *tarballSource) scanFile(ctx context.Context, path source.Path) (source.Reader, error) {
	f, err := os.Open(s.Path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open archive %v", s.Path)
	}

	r, err := containerReader(f, s.Compressed)
	if err != nil {
		f.Close() //nolint:errcheck,gosec
		return nil, err
	}

	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			f.Close() //nolint:errcheck,gosec
			return nil, errors.Wrapf(source.ErrNotFound, "%q not in archive %v", path, s.Path)
		}

		if err != nil {
			f.Close() //nolint:errcheck,gosec
			return nil, errors.Wrapf(source.ErrDecode, "reading tar header: %v", err)
		}

		entry, ok := entryPath(hdr)
		if !ok || entry != path {
			continue
		}

		log(ctx).Debugw("found archive entry", "path", path, "size", hdr.Size)

		// the entry stream stays valid for as long as the file is open.
		return source.NewStreamReader(&entryReader{tr, f}, hdr.Size), nil
	}
}

func (s *tarballSource) scanFileExists(ctx context.Context, path source.Path) (bool, error) {
	f, err := os.Open(s.Path) //nolint:gosec
	if err != nil {
		return false, errors.Wrapf(err, "unable to open archive %v", s.Path)
	}
	defer f.Close() //nolint:errcheck

	r, err := containerReader(f, s.Compressed)
	if err != nil {
		return false, err
	}

	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return false, nil
		}

		if err != nil {
			return false, errors.Wrapf(source.ErrDecode, "reading tar header: %v", err)
		}

		if entry, ok := entryPath(hdr); ok && entry == path {
			return true, nil
		}
	}
}

type entryReader struct {
	io.Reader

	f *os.File
}

func (r *entryReader) Close() error {
	//nolint:wrapcheck
	return r.f.Close()
}

// containerReader optionally decompresses the raw container stream.
func containerReader(r io.Reader, compressed bool) (io.Reader, error) {
	if !compressed {
		return r, nil
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrapf(source.ErrDecode, "invalid gzip stream: %v", err)
	}

	return gz, nil
}

// entryPath derives the logical path of a regular archive entry. Entries
// with names that do not normalize to a valid path (such as traversal
// attempts) are not addressable.
func entryPath(hdr *tar.Header) (source.Path, bool) {
	if hdr.Typeflag != tar.TypeReg {
		return "", false
	}

	name := hdr.Name
	for len(name) >= 2 && name[:2] == "./" {
		name = name[2:]
	}

	path, err := source.ParsePath(name)
	if err != nil || path == "" {
		return "", false
	}

	return path, true
}

// New creates a new source reading from the tar archive described by the options.
func New(ctx context.Context, opts *Options) (source.Source, error) {
	if (opts.Path == "") == (len(opts.Data) == 0) {
		return nil, errors.New("exactly one of Path or Data must be provided")
	}

	return &tarballSource{
		Options: Options{
			Path:       opts.Path,
			Data:       opts.Data,
			Compressed: opts.Compressed,
		},
	}, nil
}

func init() {
	source.AddSupportedSource(
		tarballSourceType,
		func() interface{} { return &Options{} },
		func(ctx context.Context, o interface{}) (source.Source, error) {
			return New(ctx, o.(*Options)) //nolint:forcetypeassert
		})
}
