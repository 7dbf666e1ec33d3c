// Package dirs implements a directory-search-path Source.
package dirs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/fsource/fsource/internal/logging"
	"github.com/fsource/fsource/source"
)

var log = logging.Module("source/dirs")

const dirsSourceType = "dirs"

// Options defines options for the directory-search-path source.
type Options struct {
	// SearchPaths is the ordered list of directory roots. A fetch probes
	// each root in order and the first root containing the path wins.
	SearchPaths []string `json:"searchPaths"`
}

type dirsSource struct {
	Options
}

func (s *dirsSource) Fetch(ctx context.Context, path source.Path) (source.Reader, error) {
	for _, root := range s.SearchPaths {
		fullPath := filepath.Join(root, filepath.FromSlash(string(path)))

		st, err := os.Stat(fullPath)
		if err != nil {
			if notPresent(err) {
				continue
			}

			return nil, errors.Wrapf(err, "unable to stat %v", fullPath)
		}

		if st.IsDir() {
			continue
		}

		f, err := os.Open(fullPath) //nolint:gosec
		if err != nil {
			// the file exists but cannot be read, which is distinct from absence.
			return nil, errors.Wrapf(err, "unable to open %v", fullPath)
		}

		log(ctx).Debugw("found file", "path", path, "root", root)

		return source.NewStreamReader(f, st.Size()), nil
	}

	return nil, errors.Wrapf(source.ErrNotFound, "%q not in search paths", path)
}

func (s *dirsSource) Exists(ctx context.Context, path source.Path) (bool, error) {
	for _, root := range s.SearchPaths {
		st, err := os.Stat(filepath.Join(root, filepath.FromSlash(string(path))))
		if err != nil {
			if notPresent(err) {
				continue
			}

			return false, errors.Wrap(err, "unable to stat")
		}

		if !st.IsDir() {
			return true, nil
		}
	}

	return false, nil
}

// notPresent reports whether a stat error means the path is absent from the
// root, which includes paths traversing through a regular file (ENOTDIR).
// Any other failure is a genuine I/O error, distinct from absence.
func notPresent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func (s *dirsSource) ConnectionInfo() source.ConnectionInfo {
	return source.ConnectionInfo{
		Type:   dirsSourceType,
		Config: &s.Options,
	}
}

func (s *dirsSource) Close(ctx context.Context) error {
	return nil
}

func (s *dirsSource) DisplayName() string {
	return "Directories"
}

// New creates a new source searching the directory roots listed in the options.
func New(ctx context.Context, opts *Options) (source.Source, error) {
	if len(opts.SearchPaths) == 0 {
		return nil, errors.New("at least one search path is required")
	}

	return &dirsSource{
		Options{
			SearchPaths: append([]string(nil), opts.SearchPaths...),
		},
	}, nil
}

func init() {
	source.AddSupportedSource(
		dirsSourceType,
		func() interface{} { return &Options{} },
		func(ctx context.Context, o interface{}) (source.Source, error) {
			return New(ctx, o.(*Options)) //nolint:forcetypeassert
		})
}
