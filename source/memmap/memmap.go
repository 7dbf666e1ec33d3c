// Package memmap implements an in-memory map-backed Source.
package memmap

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fsource/fsource/source"
)

const memmapSourceType = "memmap"

// Options defines options for the in-memory source.
type Options struct {
	// Entries maps logical path strings to file content. The source takes
	// a private copy of every buffer at construction time.
	Entries map[string][]byte `json:"entries"`
}

type memmapSource struct {
	entries map[source.Path][]byte
}

func (s *memmapSource) Fetch(ctx context.Context, path source.Path) (source.Reader, error) {
	data, ok := s.entries[path]
	if !ok {
		return nil, errors.Wrapf(source.ErrNotFound, "%q", path)
	}

	return source.NewReader(data), nil
}

func (s *memmapSource) Exists(ctx context.Context, path source.Path) (bool, error) {
	_, ok := s.entries[path]

	return ok, nil
}

func (s *memmapSource) ConnectionInfo() source.ConnectionInfo {
	opts := &Options{
		Entries: map[string][]byte{},
	}

	// export copies so callers cannot mutate the served content.
	for p, data := range s.entries {
		opts.Entries[string(p)] = append([]byte(nil), data...)
	}

	return source.ConnectionInfo{
		Type:   memmapSourceType,
		Config: opts,
	}
}

func (s *memmapSource) Close(ctx context.Context) error {
	return nil
}

func (s *memmapSource) DisplayName() string {
	return "Memory"
}

// New creates a new source serving the provided path-to-content entries.
func New(ctx context.Context, opts *Options) (source.Source, error) {
	entries := make(map[source.Path][]byte, len(opts.Entries))

	for rawPath, data := range opts.Entries {
		path, err := source.ParsePath(rawPath)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid entry key %q", rawPath)
		}

		if path == "" {
			return nil, errors.Errorf("invalid entry key %q: empty path", rawPath)
		}

		entries[path] = append([]byte(nil), data...)
	}

	return &memmapSource{entries}, nil
}

func init() {
	source.AddSupportedSource(
		memmapSourceType,
		func() interface{} { return &Options{} },
		func(ctx context.Context, o interface{}) (source.Source, error) {
			return New(ctx, o.(*Options)) //nolint:forcetypeassert
		})
}
