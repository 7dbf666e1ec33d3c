// Package logging implements a wrapper around Source that logs all activity.
package logging

import (
	"context"

	"github.com/fsource/fsource/internal/timetrack"
	"github.com/fsource/fsource/source"
)

type loggingSource struct {
	base   source.Source
	printf func(string, ...interface{})
	prefix string
}

func (s *loggingSource) Fetch(ctx context.Context, path source.Path) (source.Reader, error) {
	timer := timetrack.StartTimer()
	r, err := s.base.Fetch(ctx, path)
	dt := timer.Elapsed()

	if err != nil {
		s.printf(s.prefix+"Fetch(%q)=%v took %v", path, err, dt)
	} else {
		s.printf(s.prefix+"Fetch(%q)={%v bytes} took %v", path, r.Length(), dt)
	}

	//nolint:wrapcheck
	return r, err
}

func (s *loggingSource) Exists(ctx context.Context, path source.Path) (bool, error) {
	timer := timetrack.StartTimer()
	ok, err := s.base.Exists(ctx, path)
	dt := timer.Elapsed()

	s.printf(s.prefix+"Exists(%q)=(%v, %v) took %v", path, ok, err, dt)

	//nolint:wrapcheck
	return ok, err
}

func (s *loggingSource) ConnectionInfo() source.ConnectionInfo {
	ci := s.base.ConnectionInfo()

	s.printf(s.prefix+"ConnectionInfo()=%v", ci.Type)

	return ci
}

func (s *loggingSource) Close(ctx context.Context) error {
	timer := timetrack.StartTimer()
	err := s.base.Close(ctx)
	dt := timer.Elapsed()

	s.printf(s.prefix+"Close()=%v took %v", err, dt)

	//nolint:wrapcheck
	return err
}

func (s *loggingSource) DisplayName() string {
	return s.base.DisplayName()
}

// NewWrapper returns a Source wrapping the given source that logs all
// activity using the provided printf-style function, prefixing each message
// with the given prefix.
func NewWrapper(wrapped source.Source, printf func(string, ...interface{}), prefix string) source.Source {
	return &loggingSource{base: wrapped, printf: printf, prefix: prefix}
}
