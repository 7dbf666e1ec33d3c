// Package sourcetesting implements generic verifiers for Source implementations.
package sourcetesting

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/fsource/fsource/source"
)

// VerifySource verifies that the source serves exactly the expected entries
// and fails cleanly for the missing paths.
func VerifySource(ctx context.Context, t *testing.T, src source.Source, expected map[source.Path][]byte, missing []source.Path) {
	t.Helper()

	for path, want := range expected {
		ok, err := src.Exists(ctx, path)
		require.NoError(t, err, "Exists(%q)", path)
		require.True(t, ok, "Exists(%q)", path)

		r, err := src.Fetch(ctx, path)
		require.NoError(t, err, "Fetch(%q)", path)

		if l := r.Length(); l >= 0 {
			require.EqualValues(t, len(want), l, "Length(%q)", path)
		}

		got, err := source.ReadAll(r)
		require.NoError(t, err, "reading %q", path)
		require.Equal(t, want, got, "content of %q", path)
	}

	for _, path := range missing {
		ok, err := src.Exists(ctx, path)
		require.NoError(t, err, "Exists(%q)", path)
		require.False(t, ok, "Exists(%q)", path)

		_, err = src.Fetch(ctx, path)
		require.ErrorIs(t, err, source.ErrNotFound, "Fetch(%q)", path)
	}
}

// AssertConnectionInfoRoundTrips verifies that the connection info of the
// source can be used to construct an equivalent source via the registry.
func AssertConnectionInfoRoundTrips(ctx context.Context, t *testing.T, src source.Source, expected map[source.Path][]byte, missing []source.Path) {
	t.Helper()

	src2, err := source.NewSource(ctx, src.ConnectionInfo())
	require.NoError(t, err)

	VerifySource(ctx, t, src2, expected, missing)
	require.NoError(t, src2.Close(ctx))
}

// VerifyInvalidPathsRejected verifies that traversal-attempting raw paths do
// not parse, regardless of the backend the path would be looked up in.
func VerifyInvalidPathsRejected(t *testing.T, rawPaths ...string) {
	t.Helper()

	for _, raw := range rawPaths {
		_, err := source.ParsePath(raw)
		if !errors.Is(err, source.ErrInvalidPath) {
			t.Errorf("ParsePath(%q) = %v, want ErrInvalidPath", raw, err)
		}
	}
}
