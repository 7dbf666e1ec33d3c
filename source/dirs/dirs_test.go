package dirs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsource/fsource/internal/sourcetesting"
	"github.com/fsource/fsource/internal/testlogging"
	"github.com/fsource/fsource/source"
	"github.com/fsource/fsource/source/dirs"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	fullPath := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
}

func TestDirsSource(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")
	writeFile(t, root, "a/b.txt", "hello")

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{root}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	expected := map[source.Path][]byte{
		"index.html": []byte("<html></html>"),
		"a/b.txt":    []byte("hello"),
	}

	sourcetesting.VerifySource(ctx, t, src, expected, []source.Path{"a/c.txt", "missing.html"})
	sourcetesting.AssertConnectionInfoRoundTrips(ctx, t, src, expected, []source.Path{"a/c.txt"})
}

func TestDirsSourceFirstMatchWins(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	r1 := t.TempDir()
	r2 := t.TempDir()

	writeFile(t, r1, "x.txt", "from r1")
	writeFile(t, r2, "x.txt", "from r2")
	writeFile(t, r2, "only-r2.txt", "r2 only")

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{r1, r2}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	data, err := source.FetchAll(ctx, src, "x.txt")
	require.NoError(t, err)
	require.Equal(t, "from r1", string(data))

	// falls through to the second root when the first has no match.
	data, err = source.FetchAll(ctx, src, "only-r2.txt")
	require.NoError(t, err)
	require.Equal(t, "r2 only", string(data))
}

func TestDirsSourceDirectoryIsNotAFile(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	root := t.TempDir()
	writeFile(t, root, "a/b.txt", "hello")

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{root}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	_, err = src.Fetch(ctx, "a")
	require.ErrorIs(t, err, source.ErrNotFound)

	ok, err := src.Exists(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDirsSourcePathThroughFile(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	// index.html is a regular file, so any path descending through it is
	// absent, not an I/O error.
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{root}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	_, err = src.Fetch(ctx, "index.html/extra.txt")
	require.ErrorIs(t, err, source.ErrNotFound)

	ok, err := src.Exists(ctx, "index.html/extra.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDirsSourcePathThroughFileFallsThroughToNextRoot(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	r1 := t.TempDir()
	r2 := t.TempDir()

	// in the first root "docs" is a regular file; the second root has the
	// actual docs/guide.txt, which must still win.
	writeFile(t, r1, "docs", "not a directory")
	writeFile(t, r2, "docs/guide.txt", "the guide")

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{r1, r2}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	data, err := source.FetchAll(ctx, src, "docs/guide.txt")
	require.NoError(t, err)
	require.Equal(t, "the guide", string(data))

	ok, err := src.Exists(ctx, "docs/guide.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDirsSourceRequiresSearchPath(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	_, err := dirs.New(ctx, &dirs.Options{})
	require.Error(t, err)
}

func TestDirsSourceConcurrency(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	root := t.TempDir()
	known := map[source.Path][]byte{
		"a.txt":     []byte("a.txt"),
		"b/c.txt":   []byte("b/c.txt"),
		"d/e/f.css": []byte("d/e/f.css"),
	}

	for p, data := range known {
		writeFile(t, root, string(p), string(data))
	}

	src, err := dirs.New(ctx, &dirs.Options{SearchPaths: []string{root}})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	sourcetesting.VerifyConcurrentAccess(t, src, known, []source.Path{"absent.txt"}, sourcetesting.ConcurrentAccessOptions{
		Fetchers:   4,
		Checkers:   4,
		Iterations: 50,
	})
}
