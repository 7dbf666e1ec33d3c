package tarball_test

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/fsource/fsource/internal/sourcetesting"
	"github.com/fsource/fsource/internal/testlogging"
	"github.com/fsource/fsource/source"
	"github.com/fsource/fsource/source/tarball"
)

var testEntries = map[source.Path][]byte{
	"index.html":    []byte("<html>hi</html>"),
	"style.css":     []byte("body {}"),
	"img/logo.png":  []byte{0x89, 0x50, 0x4e, 0x47},
	"docs/read.txt": []byte("read me"),
}

func buildTar(t *testing.T, entries map[source.Path][]byte, compressed bool) []byte {
	t.Helper()

	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "img/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
	}))

	for path, data := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     string(path),
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(data)),
		}))

		_, err := tw.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	if !compressed {
		return buf.Bytes()
	}

	var zbuf bytes.Buffer

	gz := gzip.NewWriter(&zbuf)
	_, err := gz.Write(buf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	return zbuf.Bytes()
}

func TestTarballSourceInMemory(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	for _, compressed := range []bool{false, true} {
		src, err := tarball.New(ctx, &tarball.Options{
			Data:       buildTar(t, testEntries, compressed),
			Compressed: compressed,
		})
		require.NoError(t, err)

		sourcetesting.VerifySource(ctx, t, src, testEntries, []source.Path{"missing.txt", "img", "img/"})
		require.NoError(t, src.Close(ctx))
	}
}

func TestTarballSourceFromFile(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	for _, compressed := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "archive.tar")
		require.NoError(t, os.WriteFile(path, buildTar(t, testEntries, compressed), 0o644))

		src, err := tarball.New(ctx, &tarball.Options{
			Path:       path,
			Compressed: compressed,
		})
		require.NoError(t, err)

		sourcetesting.VerifySource(ctx, t, src, testEntries, []source.Path{"missing.txt"})
		require.NoError(t, src.Close(ctx))
	}
}

func TestTarballSourceEveryListedEntryIsFetchable(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	data := buildTar(t, testEntries, false)

	// enumerate entries using the container's own listing.
	tr := tar.NewReader(bytes.NewReader(data))

	src, err := tarball.New(ctx, &tarball.Options{Data: data})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		path, perr := source.ParsePath(hdr.Name)
		require.NoError(t, perr)

		got, ferr := source.FetchAll(ctx, src, path)
		require.NoError(t, ferr, "entry %q", hdr.Name)
		require.Equal(t, testEntries[path], got)
	}
}

func TestTarballSourceCorrupt(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	corrupt := []byte("this is not a tar archive at all, but it is long enough to look like one")

	src, err := tarball.New(ctx, &tarball.Options{Data: corrupt})
	require.NoError(t, err)

	_, err = src.Fetch(ctx, "anything.txt")
	require.ErrorIs(t, err, source.ErrDecode)

	// a compressed source with a non-gzip payload fails the same way.
	src2, err := tarball.New(ctx, &tarball.Options{Data: corrupt, Compressed: true})
	require.NoError(t, err)

	_, err = src2.Fetch(ctx, "anything.txt")
	require.ErrorIs(t, err, source.ErrDecode)
}

func TestTarballSourceDuplicateEntryFirstWins(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	var buf bytes.Buffer

	tw := tar.NewWriter(&buf)

	for _, content := range []string{"first", "second"} {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     "dup.txt",
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(content)),
		}))

		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())

	// indexed and scanned lookups must agree on which duplicate is served.
	memSrc, err := tarball.New(ctx, &tarball.Options{Data: buf.Bytes()})
	require.NoError(t, err)

	defer memSrc.Close(ctx) //nolint:errcheck

	path := filepath.Join(t.TempDir(), "dup.tar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	fileSrc, err := tarball.New(ctx, &tarball.Options{Path: path})
	require.NoError(t, err)

	defer fileSrc.Close(ctx) //nolint:errcheck

	for _, src := range []source.Source{memSrc, fileSrc} {
		data, err := source.FetchAll(ctx, src, "dup.txt")
		require.NoError(t, err)
		require.Equal(t, "first", string(data))
	}
}

func TestTarballSourceOptionsValidation(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	_, err := tarball.New(ctx, &tarball.Options{})
	require.Error(t, err)

	_, err = tarball.New(ctx, &tarball.Options{Path: "/tmp/a.tar", Data: []byte{1}})
	require.Error(t, err)
}

func TestTarballSourceConcurrency(t *testing.T) {
	t.Parallel()

	ctx := testlogging.Context(t)

	// concurrent access triggers the one-time lazy index build.
	src, err := tarball.New(ctx, &tarball.Options{Data: buildTar(t, testEntries, false)})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	sourcetesting.VerifyConcurrentAccess(t, src, testEntries, []source.Path{"absent.txt"}, sourcetesting.ConcurrentAccessOptions{
		Fetchers:   8,
		Checkers:   8,
		Iterations: 100,
	})
}
