package source_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fsource/fsource/internal/testlogging"
	"github.com/fsource/fsource/source"
	"github.com/fsource/fsource/source/memmap"

	// register the remaining backends.
	_ "github.com/fsource/fsource/source/dirs"
	_ "github.com/fsource/fsource/source/remote"
	_ "github.com/fsource/fsource/source/tarball"
)

func TestNewSourceUnknownType(t *testing.T) {
	ctx := testlogging.Context(t)

	_, err := source.NewSource(ctx, source.ConnectionInfo{Type: "no-such-source"})
	require.Error(t, err)
}

func TestNewSourceByType(t *testing.T) {
	ctx := testlogging.Context(t)

	src, err := source.NewSource(ctx, source.ConnectionInfo{
		Type:   "memmap",
		Config: &memmap.Options{Entries: map[string][]byte{"a.txt": []byte("hello")}},
	})
	require.NoError(t, err)

	defer src.Close(ctx) //nolint:errcheck

	data, err := source.FetchAll(ctx, src, "a.txt")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestSupportedTypes(t *testing.T) {
	types := source.SupportedTypes()

	for _, want := range []string{"dirs", "tarball", "memmap", "remote"} {
		require.Contains(t, types, want)
		require.NotNil(t, source.DefaultConfig(want))
	}

	require.Nil(t, source.DefaultConfig("no-such-source"))
}
