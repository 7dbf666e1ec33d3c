package sourcetesting

import (
	"context"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fsource/fsource/source"
)

// ConcurrentAccessOptions encapsulates parameters for VerifyConcurrentAccess.
type ConcurrentAccessOptions struct {
	Fetchers int
	Checkers int

	Iterations int
}

// VerifyConcurrentAccess hammers a source with concurrent Fetch and Exists
// calls to ensure they do not corrupt or block each other. The known map
// must describe entries the source serves; absent paths are probed as well.
func VerifyConcurrentAccess(t *testing.T, src source.Source, known map[source.Path][]byte, absent []source.Path, options ConcurrentAccessOptions) {
	t.Helper()

	var paths []source.Path
	for p := range known {
		paths = append(paths, p)
	}

	randomPath := func() source.Path {
		return paths[rand.Intn(len(paths))]
	}

	eg, ctx := errgroup.WithContext(context.Background())

	for i := 0; i < options.Fetchers; i++ {
		eg.Go(func() error {
			for j := 0; j < options.Iterations; j++ {
				path := randomPath()

				data, err := source.FetchAll(ctx, src, path)
				if err != nil {
					return errors.Wrapf(err, "Fetch(%q)", path)
				}

				if got, want := string(data), string(known[path]); got != want {
					return errors.Errorf("Fetch(%q) returned invalid data %q, want %q", path, got, want)
				}

				if len(absent) > 0 {
					missing := absent[rand.Intn(len(absent))]
					if _, err := src.Fetch(ctx, missing); !errors.Is(err, source.ErrNotFound) {
						return errors.Errorf("Fetch(%q) = %v, want ErrNotFound", missing, err)
					}
				}
			}

			return nil
		})
	}

	for i := 0; i < options.Checkers; i++ {
		eg.Go(func() error {
			for j := 0; j < options.Iterations; j++ {
				path := randomPath()

				ok, err := src.Exists(ctx, path)
				if err != nil {
					return errors.Wrapf(err, "Exists(%q)", path)
				}

				if !ok {
					return errors.Errorf("Exists(%q) = false, want true", path)
				}
			}

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		t.Errorf("concurrent access error: %v", err)
	}
}
