// Command fsource-server serves files from a single configured data source over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fsource/fsource/fileserver"
	"github.com/fsource/fsource/internal/logging"
	"github.com/fsource/fsource/source"
	"github.com/fsource/fsource/source/dirs"
	"github.com/fsource/fsource/source/memmap"
	"github.com/fsource/fsource/source/remote"
	"github.com/fsource/fsource/source/tarball"
)

var (
	app = kingpin.New("fsource-server", "Serves files from a unified data source over HTTP.")

	listenAddr = app.Flag("listen", "Address to listen on.").Default("127.0.0.1:8000").String()
	mountPath  = app.Flag("mount", "URL prefix under which files are served.").Default("/files").String()

	dirFlags      = app.Flag("dir", "Directory search root (repeatable, searched in order).").Strings()
	tarFlag       = app.Flag("tar", "Path to a tar archive to serve.").String()
	tarCompressed = app.Flag("tar-compressed", "The tar archive is gzip-compressed.").Bool()
	remoteURL     = app.Flag("remote-url", "Base URL of a remote HTTP source.").String()
	memEntries    = app.Flag("memory", "In-memory entry as path=content (repeatable).").Strings()

	shutdownGracePeriod = app.Flag("shutdown-grace-period", "Time to wait for active requests on shutdown.").Default("5s").Duration()
)

func buildSource(ctx context.Context) (source.Source, error) {
	var infos []source.ConnectionInfo

	if len(*dirFlags) > 0 {
		infos = append(infos, source.ConnectionInfo{
			Type:   "dirs",
			Config: &dirs.Options{SearchPaths: *dirFlags},
		})
	}

	if *tarFlag != "" {
		infos = append(infos, source.ConnectionInfo{
			Type:   "tarball",
			Config: &tarball.Options{Path: *tarFlag, Compressed: *tarCompressed},
		})
	}

	if *remoteURL != "" {
		infos = append(infos, source.ConnectionInfo{
			Type:   "remote",
			Config: &remote.Options{BaseURL: *remoteURL},
		})
	}

	if len(*memEntries) > 0 {
		entries := map[string][]byte{}

		for _, e := range *memEntries {
			k, v, ok := strings.Cut(e, "=")
			if !ok {
				return nil, errors.Errorf("invalid --memory entry %q, expected path=content", e)
			}

			entries[k] = []byte(v)
		}

		infos = append(infos, source.ConnectionInfo{
			Type:   "memmap",
			Config: &memmap.Options{Entries: entries},
		})
	}

	if len(infos) != 1 {
		return nil, errors.New("exactly one of --dir, --tar, --remote-url or --memory must be provided")
	}

	return source.NewSource(ctx, infos[0])
}

func run() error {
	zl, err := zap.NewProduction()
	if err != nil {
		return errors.Wrap(err, "unable to set up logger")
	}

	defer zl.Sync() //nolint:errcheck

	sugar := zl.Sugar()

	ctx := logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return sugar.Named(module)
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := buildSource(ctx)
	if err != nil {
		return err
	}

	defer src.Close(ctx) //nolint:errcheck

	m := mux.NewRouter()
	fileserver.RegisterRoutes(m, *mountPath, src)

	server := &http.Server{
		Addr:              *listenAddr,
		Handler:           handlers.CombinedLoggingHandler(os.Stderr, m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errch := make(chan error, 1)

	go func() {
		errch <- server.ListenAndServe()
	}()

	sugar.Infow("server started", "addr", *listenAddr, "mount", *mountPath, "source", src.DisplayName())

	select {
	case err := <-errch:
		return errors.Wrap(err, "server failed")

	case <-ctx.Done():
	}

	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), *shutdownGracePeriod)
	defer cancel()

	return errors.Wrap(server.Shutdown(shutdownCtx), "shutdown")
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(); err != nil {
		app.Fatalf("%v", err)
	}
}
