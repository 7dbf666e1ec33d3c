// Package fileserver translates HTTP requests into Source queries and back
// into HTTP responses.
package fileserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fsource/fsource/internal/iocopy"
	"github.com/fsource/fsource/internal/logging"
	"github.com/fsource/fsource/source"
)

var log = logging.Module("fileserver")

// IndexFileName is the logical path served when the request path is empty.
const IndexFileName = "index.html"

// Handler serves files from a Source. It accepts GET and HEAD requests only.
type Handler struct {
	src source.Source
}

// New creates a Handler serving files from the given source.
func New(src source.Source) *Handler {
	return &Handler{src}
}

// RegisterRoutes binds the handler for src to a catch-all route under the
// given URL prefix, so that any sub-path is forwarded to the source resolver.
func RegisterRoutes(m *mux.Router, prefix string, src source.Source) {
	m.Handle(strings.TrimSuffix(prefix, "/")+"/{path:.*}", New(src)).
		Methods(http.MethodGet, http.MethodHead)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rawPath, ok := mux.Vars(r)["path"]
	if !ok {
		rawPath = r.URL.Path
	}

	h.serveFile(w, r, rawPath)
}

func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, rawPath string) {
	ctx := r.Context()

	path, err := source.ParsePath(rawPath)
	if err != nil {
		http.Error(w, "invalid path: "+rawPath, http.StatusBadRequest)
		return
	}

	if path == "" {
		path = IndexFileName
	}

	rd, err := h.src.Fetch(ctx, path)
	if err != nil {
		h.serveError(w, r, path, err)
		return
	}

	defer rd.Close() //nolint:errcheck

	w.Header().Set("Content-Type", contentType(path))

	if l := rd.Length(); l >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(l, 10))
	}

	if r.Method == http.MethodHead {
		return
	}

	if err := iocopy.JustCopy(w, rd); err != nil {
		// headers are already out, all we can do is log.
		log(ctx).Warnf("error sending %q: %v", path, err)
	}
}

func (h *Handler) serveError(w http.ResponseWriter, r *http.Request, path source.Path, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, source.ErrNotFound):
		http.Error(w, "not found: "+string(path), http.StatusNotFound)

	case errors.Is(err, source.ErrUpstream):
		log(ctx).Warnf("upstream failure for %q: %v", path, err)
		http.Error(w, "bad gateway: "+string(path), http.StatusBadGateway)

	default:
		log(ctx).Errorf("error fetching %q: %v", path, err)
		http.Error(w, "internal server error: "+string(path), http.StatusInternalServerError)
	}
}
