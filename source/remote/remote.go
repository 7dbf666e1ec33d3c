// Package remote implements a Source fetching content from a remote HTTP endpoint.
package remote

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/fsource/fsource/internal/iocopy"
	"github.com/fsource/fsource/internal/logging"
	"github.com/fsource/fsource/source"
)

var log = logging.Module("source/remote")

const remoteSourceType = "remote"

// Options defines options for the remote HTTP source.
type Options struct {
	// BaseURL is joined with the logical path to form the request URL.
	BaseURL string `json:"baseURL"`

	// Client is the HTTP client reused for all fetches. When nil,
	// http.DefaultClient is used. Timeouts are whatever the client is
	// configured with; the source adds none of its own.
	Client *http.Client `json:"-"`
}

type remoteSource struct {
	baseURL string
	client  *http.Client
}

func (s *remoteSource) Fetch(ctx context.Context, path source.Path) (source.Reader, error) {
	resp, err := s.get(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	return source.NewStreamReader(resp.Body, resp.ContentLength), nil
}

func (s *remoteSource) Exists(ctx context.Context, path source.Path) (bool, error) {
	resp, err := s.get(ctx, http.MethodHead, path)

	switch {
	case errors.Is(err, source.ErrNotFound):
		return false, nil

	case err != nil:
		return false, err

	case resp.StatusCode == http.StatusMethodNotAllowed:
		// the upstream does not support HEAD; treat any fetchable path as existing.
		drainAndClose(resp.Body)
		return s.fetchExists(ctx, path)

	default:
		drainAndClose(resp.Body)
		return true, nil
	}
}

func (s *remoteSource) fetchExists(ctx context.Context, path source.Path) (bool, error) {
	r, err := s.Fetch(ctx, path)

	switch {
	case errors.Is(err, source.ErrNotFound):
		return false, nil

	case err != nil:
		return false, err
	}

	r.Close() //nolint:errcheck

	return true, nil
}

func (s *remoteSource) get(ctx context.Context, method string, path source.Path) (*http.Response, error) {
	u := s.baseURL + "/" + string(path)

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create request for %v", u)
	}

	log(ctx).Debugw("remote request", "method", method, "url", u)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "error contacting %v", u)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drainAndClose(resp.Body)
		return nil, errors.Wrapf(source.ErrNotFound, "%v", u)

	case resp.StatusCode == http.StatusMethodNotAllowed && method == http.MethodHead:
		// let Exists() fall back to a full fetch.
		return resp, nil

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		drainAndClose(resp.Body)
		return nil, errors.Wrapf(source.ErrUpstream, "%v returned status %v", u, resp.Status)
	}

	return resp, nil
}

func (s *remoteSource) ConnectionInfo() source.ConnectionInfo {
	return source.ConnectionInfo{
		Type:   remoteSourceType,
		Config: &Options{BaseURL: s.baseURL},
	}
}

func (s *remoteSource) Close(ctx context.Context) error {
	s.client.CloseIdleConnections()

	return nil
}

func (s *remoteSource) DisplayName() string {
	return "Remote: " + s.baseURL
}

// drainAndClose discards the remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	iocopy.JustCopy(io.Discard, body) //nolint:errcheck
	body.Close()                      //nolint:errcheck
}

// New creates a new source fetching from the given base URL.
func New(ctx context.Context, opts *Options) (source.Source, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base URL %q", opts.BaseURL)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("invalid base URL %q: unsupported scheme", opts.BaseURL)
	}

	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	return &remoteSource{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		client:  client,
	}, nil
}

func init() {
	source.AddSupportedSource(
		remoteSourceType,
		func() interface{} { return &Options{} },
		func(ctx context.Context, o interface{}) (source.Source, error) {
			return New(ctx, o.(*Options)) //nolint:forcetypeassert
		})
}
