package check

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultFetchTimeout   = 5 * time.Second
	maxFetchResponseBytes = 8 << 20
)

// fetcher retrieves a remote document for the network-backed probes.
// Supports http(s) with optional basic auth, and file URLs so fixtures
// and local status exports work without a server.
type fetcher struct {
	url      string
	timeout  time.Duration
	username string
	password string
	accept   string
}

// newFetcher validates the shared network options (url, timeout,
// username, password) of a probe table.
func newFetcher(opts Options) (*fetcher, error) {
	rawURL, err := opts.RequiredString("url")
	if err != nil {
		return nil, err
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err).WithData(rawURL)
	}

	switch parsed.Scheme {
	case "http", "https", "file":
	default:
		return nil, errFactory.WithMessage(ErrInvalidOptions, "unsupported url scheme").WithData(rawURL)
	}

	timeout, err := opts.Seconds("timeout", defaultFetchTimeout)
	if err != nil {
		return nil, err
	}

	username := opts.String("username", "")
	password := opts.String("password", "")
	if (username == "") != (password == "") {
		return nil, errFactory.WithMessage(ErrInvalidOptions, "username and password must be set together")
	}

	return &fetcher{
		url:      rawURL,
		timeout:  timeout,
		username: username,
		password: password,
	}, nil
}

// fetch retrieves the document. Failures are temporary: network targets
// come and go.
func (f *fetcher) fetch(ctx context.Context) ([]byte, error) {
	if strings.HasPrefix(f.url, "file://") {
		data, err := os.ReadFile(strings.TrimPrefix(f.url, "file://"))
		if err != nil {
			return nil, Temporary("unable to read "+f.url, err)
		}

		return data, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, f.url, http.NoBody)
	if err != nil {
		return nil, Temporary("unable to build request for "+f.url, err)
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}
	if f.accept != "" {
		req.Header.Set("Accept", f.accept)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, Temporary("unable to fetch "+f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Temporary(fmt.Sprintf("fetching %s returned status %d", f.url, resp.StatusCode), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchResponseBytes))
	if err != nil {
		return nil, Temporary("unable to read response from "+f.url, err)
	}

	return data, nil
}
