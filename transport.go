package securecomm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/caarlos0/sync/cio"
)

// DefaultTimeout is how long the default transport waits for response
// headers, and for each chunk of the response body.
const DefaultTimeout = 30 * time.Second

const maxResponseSize = 4 << 20

// Transport posts a JSON body to url and returns the raw response body.
// Implementations must return a *RequestError for connection failures and
// non-2xx responses.
type Transport interface {
	Post(ctx context.Context, url string, header http.Header, body []byte) ([]byte, error)
}

// HTTPTransport is the net/http backed Transport. There is no limit on the
// whole exchange: a response that keeps streaming is read until it ends,
// but a server that stops sending for longer than the timeout fails the
// request. Callers bound the total with their context.
type HTTPTransport struct {
	client      *http.Client
	readTimeout time.Duration
}

func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.ResponseHeaderTimeout = timeout
	return &HTTPTransport{
		client:      &http.Client{Transport: tr},
		readTimeout: timeout,
	}
}

func (t *HTTPTransport) Post(ctx context.Context, url string, header http.Header, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	// net/http ignores the Host header map entry.
	if host := header.Get("Host"); host != "" {
		req.Host = host
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &RequestError{Path: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(cio.TimeoutReader(io.LimitReader(resp.Body, maxResponseSize), t.readTimeout))
	if err != nil {
		return nil, &RequestError{Path: url, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{
			Path:       url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", bytes.TrimSpace(respBody)),
		}
	}
	return respBody, nil
}
