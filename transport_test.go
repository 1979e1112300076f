package securecomm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/ok":
			require.Equal(t, "hkc.api.securecomm.cloud", r.Host)
			require.Equal(t, "application/json;charset=utf-8", r.Header.Get("Content-Type"))
			_, _ = w.Write(b)
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "forbidden\n")
		}
	}))
	t.Cleanup(srv.Close)

	tr := NewHTTPTransport(time.Second)
	header := http.Header{}
	header.Set("Host", "hkc.api.securecomm.cloud")
	header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := tr.Post(context.Background(), srv.URL+"/ok", header, []byte(`{"a":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(resp))

	_, err = tr.Post(context.Background(), srv.URL+"/nope", header, []byte(`{}`))
	var rerr *RequestError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, http.StatusForbidden, rerr.StatusCode)
	require.Contains(t, rerr.Error(), "forbidden")

	t.Run("connection refused", func(t *testing.T) {
		_, err := tr.Post(context.Background(), "http://127.0.0.1:1/ok", header, nil)
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		require.Zero(t, rerr.StatusCode)
	})
}

func TestHTTPTransportReadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		switch r.URL.Path {
		case "/stall":
			_, _ = io.WriteString(w, `{"display":`)
			flusher.Flush()
			select {
			case <-release:
			case <-r.Context().Done():
			}
		case "/slow-headers":
			select {
			case <-release:
			case <-r.Context().Done():
			}
		case "/trickle":
			for _, chunk := range []string{`{"a"`, `:`, `[1,`, `2]`, `}`} {
				_, _ = io.WriteString(w, chunk)
				flusher.Flush()
				time.Sleep(50 * time.Millisecond)
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	tr := NewHTTPTransport(200 * time.Millisecond)

	t.Run("body stalls", func(t *testing.T) {
		start := time.Now()
		_, err := tr.Post(context.Background(), srv.URL+"/stall", nil, nil)
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		require.Equal(t, http.StatusOK, rerr.StatusCode)
		require.True(t, errors.Is(err, context.DeadlineExceeded))
		require.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("headers never come", func(t *testing.T) {
		_, err := tr.Post(context.Background(), srv.URL+"/slow-headers", nil, nil)
		var rerr *RequestError
		require.ErrorAs(t, err, &rerr)
		require.Zero(t, rerr.StatusCode)
	})

	t.Run("slow but steady body", func(t *testing.T) {
		resp, err := tr.Post(context.Background(), srv.URL+"/trickle", nil, nil)
		require.NoError(t, err)
		require.JSONEq(t, `{"a":[1,2]}`, string(resp))
	})
}
