package securecomm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

type call struct {
	Path string
	Body map[string]any
}

// fakePanel mimics the SecureComm api. Handlers receive the decoded request
// body and return the value to be encoded as the response.
type fakePanel struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(body map[string]any) (int, any)
}

func newFakePanel(t *testing.T) *fakePanel {
	t.Helper()
	f := &fakePanel{
		t:        t,
		handlers: map[string]func(map[string]any) (int, any){},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePanel) handle(path string, fn func(body map[string]any) (int, any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = fn
}

func (f *fakePanel) reply(path string, v any) {
	f.handle(path, func(map[string]any) (int, any) { return http.StatusOK, v })
}

func (f *fakePanel) serve(w http.ResponseWriter, r *http.Request) {
	require.Equal(f.t, http.MethodPost, r.Method)
	require.Equal(f.t, userAgent, r.Header.Get("User-Agent"))
	require.Equal(f.t, "application/json;charset=utf-8", r.Header.Get("Content-Type"))

	b, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)
	var body map[string]any
	require.NoError(f.t, json.Unmarshal(b, &body))

	f.mu.Lock()
	f.calls = append(f.calls, call{Path: r.URL.Path, Body: body})
	fn, ok := f.handlers[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	code, resp := fn(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if raw, ok := resp.(string); ok {
		_, _ = io.WriteString(w, raw)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakePanel) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var paths []string
	for _, c := range f.calls {
		paths = append(paths, c.Path)
	}
	return paths
}

func (f *fakePanel) lastCall(path string) call {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Path == path {
			return f.calls[i]
		}
	}
	f.t.Fatalf("no call to %s", path)
	return call{}
}

func (f *fakePanel) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// withLogs serves a log of total entries, ids 1..total, in pages of 5
// starting at the requested event id.
func (f *fakePanel) withLogs(prefix, field string, total int) {
	if total > 0 {
		f.reply(prefix+"Log", map[string]any{"eventId": total})
	} else {
		f.reply(prefix+"Log", map[string]any{})
	}
	f.handle(prefix+"Logs", func(body map[string]any) (int, any) {
		start := int(body[field].(float64))
		logs := []LogEntry{}
		for id := start + logPageSize - 1; id >= start; id-- {
			if id < 1 || id > total {
				continue
			}
			logs = append(logs, LogEntry{EventID: id, Message: "event"})
		}
		return http.StatusOK, logs
	})
}

func (f *fakePanel) withAppV3Bootstrap() {
	f.reply("/AppV3/App/GetDeviceId", map[string]any{"deviceId": 4242})
	f.reply("/AppV3/Device/Status", map[string]any{
		"secureCommAddress": "sc-01",
		"userOptions":       map[string]any{"canArm": true},
		"blocks": []map[string]any{
			{"armState": 0, "isEnabled": true},
			{"armState": 0, "isEnabled": false},
		},
	})
}

func testOptions(f *fakePanel, opts ...Option) []Option {
	return append([]Option{
		WithBaseURL(f.srv.URL),
		WithRetryPolicy(NoRetry()),
		WithLogger(log.New(io.Discard)),
	}, opts...)
}

var testCreds = Credentials{
	PanelID:  100000,
	Password: "site-password",
	UserCode: 9999,
}
