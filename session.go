package securecomm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	logp "github.com/charmbracelet/log"
	"golang.org/x/exp/slices"
)

const (
	DefaultBaseURL  = "https://hkc.api.securecomm.cloud"
	DefaultLogCount = 10

	userAgent   = "okhttp/4.9.2"
	logPageSize = 5
)

// Logger is satisfied by *log.Logger from github.com/charmbracelet/log.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

type Option func(s *Session)

func WithBaseURL(u string) Option {
	return func(s *Session) { s.baseURL = strings.TrimRight(u, "/") }
}

func WithRevision(r Revision) Option {
	return func(s *Session) { s.rev = r }
}

func WithTransport(t Transport) Option {
	return func(s *Session) { s.transport = t }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *Session) { s.retry = p }
}

func WithLogger(l Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithHardwareID pins the client hardware id instead of generating one.
func WithHardwareID(id string) Option {
	return func(s *Session) { s.hardwareID = id }
}

// Session is an authenticated session against one panel. It is not safe
// for concurrent use.
type Session struct {
	creds     Credentials
	baseURL   string
	rev       Revision
	transport Transport
	retry     RetryPolicy
	log       Logger

	hardwareID        string
	deviceID          flexID
	secureCommAddress string
}

// New creates a session and runs the bootstrap of its api revision.
func New(ctx context.Context, creds Credentials, opts ...Option) (*Session, error) {
	s := &Session{
		creds:     creds,
		baseURL:   DefaultBaseURL,
		rev:       AppV3,
		transport: NewHTTPTransport(DefaultTimeout),
		retry:     DefaultRetryPolicy(),
		log: logp.NewWithOptions(os.Stderr, logp.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Prefix:          "securecomm",
		}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log.Info("initializing session", "panel", creds.PanelID, "revision", s.rev.Name())
	if err := s.rev.bootstrap(ctx, s); err != nil {
		return nil, fmt.Errorf("could not initialize session: %w", err)
	}
	return s, nil
}

func (s *Session) Revision() Revision        { return s.rev }
func (s *Session) HardwareID() string        { return s.hardwareID }
func (s *Session) DeviceID() string          { return s.deviceID.String() }
func (s *Session) SecureCommAddress() string { return s.secureCommAddress }

func (s *Session) Status(ctx context.Context) (Status, error) {
	req := s.rev.status(s)
	b, err := s.postRaw(ctx, req.path, req.body)
	if err != nil {
		return Status{}, fmt.Errorf("could not gather status: %w", err)
	}
	return parseStatus(req.path, b)
}

// CheckLogin reports whether the credentials are accepted by the panel.
func (s *Session) CheckLogin(ctx context.Context) (bool, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := status.Fields["userOptions"]; ok {
		return true, nil
	}
	if status.Success != nil && !*status.Success {
		return false, nil
	}
	return false, ErrUnexpectedResponse
}

func (s *Session) Arm(ctx context.Context, mode ArmMode) error {
	switch mode {
	case ArmPartsetA, ArmPartsetB, ArmFullset:
	default:
		return fmt.Errorf("invalid arm mode: %d", mode)
	}
	s.log.Debug("arm", "mode", mode)
	if err := s.arming(ctx, int(mode)); err != nil {
		return fmt.Errorf("could not arm %v: %w", mode, err)
	}
	return nil
}

func (s *Session) Disarm(ctx context.Context) error {
	s.log.Debug("disarm")
	if err := s.arming(ctx, cmdDisarm); err != nil {
		return fmt.Errorf("could not disarm: %w", err)
	}
	return nil
}

func (s *Session) arming(ctx context.Context, command int) error {
	if err := s.rev.prepareArming(ctx, s); err != nil {
		return err
	}
	req := s.rev.arming(s, command)
	var resp struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}
	if err := s.post(ctx, req.path, req.body, &resp); err != nil {
		return err
	}
	if resp.Success != nil && !*resp.Success {
		return fmt.Errorf("%w: %s", ErrCommandRejected, resp.Message)
	}
	return nil
}

// Keypad returns the remote keypad display and leds.
func (s *Session) Keypad(ctx context.Context) (Keypad, error) {
	return s.PressKeys(ctx, "")
}

// PressKeys sends key presses to the remote keypad and returns its state.
// A hardware id in the response is kept if the session has none yet.
func (s *Session) PressKeys(ctx context.Context, keys string) (Keypad, error) {
	req := s.rev.keypad(s, keys)
	var kp Keypad
	if err := s.post(ctx, req.path, req.body, &kp); err != nil {
		return Keypad{}, fmt.Errorf("could not get keypad: %w", err)
	}
	if s.hardwareID == "" && kp.HardwareID != "" {
		s.hardwareID = kp.HardwareID
		s.log.Debug("obtained hardware id", "hardware_id", s.hardwareID)
	}
	return kp, nil
}

func (s *Session) discoverHardwareID(ctx context.Context) error {
	kp, err := s.Keypad(ctx)
	if err != nil {
		return fmt.Errorf("could not get hardware id: %w", err)
	}
	if kp.HardwareID == "" {
		return &ProtocolError{Path: s.rev.keypad(s, "").path, Field: "hardwareId"}
	}
	s.hardwareID = kp.HardwareID
	return nil
}

// LatestEventID returns the id of the most recent log entry. The boolean is
// false when the panel reports no id.
func (s *Session) LatestEventID(ctx context.Context) (int, bool, error) {
	req := s.rev.latestEvent(s)
	var resp struct {
		EventID *int `json:"eventId"`
	}
	if err := s.post(ctx, req.path, req.body, &resp); err != nil {
		return 0, false, fmt.Errorf("could not get latest event id: %w", err)
	}
	if resp.EventID == nil {
		return 0, false, nil
	}
	return *resp.EventID, true, nil
}

// FetchLogs returns the n most recent log entries, newest first. Pages of 5
// entries are requested walking back from the latest event id, so fewer
// than n entries are returned only when the log is exhausted.
func (s *Session) FetchLogs(ctx context.Context, n int) ([]LogEntry, error) {
	logs := []LogEntry{}
	if n <= 0 {
		return logs, nil
	}

	cursor, ok, err := s.LatestEventID(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.log.Debug("no latest event id")
		return logs, nil
	}

	seen := map[int]struct{}{}
	for len(logs) < n && cursor >= 1 {
		start := cursor - (logPageSize - 1)
		req := s.rev.logs(s, start)
		var page []LogEntry
		if err := s.post(ctx, req.path, req.body, &page); err != nil {
			return nil, fmt.Errorf("could not fetch logs from %d: %w", start, err)
		}
		if len(page) == 0 {
			s.log.Debug("empty log page", "from", start, "to", cursor)
			break
		}
		for _, entry := range page {
			if entry.EventID > cursor {
				continue
			}
			if _, ok := seen[entry.EventID]; ok {
				continue
			}
			seen[entry.EventID] = struct{}{}
			logs = append(logs, entry)
		}
		cursor -= logPageSize
	}

	slices.SortStableFunc(logs, func(a, b LogEntry) int {
		return b.EventID - a.EventID
	})
	if len(logs) > n {
		logs = logs[:n]
	}
	return logs, nil
}

// ListInputs walks all input pages until the panel reports no more inputs.
func (s *Session) ListInputs(ctx context.Context) ([]Input, error) {
	inputs := []Input{}
	first := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req := s.rev.inputs(s, first)
		var page inputPage
		if err := s.post(ctx, req.path, req.body, &page); err != nil {
			return nil, fmt.Errorf("could not list inputs from %d: %w", first, err)
		}
		inputs = append(inputs, page.Inputs...)
		if !page.MoreInputs || len(page.Inputs) == 0 {
			return inputs, nil
		}
		first = page.Inputs[len(page.Inputs)-1].Input + 1
	}
}

// RegisterMobile registers a mobile app for push notifications.
func (s *Session) RegisterMobile(ctx context.Context, r Registration) (json.RawMessage, error) {
	if r.AppVersion == "" {
		r.AppVersion = "1.0.2"
	}
	req, ok := s.rev.register(s, r)
	if !ok {
		return nil, fmt.Errorf("could not register mobile: %w", ErrUnsupported)
	}
	var resp json.RawMessage
	if err := s.post(ctx, req.path, req.body, &resp); err != nil {
		return nil, fmt.Errorf("could not register mobile: %w", err)
	}
	return resp, nil
}

func (s *Session) header() http.Header {
	h := http.Header{}
	if u, err := url.Parse(s.baseURL); err == nil && u.Host != "" {
		h.Set("Host", u.Host)
	}
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Content-Type", "application/json;charset=utf-8")
	h.Set("User-Agent", userAgent)
	return h
}

func (s *Session) post(ctx context.Context, path string, body, out any) error {
	b, err := s.postRaw(ctx, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &ProtocolError{Path: path, Err: err}
	}
	return nil
}

func (s *Session) postRaw(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}

	var resp []byte
	s.log.Debug("request", "path", path)
	if err := s.retry.Do(ctx, func() error {
		resp, err = s.transport.Post(ctx, s.baseURL+path, s.header(), payload)
		return err
	}, func(err error, wait time.Duration) {
		s.log.Warn("request failed, retrying", "path", path, "wait", wait, "err", err)
	}); err != nil {
		s.log.Error("request failed", "path", path, "err", err)
		var rerr *RequestError
		if errors.As(err, &rerr) {
			return nil, err
		}
		return nil, &RequestError{Path: path, Err: err}
	}
	return resp, nil
}
