package securecomm

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Revision is one of the incompatible SecureComm endpoint contracts. Use
// Legacy, V2 or AppV3.
type Revision interface {
	Name() string

	bootstrap(ctx context.Context, s *Session) error
	prepareArming(ctx context.Context, s *Session) error

	status(s *Session) request
	arming(s *Session, command int) request
	keypad(s *Session, keys string) request
	latestEvent(s *Session) request
	logs(s *Session, startEventID int) request
	inputs(s *Session, firstInput int) request
	register(s *Session, r Registration) (request, bool)
}

type request struct {
	path string
	body map[string]any
}

var (
	Legacy Revision = legacy{}
	V2     Revision = v2{}
	AppV3  Revision = appV3{}
)

// ParseRevision parses legacy, v2 or appv3.
func ParseRevision(s string) (Revision, error) {
	for _, r := range []Revision{Legacy, V2, AppV3} {
		if strings.EqualFold(r.Name(), s) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("invalid api revision: %q", s)
}

// legacy has no bootstrap. The hardware id comes from the keypad response
// and is only needed to arm or disarm.
type legacy struct{}

func (legacy) Name() string { return "legacy" }

func (legacy) bootstrap(context.Context, *Session) error { return nil }

func (legacy) prepareArming(ctx context.Context, s *Session) error {
	if s.hardwareID != "" {
		return nil
	}
	return s.discoverHardwareID(ctx)
}

func (legacy) base(s *Session) map[string]any {
	return map[string]any{
		"panelId":       s.creds.PanelID,
		"panelPassword": s.creds.Password,
		"userCode":      s.creds.UserCode,
	}
}

func (r legacy) status(s *Session) request {
	return request{"/Panel/Status", r.base(s)}
}

func (r legacy) arming(s *Session, command int) request {
	body := r.base(s)
	body["hardwareId"] = s.hardwareID
	body["command"] = command
	body["block"] = 0
	body["inhibit"] = false
	return request{"/Panel/Arming", body}
}

func (r legacy) keypad(s *Session, keys string) request {
	body := r.base(s)
	body["keys"] = keys
	return request{"/Panel/RemoteKeypad", body}
}

func (r legacy) latestEvent(s *Session) request {
	return request{"/Panel/Log", r.base(s)}
}

func (r legacy) logs(s *Session, start int) request {
	body := r.base(s)
	body["panelEventId"] = start
	return request{"/Panel/Logs", body}
}

func (r legacy) inputs(s *Session, first int) request {
	body := r.base(s)
	body["firstInput"] = first
	return request{"/Panel/Inputs", body}
}

func (legacy) register(*Session, Registration) (request, bool) {
	return request{}, false
}

// v2 discovers the secure comm routing address with a status call, then
// fetches the hardware id from the keypad. Every request carries the
// routing address.
type v2 struct{}

func (v2) Name() string { return "v2" }

func (v2) bootstrap(ctx context.Context, s *Session) error {
	status, err := s.Status(ctx)
	if err != nil {
		return fmt.Errorf("could not get secure comm address: %w", err)
	}
	if status.SecureCommAddress != "" {
		s.secureCommAddress = status.SecureCommAddress
	}
	return s.discoverHardwareID(ctx)
}

func (v2) prepareArming(context.Context, *Session) error { return nil }

func (v2) base(s *Session) map[string]any {
	return map[string]any{
		"panelId":           s.creds.PanelID,
		"panelPassword":     s.creds.Password,
		"userCode":          s.creds.UserCode,
		"secureCommAddress": s.secureCommAddress,
	}
}

func (r v2) status(s *Session) request {
	return request{"/v2/Panel/Status", r.base(s)}
}

func (r v2) arming(s *Session, command int) request {
	body := r.base(s)
	body["hardwareId"] = s.hardwareID
	body["command"] = command
	body["block"] = 0
	body["inhibit"] = false
	return request{"/v2/Panel/Arming", body}
}

func (r v2) keypad(s *Session, keys string) request {
	body := r.base(s)
	body["keys"] = keys
	return request{"/v2/Panel/RemoteKeypad", body}
}

func (r v2) latestEvent(s *Session) request {
	return request{"/v2/Panel/Log", r.base(s)}
}

func (r v2) logs(s *Session, start int) request {
	body := r.base(s)
	body["panelEventId"] = start
	return request{"/v2/Panel/Logs", body}
}

func (r v2) inputs(s *Session, first int) request {
	body := r.base(s)
	body["firstInput"] = first
	return request{"/v2/Panel/Inputs", body}
}

func (v2) register(*Session, Registration) (request, bool) {
	return request{}, false
}

// appV3 authenticates as a device: a client generated hardware id is
// exchanged for a server issued device id, and both go in every request.
type appV3 struct{}

const appTypeAndroid = 5

func (appV3) Name() string { return "appv3" }

func (appV3) bootstrap(ctx context.Context, s *Session) error {
	if s.hardwareID == "" {
		s.hardwareID = uuid.NewString()
	}

	path := "/AppV3/App/GetDeviceId"
	var resp struct {
		DeviceID flexID `json:"deviceId"`
	}
	if err := s.post(ctx, path, map[string]any{
		"hardwareId":     s.hardwareID,
		"installationId": s.creds.PanelID,
		"devicePassword": s.creds.Password,
		"userCode":       strconv.Itoa(s.creds.UserCode),
	}, &resp); err != nil {
		return fmt.Errorf("could not get device id: %w", err)
	}
	if id := resp.DeviceID.String(); id == "" || id == "0" {
		return &ProtocolError{Path: path, Field: "deviceId"}
	}
	s.deviceID = resp.DeviceID
	s.log.Info("obtained device id", "device_id", s.deviceID.String())

	status, err := s.Status(ctx)
	if err != nil {
		return fmt.Errorf("could not get secure comm address: %w", err)
	}
	if status.SecureCommAddress != "" {
		s.secureCommAddress = status.SecureCommAddress
	}
	return nil
}

func (appV3) prepareArming(context.Context, *Session) error { return nil }

func (appV3) base(s *Session) map[string]any {
	return map[string]any{
		"hardwareId":     s.hardwareID,
		"deviceId":       s.deviceID,
		"devicePassword": s.creds.Password,
	}
}

func (r appV3) status(s *Session) request {
	body := r.base(s)
	body["userCode"] = strconv.Itoa(s.creds.UserCode)
	body["includeDescriptions"] = true
	return request{"/AppV3/Device/Status", body}
}

func (r appV3) arming(s *Session, command int) request {
	body := r.base(s)
	body["userCode"] = strconv.Itoa(s.creds.UserCode)
	body["command"] = command
	body["block"] = 0
	body["inhibit"] = false
	return request{"/AppV3/Device/Arming", body}
}

func (r appV3) keypad(s *Session, keys string) request {
	body := r.base(s)
	body["keys"] = keys
	return request{"/AppV3/Device/RemoteKeypad", body}
}

func (r appV3) latestEvent(s *Session) request {
	return request{"/AppV3/Device/Log", r.base(s)}
}

func (r appV3) logs(s *Session, start int) request {
	body := r.base(s)
	body["eventId"] = start
	return request{"/AppV3/Device/Logs", body}
}

func (r appV3) inputs(s *Session, first int) request {
	body := r.base(s)
	body["userCode"] = strconv.Itoa(s.creds.UserCode)
	body["firstInput"] = first
	return request{"/AppV3/Device/Inputs", body}
}

func (appV3) register(s *Session, r Registration) (request, bool) {
	return request{"/AppV3/Registration/MobileRegister", map[string]any{
		"appType":    appTypeAndroid,
		"appVersion": r.AppVersion,
		"deviceId":   "0",
		"panelList": []map[string]any{{
			"panelId":     s.creds.PanelID,
			"description": r.Description,
			"options":     2,
		}},
		"hardwareId": r.HardwareID,
		"soundlist":  []any{},
	}}, true
}
