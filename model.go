package securecomm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Credentials identify a panel and the user acting on it.
type Credentials struct {
	PanelID  int
	Password string
	UserCode int
}

type ArmMode uint8

const (
	ArmPartsetA ArmMode = 1
	ArmPartsetB ArmMode = 2
	ArmFullset  ArmMode = 3
)

const cmdDisarm = 0

func (m ArmMode) String() string {
	switch m {
	case ArmPartsetA:
		return "partset_a"
	case ArmPartsetB:
		return "partset_b"
	case ArmFullset:
		return "fullset"
	default:
		return "unknown"
	}
}

func (m *ArmMode) UnmarshalText(text []byte) error {
	switch string(bytes.ToLower(text)) {
	case "partset_a", "a":
		*m = ArmPartsetA
	case "partset_b", "b":
		*m = ArmPartsetB
	case "fullset", "full":
		*m = ArmFullset
	default:
		return fmt.Errorf("invalid arm mode: %q", text)
	}
	return nil
}

// ArmState is the state of a block (partition) as reported in the status.
type ArmState int

const (
	StateDisarmed ArmState = 0
	StatePartsetA ArmState = 1
	StatePartsetB ArmState = 2
	StateFullset  ArmState = 3
)

func (s ArmState) String() string {
	switch s {
	case StateDisarmed:
		return "Disarmed"
	case StatePartsetA:
		return "Partset A"
	case StatePartsetB:
		return "Partset B"
	case StateFullset:
		return "Fullset"
	default:
		return "Unknown"
	}
}

type Block struct {
	ArmState    ArmState `json:"armState"`
	IsEnabled   bool     `json:"isEnabled"`
	Description string   `json:"description"`
}

// Status is the panel status document. Fields holds every top level key of
// the response, including the ones not mapped into the struct.
type Status struct {
	Blocks            []Block         `json:"blocks"`
	UserOptions       json.RawMessage `json:"userOptions"`
	Success           *bool           `json:"success"`
	SecureCommAddress string          `json:"secureCommAddress"`

	Fields map[string]json.RawMessage `json:"-"`
}

// State returns the state of the first enabled block, which is the one
// armed by Arm and Disarm.
func (s Status) State() ArmState {
	for _, b := range s.Blocks {
		if b.IsEnabled {
			return b.ArmState
		}
	}
	if len(s.Blocks) > 0 {
		return s.Blocks[0].ArmState
	}
	return StateDisarmed
}

func parseStatus(path string, b []byte) (Status, error) {
	var status Status
	if err := json.Unmarshal(b, &status); err != nil {
		return Status{}, &ProtocolError{Path: path, Err: err}
	}
	if err := json.Unmarshal(b, &status.Fields); err != nil {
		return Status{}, &ProtocolError{Path: path, Err: err}
	}
	return status, nil
}

type LogEntry struct {
	EventID      int    `json:"eventId"`
	Message      string `json:"message"`
	Alarm        bool   `json:"alarm"`
	Fault        bool   `json:"fault"`
	Date         string `json:"date"`
	Verification bool   `json:"verification"`
	EventAction  int    `json:"eventAction"`
	Type         int    `json:"type"`
	Number       int    `json:"number"`
}

// Input is a zone, as listed by the panel.
type Input struct {
	Input         int    `json:"input"`
	InputID       int    `json:"inputId"`
	Description   string `json:"description"`
	InputState    int    `json:"inputState"`
	InputType     int    `json:"inputType"`
	Timestamp     string `json:"timestamp"`
	ActionInhibit bool   `json:"actionInhibit"`
	CameraID      int    `json:"cameraId"`
}

// IsActive reports whether the zone is open or triggered.
func (i Input) IsActive() bool {
	return i.InputState != 0
}

type inputPage struct {
	Inputs     []Input `json:"inputs"`
	MoreInputs bool    `json:"moreInputs"`
}

// LED is a keypad led. The api reports it either as a boolean or as a
// number, 0 being off.
type LED int

func (l *LED) UnmarshalJSON(b []byte) error {
	switch s := string(b); s {
	case "null", "false":
		*l = 0
	case "true":
		*l = 1
	default:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid led value: %s", s)
		}
		*l = LED(n)
	}
	return nil
}

func (l LED) On() bool { return l != 0 }

type Keypad struct {
	Display    string `json:"display"`
	GreenLED   LED    `json:"greenLed"`
	RedLED     LED    `json:"redLed"`
	AmberLED   LED    `json:"amberLed"`
	HardwareID string `json:"hardwareId"`
}

// Registration describes a mobile app registration.
type Registration struct {
	AppVersion  string
	HardwareID  string
	Description string
}

// flexID is an identifier the api sends either as a JSON string or as a
// JSON number. It is sent back in the form it was received.
type flexID struct {
	value  string
	quoted bool
}

func (id flexID) String() string { return id.value }

func (id *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = flexID{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexID{value: s, quoted: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id: %s", b)
	}
	*id = flexID{value: n.String()}
	return nil
}

func (id flexID) MarshalJSON() ([]byte, error) {
	if id.quoted || id.value == "" {
		return json.Marshal(id.value)
	}
	return []byte(id.value), nil
}
