package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/brutella/hap/characteristic"
	"github.com/caarlos0/securecomm"
	"golang.org/x/exp/slices"
)

type Config struct {
	PanelID      int                `env:"PANEL_ID,notEmpty"`
	Password     string             `env:"PANEL_PASSWORD,notEmpty"`
	UserCode     int                `env:"USER_CODE,notEmpty"`
	BaseURL      string             `env:"BASE_URL"       envDefault:"https://hkc.api.securecomm.cloud"`
	Revision     string             `env:"REVISION"       envDefault:"appv3"`
	StayMode     securecomm.ArmMode `env:"STAY"           envDefault:"partset_a"`
	AwayMode     securecomm.ArmMode `env:"AWAY"           envDefault:"fullset"`
	NightMode    securecomm.ArmMode `env:"NIGHT"          envDefault:"partset_b"`
	MotionZones  []int              `env:"MOTION"`
	ContactZones []int              `env:"CONTACT"`
	ZoneNames    []string           `env:"ZONE_NAMES"`
	PollInterval time.Duration      `env:"POLL_INTERVAL"  envDefault:"10s"`
	LogCount     int                `env:"LOG_COUNT"      envDefault:"10"`
	Address      string             `env:"LISTEN"         envDefault:":9009"`
	Debug        bool               `env:"DEBUG"`
}

func (c Config) credentials() securecomm.Credentials {
	return securecomm.Credentials{
		PanelID:  c.PanelID,
		Password: c.Password,
		UserCode: c.UserCode,
	}
}

type zoneKind uint8

const (
	kindMotion = iota + 1
	kindContact
)

func (z zoneKind) String() string {
	switch z {
	case kindMotion:
		return "motion"
	default:
		return "contact"
	}
}

type zoneConfig struct {
	number int
	name   string
	kind   zoneKind
}

// zoneName prefers the configured name, then the description the panel
// has for the input.
func (c Config) zoneName(n int, inputs []securecomm.Input) string {
	names := c.ZoneNames
	if n >= 1 && len(names) > n-1 {
		if n := names[n-1]; n != "" {
			return n
		}
	}
	idx := slices.IndexFunc(inputs, func(in securecomm.Input) bool {
		return in.Input == n
	})
	if idx >= 0 {
		if desc := strings.TrimSpace(inputs[idx].Description); desc != "" {
			return desc
		}
	}
	return fmt.Sprintf("Zone %d", n)
}

type allZoneConfigs []zoneConfig

func (a allZoneConfigs) String() string {
	var zones []string
	for _, zone := range a {
		zones = append(
			zones,
			fmt.Sprintf("zone %d: %q (%s)", zone.number, zone.name, zone.kind.String()),
		)
	}
	return strings.Join(zones, "\n")
}

func (c Config) allZones(inputs []securecomm.Input) []zoneConfig {
	var zones []zoneConfig
	for _, z := range c.MotionZones {
		zones = append(zones, zoneConfig{
			number: z,
			name:   c.zoneName(z, inputs),
			kind:   kindMotion,
		})
	}
	for _, z := range c.ContactZones {
		if slices.Contains(c.MotionZones, z) {
			continue
		}
		zones = append(zones, zoneConfig{
			number: z,
			name:   c.zoneName(z, inputs),
			kind:   kindContact,
		})
	}
	slices.SortFunc(zones, func(a, b zoneConfig) int {
		return a.number - b.number
	})
	return zones
}

func (c Config) getAlarmState(status securecomm.Status) int {
	state := status.State()
	switch state {
	case securecomm.StateDisarmed:
		return characteristic.SecuritySystemCurrentStateDisarmed
	case securecomm.ArmState(c.StayMode):
		return characteristic.SecuritySystemCurrentStateStayArm
	case securecomm.ArmState(c.AwayMode):
		return characteristic.SecuritySystemCurrentStateAwayArm
	case securecomm.ArmState(c.NightMode):
		return characteristic.SecuritySystemCurrentStateNightArm
	default:
		log.Warn("panel is armed, but its not configured for any state", "state", state)
		return -1
	}
}

func (c Config) armModeFor(target int) (securecomm.ArmMode, bool) {
	switch target {
	case characteristic.SecuritySystemTargetStateStayArm:
		return c.StayMode, true
	case characteristic.SecuritySystemTargetStateAwayArm:
		return c.AwayMode, true
	case characteristic.SecuritySystemTargetStateNightArm:
		return c.NightMode, true
	default:
		return 0, false
	}
}
