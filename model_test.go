package securecomm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArmModeText(t *testing.T) {
	for text, mode := range map[string]ArmMode{
		"partset_a": ArmPartsetA,
		"B":         ArmPartsetB,
		"fullset":   ArmFullset,
		"FULL":      ArmFullset,
	} {
		var m ArmMode
		require.NoError(t, m.UnmarshalText([]byte(text)))
		require.Equal(t, mode, m)
	}

	var m ArmMode
	require.Error(t, m.UnmarshalText([]byte("stay")))
	require.Equal(t, "unknown", ArmMode(0).String())
}

func TestLED(t *testing.T) {
	var kp Keypad
	require.NoError(t, json.Unmarshal([]byte(`{"greenLed":false,"redLed":1,"amberLed":null}`), &kp))
	require.False(t, kp.GreenLED.On())
	require.True(t, kp.RedLED.On())
	require.False(t, kp.AmberLED.On())

	require.Error(t, json.Unmarshal([]byte(`{"greenLed":"on"}`), &kp))
}

func TestFlexID(t *testing.T) {
	for in, expected := range map[string]string{
		`{"id":123}`:     "123",
		`{"id":"a-1"}`:   "a-1",
		`{"id":"0042"}`:  "0042",
		`{"id":"12345"}`: "12345",
	} {
		t.Run(in, func(t *testing.T) {
			var v struct {
				ID flexID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(in), &v))
			require.Equal(t, expected, v.ID.String())
			b, err := json.Marshal(v)
			require.NoError(t, err)
			require.JSONEq(t, in, string(b))
		})
	}

	t.Run("null", func(t *testing.T) {
		var id flexID
		require.NoError(t, json.Unmarshal([]byte(`null`), &id))
		require.Empty(t, id.String())
		b, err := json.Marshal(id)
		require.NoError(t, err)
		require.Equal(t, `""`, string(b))
	})

	t.Run("invalid", func(t *testing.T) {
		var id flexID
		require.Error(t, json.Unmarshal([]byte(`true`), &id))
	})
}

func TestStatusState(t *testing.T) {
	require.Equal(t, StateDisarmed, Status{}.State())
	require.Equal(t, StatePartsetB, Status{Blocks: []Block{
		{ArmState: StateFullset},
		{ArmState: StatePartsetB, IsEnabled: true},
	}}.State())
	require.Equal(t, StateFullset, Status{Blocks: []Block{{ArmState: StateFullset}}}.State())
	require.Equal(t, "Partset A", StatePartsetA.String())
}
