package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeButtonEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload ButtonPayload
		want    string
	}{
		{"short single", ButtonPayload{EventType: "Short", Presses: 3}, "Short.3"},
		{"long down", ButtonPayload{UpDown: "Down", EventType: "Long"}, "Down.Long"},
		{"release up", ButtonPayload{UpDown: "Up", EventType: "Long-Release"}, "Up.Long-Release"},
		{"presses ignored for long", ButtonPayload{EventType: "Long", Presses: 4}, "Long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeButtonEvent(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeButtonEvent_Errors(t *testing.T) {
	bad := []ButtonPayload{
		{EventType: "Short", Presses: 0},
		{EventType: "Short", Presses: 6},
		{EventType: "Double"},
		{UpDown: "Left", EventType: "Long"},
		{},
	}
	for _, p := range bad {
		_, err := DecodeButtonEvent(p)
		assert.ErrorIs(t, err, ErrDecode, "%+v", p)
	}
}

func TestButtonTaxonomies(t *testing.T) {
	assert.Len(t, ButtonEventTypes, 8)
	assert.Len(t, ButtonPairEventTypes, 14)

	for _, ev := range ButtonEventTypes[1:] {
		assert.NotContains(t, ev, "Up.")
		assert.NotContains(t, ev, "Down.")
	}

	// Every decodable pair combination is listed.
	seen := map[string]bool{}
	for _, dir := range []string{"Up", "Down"} {
		for _, et := range []string{"Long", "Long-Release"} {
			ev, err := DecodeButtonEvent(ButtonPayload{UpDown: dir, EventType: et})
			require.NoError(t, err)
			seen[ev] = true
		}
		for n := 1; n <= MaxPresses; n++ {
			ev, err := DecodeButtonEvent(ButtonPayload{UpDown: dir, EventType: "Short", Presses: n})
			require.NoError(t, err)
			seen[ev] = true
		}
	}
	assert.Len(t, seen, len(ButtonPairEventTypes))
	for _, ev := range ButtonPairEventTypes {
		assert.True(t, seen[ev], ev)
	}
}

func TestParseButtonPayload(t *testing.T) {
	p, err := ParseButtonPayload(map[string]interface{}{
		"upDown":    "Up",
		"eventType": "Short",
		"presses":   float64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, ButtonPayload{UpDown: "Up", EventType: "Short", Presses: 2}, p)

	_, err = ParseButtonPayload(map[string]interface{}{"presses": float64(1)})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = ParseButtonPayload(map[string]interface{}{"eventType": "Short", "presses": "two"})
	assert.ErrorIs(t, err, ErrDecode)

	_, err = ParseButtonPayload(nil)
	assert.ErrorIs(t, err, ErrDecode)
}
