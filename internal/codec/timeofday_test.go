package codec

import (
	"testing"

	"lightwave/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTimeOfDay(t *testing.T) {
	got := FormatTimeOfDay(model.Int(7384), model.Int(2024), model.Int(3), model.Int(10))
	require.NotNil(t, got)
	assert.Equal(t, "2024-03-10T02:03:04Z", *got)
}

func TestDecodeTimeOfDay_NullParts(t *testing.T) {
	tests := []struct {
		name                    string
		seconds, year, mon, day model.Value
	}{
		{"seconds", model.Null(), model.Int(2024), model.Int(3), model.Int(10)},
		{"year", model.Int(10), model.Null(), model.Int(3), model.Int(10)},
		{"month", model.Int(10), model.Int(2024), model.Null(), model.Int(10)},
		{"day", model.Int(10), model.Int(2024), model.Int(3), model.Null()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := DecodeTimeOfDay(tt.seconds, tt.year, tt.mon, tt.day)
			assert.False(t, ok)
			assert.Nil(t, FormatTimeOfDay(tt.seconds, tt.year, tt.mon, tt.day))
		})
	}
}

func TestDecodeTimeOfDay_Invalid(t *testing.T) {
	_, ok := DecodeTimeOfDay(model.Int(86400), model.Int(2024), model.Int(3), model.Int(10))
	assert.False(t, ok, "a full day of seconds is past midnight")

	_, ok = DecodeTimeOfDay(model.Int(0), model.Int(2023), model.Int(2), model.Int(29))
	assert.False(t, ok, "2023 is not a leap year")
}

func TestIlluminance(t *testing.T) {
	lux := Illuminance(model.Int(50))
	require.NotNil(t, lux)
	assert.InDelta(t, 150.0, *lux, 0.0001)

	assert.Nil(t, Illuminance(model.Null()))
}
