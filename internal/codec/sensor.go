package codec

import "lightwave/internal/model"

// ReferenceLux is the illuminance treated as a 100% light level reading.
const ReferenceLux = 300

// Illuminance approximates lux from a 0-100 light level percentage. This
// is a rough scale, not a calibrated reading.
func Illuminance(v model.Value) *float64 {
	n, ok := v.Get()
	if !ok {
		return nil
	}
	lux := float64(n) / 100 * ReferenceLux
	return &lux
}

// Tenths decodes a tenths-of-a-degree reading into degrees.
func Tenths(v model.Value) *float64 {
	n, ok := v.Get()
	if !ok {
		return nil
	}
	f := float64(n) / 10
	return &f
}
