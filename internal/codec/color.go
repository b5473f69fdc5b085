// Package codec converts between the hub's raw integer feature values and
// domain values. Every function is pure and total: a null input yields a
// null (or "off") output, never a panic.
package codec

import (
	"fmt"
	"math"

	"lightwave/internal/model"
)

// MaxPackedColor is the largest value a packed 24 bit color can hold.
const MaxPackedColor = 0xFFFFFF

// RGB is an 8 bit per channel color.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// White is reported for fixtures that are off.
var White = RGB{R: 255, G: 255, B: 255}

// Color is a decoded LED state. Hue is normalized so its brightest channel
// is 255; Brightness carries the original intensity separately.
type Color struct {
	On         bool `json:"on"`
	Hue        RGB  `json:"hue"`
	Brightness int  `json:"brightness"`
}

// PackColor packs channels into r*65536 + g*256 + b.
func PackColor(c RGB) int {
	c = clampRGB(c)
	return c.R*65536 + c.G*256 + c.B
}

// UnpackColor splits a packed color into channels.
func UnpackColor(packed int) RGB {
	r := packed / 65536
	g := (packed - r*65536) / 256
	b := packed - r*65536 - g*256
	return RGB{R: r, G: g, B: b}
}

// DecodeColor turns a raw packed color into on/off, normalized hue and
// brightness. Zero and null both decode to off with a full-brightness
// white hue.
func DecodeColor(v model.Value) (Color, error) {
	packed, ok := v.Get()
	if !ok || packed == 0 {
		return Color{On: false, Hue: White, Brightness: 255}, nil
	}
	if packed < 0 || packed > MaxPackedColor {
		return Color{}, fmt.Errorf("%w: color %d out of range", ErrDecode, packed)
	}

	raw := UnpackColor(packed)
	brightness := max(raw.R, raw.G, raw.B)
	return Color{
		On:         true,
		Hue:        normalize(raw, brightness),
		Brightness: brightness,
	}, nil
}

// EncodeColor scales a normalized hue back down by brightness (0-255) and
// packs it for a raw write.
func EncodeColor(hue RGB, brightness int) int {
	hue = clampRGB(hue)
	brightness = clamp(brightness, 0, 255)
	scale := func(ch int) int {
		return int(math.Round(float64(ch) * float64(brightness) / 255))
	}
	return PackColor(RGB{R: scale(hue.R), G: scale(hue.G), B: scale(hue.B)})
}

func normalize(c RGB, brightness int) RGB {
	if brightness == 0 {
		return White
	}
	scale := func(ch int) int {
		return int(math.Round(float64(ch) * 255 / float64(brightness)))
	}
	return RGB{R: scale(c.R), G: scale(c.G), B: scale(c.B)}
}

func clampRGB(c RGB) RGB {
	return RGB{R: clamp(c.R, 0, 255), G: clamp(c.G, 0, 255), B: clamp(c.B, 0, 255)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PercentToLevel converts a 0-100 dim level to a 0-255 brightness.
func PercentToLevel(percent int) int {
	return int(math.Round(float64(clamp(percent, 0, 100)) / 100 * 255))
}

// LevelToPercent converts a 0-255 brightness to a 0-100 dim level.
func LevelToPercent(level int) int {
	return int(math.Round(float64(clamp(level, 0, 255)) / 255 * 100))
}
