package codec

import (
	"fmt"
	"strconv"
)

// Button event types.
const (
	EventShort       = "Short"
	EventLong        = "Long"
	EventLongRelease = "Long-Release"

	DirectionUp   = "Up"
	DirectionDown = "Down"

	// MaxPresses is the highest press count a Short event reports.
	MaxPresses = 5
)

// ButtonEventTypes are the events a single button can raise. The empty
// string stands for "no event yet".
var ButtonEventTypes = []string{
	"", "Short.1", "Short.2", "Short.3", "Short.4", "Short.5", "Long", "Long-Release",
}

// ButtonPairEventTypes are the events an up/down button pair can raise.
var ButtonPairEventTypes = []string{
	"Up.Short.1", "Up.Short.2", "Up.Short.3", "Up.Short.4", "Up.Short.5", "Up.Long", "Up.Long-Release",
	"Down.Short.1", "Down.Short.2", "Down.Short.3", "Down.Short.4", "Down.Short.5", "Down.Long", "Down.Long-Release",
}

// ButtonPayload is the structured part of a button feature update.
// UpDown is empty for single buttons. Presses only matters for Short.
type ButtonPayload struct {
	UpDown    string `json:"upDown,omitempty"`
	EventType string `json:"eventType"`
	Presses   int    `json:"presses,omitempty"`
}

// DecodeButtonEvent renders a payload as "[upDown.]eventType[.presses]".
func DecodeButtonEvent(p ButtonPayload) (string, error) {
	prefix := ""
	switch p.UpDown {
	case "":
	case DirectionUp, DirectionDown:
		prefix = p.UpDown + "."
	default:
		return "", fmt.Errorf("%w: button direction %q", ErrDecode, p.UpDown)
	}

	switch p.EventType {
	case EventShort:
		if p.Presses < 1 || p.Presses > MaxPresses {
			return "", fmt.Errorf("%w: %d presses", ErrDecode, p.Presses)
		}
		return prefix + EventShort + "." + strconv.Itoa(p.Presses), nil
	case EventLong, EventLongRelease:
		return prefix + p.EventType, nil
	default:
		return "", fmt.Errorf("%w: button event type %q", ErrDecode, p.EventType)
	}
}

// ParseButtonPayload reads a payload decoded from JSON, where numbers
// arrive as float64.
func ParseButtonPayload(raw map[string]interface{}) (ButtonPayload, error) {
	if raw == nil {
		return ButtonPayload{}, fmt.Errorf("%w: missing button payload", ErrDecode)
	}

	var p ButtonPayload
	if v, ok := raw["upDown"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return ButtonPayload{}, fmt.Errorf("%w: upDown is %T", ErrDecode, v)
		}
		p.UpDown = s
	}

	et, ok := raw["eventType"].(string)
	if !ok {
		return ButtonPayload{}, fmt.Errorf("%w: missing eventType", ErrDecode)
	}
	p.EventType = et

	if v, ok := raw["presses"]; ok && v != nil {
		switch n := v.(type) {
		case float64:
			if n != float64(int(n)) {
				return ButtonPayload{}, fmt.Errorf("%w: presses %v", ErrDecode, n)
			}
			p.Presses = int(n)
		case int:
			p.Presses = n
		default:
			return ButtonPayload{}, fmt.Errorf("%w: presses is %T", ErrDecode, v)
		}
	}
	return p, nil
}

// IsButtonKey reports whether updates for the key carry a button payload.
func IsButtonKey(key string) bool {
	return key == "uiButton" || key == "uiButtonPair"
}
