package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lightwave/internal/codec"
)

var (
	// ErrUnknownCommand is returned for a request naming no intent.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrInvalidValue is returned when a request's value does not decode.
	ErrInvalidValue = errors.New("invalid command value")
)

// Command names accepted by Execute.
const (
	TurnOnCommand         = "turn_on"
	TurnOffCommand        = "turn_off"
	SetBrightnessCommand  = "set_brightness"
	SetColorCommand       = "set_color"
	TurnOffColorCommand   = "turn_off_color"
	SetTemperatureCommand = "set_temperature"
	SetPresetModeCommand  = "set_preset_mode"
	SetLockCommand        = "set_lock"
	SetHVACModeCommand    = "set_hvac_mode"
	SetHumidityCommand    = "set_humidity"
	OpenCoverCommand      = "open_cover"
	CloseCoverCommand     = "close_cover"
	StopCoverCommand      = "stop_cover"
)

// Request is a named intent with a JSON value, as received over HTTP or
// MQTT.
type Request struct {
	Command string          `json:"command"`
	Value   json.RawMessage `json:"value,omitempty"`
}

// ColorValue is the value of set_color and turn_off_color.
type ColorValue struct {
	codec.RGB
	Brightness int    `json:"brightness"`
	Feature    string `json:"feature,omitempty"`
}

// Execute decodes req and runs the matching intent on a feature set.
func (w *Writer) Execute(ctx context.Context, featuresetID string, req Request) error {
	switch req.Command {
	case TurnOnCommand:
		return w.TurnOn(ctx, featuresetID)
	case TurnOffCommand:
		return w.TurnOff(ctx, featuresetID)
	case OpenCoverCommand:
		return w.CoverOpen(ctx, featuresetID)
	case CloseCoverCommand:
		return w.CoverClose(ctx, featuresetID)
	case StopCoverCommand:
		return w.CoverStop(ctx, featuresetID)

	case SetBrightnessCommand:
		var pct int
		if err := decodeValue(req, &pct); err != nil {
			return err
		}
		return w.SetBrightness(ctx, featuresetID, pct)

	case SetColorCommand:
		var c ColorValue
		if err := decodeValue(req, &c); err != nil {
			return err
		}
		return w.SetColor(ctx, featuresetID, c.RGB, c.Brightness, c.Feature)

	case TurnOffColorCommand:
		var c ColorValue
		if len(req.Value) > 0 {
			if err := decodeValue(req, &c); err != nil {
				return err
			}
		}
		return w.TurnOffColor(ctx, featuresetID, c.Feature)

	case SetTemperatureCommand:
		var celsius float64
		if err := decodeValue(req, &celsius); err != nil {
			return err
		}
		return w.SetTemperature(ctx, featuresetID, celsius)

	case SetPresetModeCommand:
		var mode string
		if err := decodeValue(req, &mode); err != nil {
			return err
		}
		return w.SetPresetMode(ctx, featuresetID, mode)

	case SetLockCommand:
		var locked bool
		if err := decodeValue(req, &locked); err != nil {
			return err
		}
		return w.SetLock(ctx, featuresetID, locked)

	case SetHVACModeCommand:
		var mode string
		if err := decodeValue(req, &mode); err != nil {
			return err
		}
		return w.SetHVACMode(ctx, featuresetID, mode)

	case SetHumidityCommand:
		var pct int
		if err := decodeValue(req, &pct); err != nil {
			return err
		}
		return w.SetHumidity(ctx, featuresetID, pct)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command)
	}
}

func decodeValue(req Request, dst interface{}) error {
	if len(req.Value) == 0 {
		return fmt.Errorf("%w: %s needs a value", ErrInvalidValue, req.Command)
	}
	if err := json.Unmarshal(req.Value, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidValue, req.Command, err)
	}
	return nil
}
