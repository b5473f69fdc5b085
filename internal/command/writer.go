// Package command turns user intents into raw feature writes.
//
// Every write is a single fire-and-forget request to the hub. The writer
// never waits for the resulting state change: that arrives later through
// the normal update path, so any optimistic local state stays provisional
// until then.
package command

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lightwave/internal/codec"
	"lightwave/internal/model"

	"go.uber.org/zap"
)

var (
	// ErrUnknownPreset is returned for a preset name outside codec.PresetModes.
	ErrUnknownPreset = errors.New("unknown preset mode")

	// ErrUnknownHVACMode is returned for anything other than heat or off.
	ErrUnknownHVACMode = errors.New("unknown hvac mode")

	// ErrOutOfRange is returned when an intent's argument cannot be encoded.
	ErrOutOfRange = errors.New("value out of range")

	// ErrNoTargetTemperature is returned when Auto is requested before any
	// target temperature is known for the feature set.
	ErrNoTargetTemperature = errors.New("no target temperature to restore")
)

// Cover relay positions.
const (
	CoverStop  = 0
	CoverOpen  = 1
	CoverClose = 2
)

// Hub is where raw writes go.
type Hub interface {
	WriteFeature(ctx context.Context, featureID string, value int) error
}

// Features resolves feature ids and current state.
type Features interface {
	FeatureID(featuresetID, key string) (string, error)
	Snapshot(featuresetID string) (model.FeatureSet, error)
}

// Writer encodes intents for one hub session.
type Writer struct {
	logger   *zap.Logger
	hub      Hub
	features Features

	// lastTarget holds targets written through SetTemperature, observed
	// holds targets seen while the preset was Auto. Auto restores the
	// former first.
	lastTarget map[string]float64
	observed   map[string]float64
	mu         sync.Mutex
}

// NewWriter creates a command writer.
func NewWriter(hub Hub, features Features, logger *zap.Logger) *Writer {
	return &Writer{
		logger:     logger,
		hub:        hub,
		features:   features,
		lastTarget: make(map[string]float64),
		observed:   make(map[string]float64),
	}
}

// write resolves key on the feature set and issues one raw write. No lock
// is held while the hub call runs.
func (w *Writer) write(ctx context.Context, featuresetID, key string, value int) error {
	featureID, err := w.features.FeatureID(featuresetID, key)
	if err != nil {
		return fmt.Errorf("write %s on %s: %w", key, featuresetID, err)
	}

	w.logger.Debug("Writing feature",
		zap.String("featureset_id", featuresetID),
		zap.String("feature", key),
		zap.String("feature_id", featureID),
		zap.Int("value", value))

	if err := w.hub.WriteFeature(ctx, featureID, value); err != nil {
		return fmt.Errorf("write %s on %s: %w", key, featuresetID, err)
	}
	return nil
}

// SetTemperature writes targetTemperature in tenths of a degree and
// remembers it as the temperature Auto restores.
func (w *Writer) SetTemperature(ctx context.Context, featuresetID string, celsius float64) error {
	if celsius < codec.MinTemperature || celsius > codec.MaxTemperature {
		return fmt.Errorf("%w: %.1f°C", ErrOutOfRange, celsius)
	}

	if err := w.write(ctx, featuresetID, model.KeyTargetTemperature, codec.EncodeTemperature(celsius)); err != nil {
		return err
	}

	w.mu.Lock()
	w.lastTarget[featuresetID] = celsius
	w.mu.Unlock()
	return nil
}

// SetBrightness writes dimLevel as a 0-100 percentage.
func (w *Writer) SetBrightness(ctx context.Context, featuresetID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: brightness %d%%", ErrOutOfRange, percent)
	}
	return w.write(ctx, featuresetID, model.KeyDimLevel, percent)
}

// SetColor packs a normalized hue scaled by brightness (0-255) and writes
// it to key, which defaults to rgbColor. Indicator LEDs use uiIndicator or
// offLed.
func (w *Writer) SetColor(ctx context.Context, featuresetID string, hue codec.RGB, brightness int, key string) error {
	if key == "" {
		key = model.KeyRGBColor
	}
	return w.write(ctx, featuresetID, key, codec.EncodeColor(hue, brightness))
}

// TurnOffColor writes a zero color, which the device reads as off.
func (w *Writer) TurnOffColor(ctx context.Context, featuresetID, key string) error {
	if key == "" {
		key = model.KeyRGBColor
	}
	return w.write(ctx, featuresetID, key, 0)
}

// SetPresetMode writes valveLevel for a percentage preset. Auto instead
// re-applies the last known target temperature.
func (w *Writer) SetPresetMode(ctx context.Context, featuresetID, mode string) error {
	if mode == codec.PresetAuto {
		target, err := w.restoreTarget(featuresetID)
		if err != nil {
			return err
		}
		return w.write(ctx, featuresetID, model.KeyTargetTemperature, codec.EncodeTemperature(target))
	}

	level, ok := codec.PresetValveLevel(mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, mode)
	}
	return w.write(ctx, featuresetID, model.KeyValveLevel, level)
}

func (w *Writer) restoreTarget(featuresetID string) (float64, error) {
	if target, ok := w.LastTargetTemperature(featuresetID); ok {
		return target, nil
	}

	fs, err := w.features.Snapshot(featuresetID)
	if err != nil {
		return 0, fmt.Errorf("set preset on %s: %w", featuresetID, err)
	}
	if t := codec.Tenths(fs.State(model.KeyTargetTemperature)); t != nil {
		return *t, nil
	}
	return 0, fmt.Errorf("%w on %s", ErrNoTargetTemperature, featuresetID)
}

// Observe remembers the target of a climate feature set whose derived
// preset is Auto. It never replaces a target set through SetTemperature.
func (w *Writer) Observe(fs model.FeatureSet) {
	if !fs.IsClimate() {
		return
	}
	st := codec.DeriveClimate(fs)
	if st.PresetMode != codec.PresetAuto || st.TargetTemperature == nil {
		return
	}

	w.mu.Lock()
	w.observed[fs.ID] = *st.TargetTemperature
	w.mu.Unlock()
}

// LastTargetTemperature returns the temperature Auto would restore.
func (w *Writer) LastTargetTemperature(featuresetID string) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.lastTarget[featuresetID]; ok {
		return t, true
	}
	t, ok := w.observed[featuresetID]
	return t, ok
}

// Forget drops remembered state for a feature set that left the hierarchy.
func (w *Writer) Forget(featuresetID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lastTarget, featuresetID)
	delete(w.observed, featuresetID)
}

// SetLock writes protection as 1 or 0. Repeated calls write repeatedly.
func (w *Writer) SetLock(ctx context.Context, featuresetID string, locked bool) error {
	return w.write(ctx, featuresetID, model.KeyProtection, boolToRaw(locked))
}

// TurnOn writes switch=1.
func (w *Writer) TurnOn(ctx context.Context, featuresetID string) error {
	return w.write(ctx, featuresetID, model.KeySwitch, 1)
}

// TurnOff writes switch=0.
func (w *Writer) TurnOff(ctx context.Context, featuresetID string) error {
	return w.write(ctx, featuresetID, model.KeySwitch, 0)
}

// SetHVACMode writes heatState.
func (w *Writer) SetHVACMode(ctx context.Context, featuresetID, mode string) error {
	switch mode {
	case codec.HVACModeHeat:
		return w.write(ctx, featuresetID, model.KeyHeatState, 1)
	case codec.HVACModeOff:
		return w.write(ctx, featuresetID, model.KeyHeatState, 0)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownHVACMode, mode)
	}
}

// SetHumidity writes targetHumidity as a percentage.
func (w *Writer) SetHumidity(ctx context.Context, featuresetID string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: humidity %d%%", ErrOutOfRange, percent)
	}
	return w.write(ctx, featuresetID, model.KeyTargetHumidity, percent)
}

func (w *Writer) CoverOpen(ctx context.Context, featuresetID string) error {
	return w.write(ctx, featuresetID, model.KeyThreeWayRelay, CoverOpen)
}

func (w *Writer) CoverClose(ctx context.Context, featuresetID string) error {
	return w.write(ctx, featuresetID, model.KeyThreeWayRelay, CoverClose)
}

func (w *Writer) CoverStop(ctx context.Context, featuresetID string) error {
	return w.write(ctx, featuresetID, model.KeyThreeWayRelay, CoverStop)
}

func boolToRaw(b bool) int {
	if b {
		return 1
	}
	return 0
}
