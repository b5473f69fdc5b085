package entity

import (
	"errors"
	"sort"
	"time"

	"lightwave/internal/codec"
	"lightwave/internal/model"
)

// Options tune discovery.
type Options struct {
	// HomeKit hides entities a HomeKit bridge already exposes natively.
	HomeKit bool

	// LastEvent feeds the hub's last-event sensor.
	LastEvent func() time.Time
}

// Discover builds every entity the feature sets support, ordered by
// feature set id. Entities that are not ready yet are skipped; their
// errors are joined into the returned error.
func Discover(sets []model.FeatureSet, opts Options) ([]Projection, error) {
	sorted := make([]model.FeatureSet, len(sets))
	copy(sorted, sets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	hubID := findHub(sorted)

	var out []Projection
	var errs []error
	add := func(p Projection, err error) {
		if err != nil {
			errs = append(errs, err)
			return
		}
		out = append(out, p)
	}

	for _, fs := range sorted {
		if fs.IsSwitch() {
			add(NewSwitch(fs, hubID, opts))
		}
		if fs.IsSocket() && fs.HasFeature(model.KeySwitch) {
			add(NewSwitch(fs, hubID, opts))
		}
		if fs.IsLight() {
			add(NewLight(fs, hubID, opts))
		}
		if fs.HasLED() && (fs.IsLight() || fs.IsSocket() || fs.IsHub()) {
			add(NewLED(fs, hubID))
		}
		if fs.IsClimate() {
			add(NewClimate(fs, hubID))
		}
		if fs.HasFeature(model.KeyProtection) {
			add(NewLock(fs, hubID))
		}
		for _, desc := range BinarySensorDescriptions {
			if fs.HasFeature(desc.Key) {
				add(NewBinarySensor(fs, hubID, desc, opts))
			}
		}
		for _, desc := range SensorDescriptions {
			if fs.HasFeature(desc.Key) {
				add(NewSensor(fs, hubID, desc))
			}
		}
		if fs.HasFeature(model.KeyUIButtonPair) {
			add(NewButton(fs, hubID, model.KeyUIButtonPair, opts))
		}
		if fs.HasFeature(model.KeyUIButton) {
			add(NewButton(fs, hubID, model.KeyUIButton, opts))
		}
		if fs.IsCover() {
			add(NewCover(fs, hubID))
		}
		if fs.IsHub() {
			add(NewHubEvent(fs, opts))
		}
	}

	return out, errors.Join(errs...)
}

// findHub returns the id of the hub feature set, or "" when there is none.
func findHub(sorted []model.FeatureSet) string {
	for _, fs := range sorted {
		if fs.IsHub() {
			return fs.ID
		}
	}
	return ""
}

func NewSwitch(fs model.FeatureSet, hubID string, opts Options) (Projection, error) {
	desc := switchDesc
	if fs.IsSocket() {
		desc = socketDesc
	}
	return Switch{newBase(fs, hubID, desc, opts.HomeKit && fs.Gen2)}, nil
}

// NewLight needs a reported dim level.
func NewLight(fs model.FeatureSet, hubID string, opts Options) (Projection, error) {
	if err := requireReported(fs, model.KeyDimLevel); err != nil {
		return nil, err
	}
	return Light{newBase(fs, hubID, lightDesc, opts.HomeKit && fs.Gen2)}, nil
}

// NewLED picks the indicator feature: a dimmer whose uiIOMap says the
// channel input is not mapped drives uiIndicator, everything else drives
// rgbColor as an off-state LED.
func NewLED(fs model.FeatureSet, hubID string) (Projection, error) {
	if fs.IsLight() && fs.HasUIIndicator() {
		if io, ok := fs.Features[model.KeyUIIOMap]; ok && io.ChannelInputMapped != nil && !*io.ChannelInputMapped {
			return LED{base: newBase(fs, hubID, ledDesc, false), feature: model.KeyUIIndicator}, nil
		}
	}
	return LED{base: newBase(fs, hubID, offLEDDesc, false), feature: model.KeyRGBColor}, nil
}

func NewClimate(fs model.FeatureSet, hubID string) (Projection, error) {
	return Climate{newBase(fs, hubID, climateDesc, false)}, nil
}

func NewLock(fs model.FeatureSet, hubID string) (Projection, error) {
	return Lock{newBase(fs, hubID, lockDesc, false)}, nil
}

func NewBinarySensor(fs model.FeatureSet, hubID string, desc Description, opts Options) (Projection, error) {
	return BinarySensor{newBase(fs, hubID, desc, opts.HomeKit)}, nil
}

// NewSensor needs the sensor's feature to be reported. On an energy
// monitor every reading except signal strength is a primary reading, not
// a diagnostic one.
func NewSensor(fs model.FeatureSet, hubID string, desc Description) (Projection, error) {
	if err := requireReported(fs, desc.Key); err != nil {
		return nil, err
	}
	if fs.IsEnergy() && desc.Key != model.KeyRSSI {
		desc.Category = ""
	}
	return Sensor{newBase(fs, hubID, desc, false)}, nil
}

// NewButton creates the event source for uiButton or uiButtonPair.
func NewButton(fs model.FeatureSet, hubID, key string, opts Options) (Projection, error) {
	desc, types := buttonDesc, codec.ButtonEventTypes
	if key == model.KeyUIButtonPair {
		desc, types = buttonPairDesc, codec.ButtonPairEventTypes
	}
	return &Button{
		base:       newBase(fs, hubID, desc, opts.HomeKit && fs.Gen2),
		eventTypes: types,
	}, nil
}

func NewCover(fs model.FeatureSet, hubID string) (Projection, error) {
	return Cover{newBase(fs, hubID, coverDesc, false)}, nil
}

func NewHubEvent(fs model.FeatureSet, opts Options) (Projection, error) {
	return HubEvent{base: newBase(fs, fs.ID, hubEventDesc, false), lastEvent: opts.LastEvent}, nil
}
