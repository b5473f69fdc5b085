package entity

import (
	"sync"
	"time"

	"lightwave/internal/codec"
	"lightwave/internal/model"
)

// SwitchState is a relay or socket.
type SwitchState struct {
	On *bool `json:"on"`
}

// Switch projects the switch feature of a plain switch or a socket.
type Switch struct{ base }

func (Switch) Kind() Kind { return KindSwitch }

func (s Switch) Project(fs model.FeatureSet) (State, error) {
	return SwitchState{On: onOff(fs.State(model.KeySwitch))}, nil
}

// LightState is a dimmer. Brightness is 0-255.
type LightState struct {
	On         *bool `json:"on"`
	Brightness *int  `json:"brightness"`
}

// Light projects a dimmer's switch and dim level.
type Light struct{ base }

func (Light) Kind() Kind { return KindLight }

func (l Light) Project(fs model.FeatureSet) (State, error) {
	st := LightState{On: onOff(fs.State(model.KeySwitch))}
	if pct, ok := fs.State(model.KeyDimLevel).Get(); ok {
		b := codec.PercentToLevel(pct)
		st.Brightness = &b
	}
	return st, nil
}

// LEDState is an indicator LED, decoded from a packed color.
type LEDState struct {
	codec.Color
	Feature string `json:"feature"`
}

// LED projects one color feature: rgbColor, or uiIndicator for dimmers
// whose indicator is not mapped to a channel input.
type LED struct {
	base
	feature string
}

func (LED) Kind() Kind { return KindLED }

// Feature is the color feature key this LED writes to.
func (l LED) Feature() string { return l.feature }

func (l LED) Project(fs model.FeatureSet) (State, error) {
	c, err := codec.DecodeColor(fs.State(l.feature))
	if err != nil {
		return nil, err
	}
	return LEDState{Color: c, Feature: l.feature}, nil
}

// ClimateState adds the static limits to the derived climate state.
type ClimateState struct {
	codec.ClimateState
	PresetModes    []string `json:"preset_modes"`
	HVACModes      []string `json:"hvac_modes"`
	MinTemperature float64  `json:"min_temp"`
	MaxTemperature float64  `json:"max_temp"`
}

// Climate projects a thermostat or radiator valve.
type Climate struct{ base }

func (Climate) Kind() Kind { return KindClimate }

func (c Climate) Project(fs model.FeatureSet) (State, error) {
	derived := codec.DeriveClimate(fs)
	return ClimateState{
		ClimateState:   derived,
		PresetModes:    codec.PresetModes,
		HVACModes:      derived.HVACModes(),
		MinTemperature: codec.MinTemperature,
		MaxTemperature: codec.MaxTemperature,
	}, nil
}

// LockState is the child-lock of a device. Locked is nil until reported.
type LockState struct {
	Locked *bool `json:"locked"`
}

// Lock projects the protection feature.
type Lock struct{ base }

func (Lock) Kind() Kind { return KindLock }

func (l Lock) Project(fs model.FeatureSet) (State, error) {
	n, ok := fs.State(model.KeyProtection).Get()
	if !ok {
		return LockState{}, nil
	}
	locked := n == 1
	return LockState{Locked: &locked}, nil
}

// BinarySensorState is an on/off reading. On is nil until reported.
type BinarySensorState struct {
	On *bool `json:"on"`
}

// BinarySensor projects one catalog key.
type BinarySensor struct{ base }

func (BinarySensor) Kind() Kind { return KindBinarySensor }

func (b BinarySensor) Project(fs model.FeatureSet) (State, error) {
	return BinarySensorState{On: onOff(fs.State(b.desc.Key))}, nil
}

// SensorState carries a numeric value or, for dawn and dusk, an ISO
// timestamp. Both are nil while unreported.
type SensorState struct {
	Value     *float64 `json:"value,omitempty"`
	Timestamp *string  `json:"timestamp,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// Sensor projects one catalog key.
type Sensor struct{ base }

func (Sensor) Kind() Kind { return KindSensor }

func (s Sensor) Project(fs model.FeatureSet) (State, error) {
	key := s.desc.Key
	st := SensorState{Unit: s.desc.Unit}

	switch key {
	case model.KeyDawnTime, model.KeyDuskTime:
		st.Timestamp = codec.FormatTimeOfDay(fs.State(key),
			fs.State(model.KeyYear), fs.State(model.KeyMonth), fs.State(model.KeyDay))
	case model.KeyLightLevel:
		st.Value = codec.Illuminance(fs.State(key))
	default:
		if n, ok := fs.State(key).Get(); ok {
			v := float64(n)
			st.Value = &v
		}
	}
	return st, nil
}

// ButtonState is a stateless event source: the last event it fired and
// the events it can fire.
type ButtonState struct {
	LastEvent  string   `json:"last_event,omitempty"`
	EventTypes []string `json:"event_types"`
}

// Button projects uiButton or uiButtonPair. Button events are not stored
// in the feature set, so the last one is recorded as it is dispatched.
type Button struct {
	base
	eventTypes []string

	mu   sync.Mutex
	last string
}

func (*Button) Kind() Kind { return KindButton }

// Record remembers a decoded button event.
func (b *Button) Record(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = event
}

// LastEvent is the most recently recorded event, empty if none.
func (b *Button) LastEvent() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

func (b *Button) Project(model.FeatureSet) (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ButtonState{LastEvent: b.last, EventTypes: b.eventTypes}, nil
}

// CoverState is a blind or curtain. The relay reports no position, so the
// position is fixed at half open and Closed stays unknown.
type CoverState struct {
	Position int   `json:"position"`
	Closed   *bool `json:"closed"`
}

// Cover projects a three-way relay.
type Cover struct{ base }

func (Cover) Kind() Kind { return KindCover }

func (Cover) Project(model.FeatureSet) (State, error) {
	return CoverState{Position: 50}, nil
}

// HubEventState is when the hub last sent anything.
type HubEventState struct {
	LastEvent *string `json:"last_event"`
}

// HubEvent projects the hub's liveness.
type HubEvent struct {
	base
	lastEvent func() time.Time
}

func (HubEvent) Kind() Kind { return KindHubEvent }

func (h HubEvent) Project(model.FeatureSet) (State, error) {
	if h.lastEvent == nil {
		return HubEventState{}, nil
	}
	t := h.lastEvent()
	if t.IsZero() {
		return HubEventState{}, nil
	}
	s := t.UTC().Format(codec.TimeLayout)
	return HubEventState{LastEvent: &s}, nil
}

func (SwitchState) kind() Kind       { return KindSwitch }
func (LightState) kind() Kind        { return KindLight }
func (LEDState) kind() Kind          { return KindLED }
func (ClimateState) kind() Kind      { return KindClimate }
func (LockState) kind() Kind         { return KindLock }
func (BinarySensorState) kind() Kind { return KindBinarySensor }
func (SensorState) kind() Kind       { return KindSensor }
func (ButtonState) kind() Kind       { return KindButton }
func (CoverState) kind() Kind        { return KindCover }
func (HubEventState) kind() Kind     { return KindHubEvent }
