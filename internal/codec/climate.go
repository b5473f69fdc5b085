package codec

import (
	"math"

	"lightwave/internal/model"
)

// Preset modes.
const (
	PresetAuto = "Auto"
	Preset20   = "20%"
	Preset40   = "40%"
	Preset60   = "60%"
	Preset80   = "80%"
	Preset100  = "100%"
)

// HVAC actions and modes.
const (
	HVACActionOff     = "off"
	HVACActionHeating = "heating"
	HVACActionIdle    = "idle"

	HVACModeHeat = "heat"
	HVACModeOff  = "off"
)

// Temperature limits in degrees Celsius.
const (
	MinTemperature = 0
	MaxTemperature = 40
)

// autoTargetThreshold is the raw target temperature (tenths of a degree)
// below which a fully open valve means Auto rather than a forced 100%.
const autoTargetThreshold = 40

// PresetModes lists every preset, Auto first.
var PresetModes = []string{PresetAuto, Preset20, Preset40, Preset60, Preset80, Preset100}

var presetValveLevels = map[string]int{
	Preset20:  20,
	Preset40:  40,
	Preset60:  60,
	Preset80:  80,
	Preset100: 100,
}

// PresetValveLevel returns the valve level a percentage preset forces.
// Auto and unknown names return false.
func PresetValveLevel(mode string) (int, bool) {
	level, ok := presetValveLevels[mode]
	return level, ok
}

// ClimateState is derived from a feature set on every read and never
// stored.
type ClimateState struct {
	Thermostat        bool        `json:"thermostat"`
	OnOff             model.Value `json:"onoff"`
	ValveLevel        model.Value `json:"valve_level"`
	Temperature       *float64    `json:"temperature"`
	TargetTemperature *float64    `json:"target_temperature"`
	PresetMode        string      `json:"preset_mode"`
	HVACAction        string      `json:"hvac_action"`
	HVACMode          string      `json:"hvac_mode,omitempty"`
	HasHumidity       bool        `json:"has_humidity"`
	Humidity          model.Value `json:"humidity"`
	TargetHumidity    model.Value `json:"target_humidity"`
}

// HVACModes lists the modes the device accepts. Pure thermostats cannot
// be switched off.
func (c ClimateState) HVACModes() []string {
	if c.Thermostat {
		return []string{HVACModeHeat}
	}
	return []string{HVACModeHeat, HVACModeOff}
}

// DeriveClimate computes the composite climate state of a feature set.
func DeriveClimate(fs model.FeatureSet) ClimateState {
	thermostat := !fs.HasFeature(model.KeyHeatState)

	st := ClimateState{
		Thermostat:        thermostat,
		ValveLevel:        DeriveValveLevel(fs),
		Temperature:       Tenths(fs.State(model.KeyTemperature)),
		TargetTemperature: Tenths(fs.State(model.KeyTargetTemperature)),
		HasHumidity:       fs.HasFeature(model.KeyTargetHumidity),
	}

	if thermostat {
		st.OnOff = model.Int(1)
	} else {
		st.OnOff = fs.State(model.KeyHeatState)
	}

	if st.HasHumidity {
		st.Humidity = fs.State(model.KeyHumidity)
		st.TargetHumidity = fs.State(model.KeyTargetHumidity)
	}

	st.PresetMode = DerivePresetMode(st.ValveLevel, fs.State(model.KeyTargetTemperature))
	st.HVACAction = DeriveHVACAction(st.OnOff, st.ValveLevel)
	// HVACMode stays empty until heatState is reported.
	if onoff, ok := st.OnOff.Get(); ok {
		if onoff == 1 {
			st.HVACMode = HVACModeHeat
		} else {
			st.HVACMode = HVACModeOff
		}
	}
	return st
}

// DeriveValveLevel reads valveLevel directly, falls back to callForHeat
// for pure thermostats, and otherwise assumes a fully open valve.
func DeriveValveLevel(fs model.FeatureSet) model.Value {
	if f, ok := fs.Features[model.KeyValveLevel]; ok {
		return f.State
	}
	if !fs.HasFeature(model.KeyHeatState) {
		if f, ok := fs.Features[model.KeyCallForHeat]; ok {
			n, reported := f.State.Get()
			if !reported {
				return model.Int(0)
			}
			return model.Int(n * 100)
		}
	}
	return model.Int(100)
}

// DerivePresetMode maps a valve level and raw target temperature onto one
// of the six presets. There is no interpolation: any non-standard level is
// Auto.
func DerivePresetMode(valveLevel, rawTarget model.Value) string {
	level, ok := valveLevel.Get()
	if !ok {
		return PresetAuto
	}
	if level == 100 {
		target, reported := rawTarget.Get()
		if !reported || target < autoTargetThreshold {
			return PresetAuto
		}
		return Preset100
	}
	for mode, l := range presetValveLevels {
		if l == level {
			return mode
		}
	}
	return PresetAuto
}

// DeriveHVACAction is off when switched off, heating while the valve is
// open, idle otherwise.
func DeriveHVACAction(onoff, valveLevel model.Value) string {
	if n, ok := onoff.Get(); ok && n == 0 {
		return HVACActionOff
	}
	if n, ok := valveLevel.Get(); ok && n > 0 {
		return HVACActionHeating
	}
	return HVACActionIdle
}

// EncodeTemperature converts degrees to the raw tenths-of-a-degree value.
func EncodeTemperature(celsius float64) int {
	return int(math.Round(celsius * 10))
}
