// Package model defines the hub's device graph: feature sets, their
// features and the nullable raw values the hub reports for them.
package model

// Feature keys reported by the hub.
const (
	KeySwitch            = "switch"
	KeyDimLevel          = "dimLevel"
	KeyRGBColor          = "rgbColor"
	KeyUIIndicator       = "uiIndicator"
	KeyUIIOMap           = "uiIOMap"
	KeyOffLED            = "offLed"
	KeyValveLevel        = "valveLevel"
	KeyTemperature       = "temperature"
	KeyTargetTemperature = "targetTemperature"
	KeyHeatState         = "heatState"
	KeyCallForHeat       = "callForHeat"
	KeyHumidity          = "humidity"
	KeyTargetHumidity    = "targetHumidity"
	KeyProtection        = "protection"
	KeyUIButton          = "uiButton"
	KeyUIButtonPair      = "uiButtonPair"
	KeyButtonPress       = "buttonPress"
	KeyOutletInUse       = "outletInUse"
	KeyThreeWayRelay     = "threeWayRelay"
	KeyWindowPosition    = "windowPosition"
	KeyMovement          = "movement"
	KeyUIDigitalInput    = "uiDigitalInput"
	KeyPower             = "power"
	KeyEnergy            = "energy"
	KeyRSSI              = "rssi"
	KeyBatteryLevel      = "batteryLevel"
	KeyVoltage           = "voltage"
	KeyCurrent           = "current"
	KeyLightLevel        = "lightLevel"
	KeyDawnTime          = "dawnTime"
	KeyDuskTime          = "duskTime"
	KeyYear              = "year"
	KeyMonth             = "month"
	KeyDay               = "day"
)

// Feature is one raw value slot within a feature set.
type Feature struct {
	ID    string `json:"feature_id" yaml:"id"`
	Key   string `json:"key" yaml:"key"`
	State Value  `json:"state" yaml:"state"`

	// ChannelInputMapped is only meaningful for uiIOMap features. A nil
	// value means the hub did not say.
	ChannelInputMapped *bool `json:"channel_input_mapped,omitempty" yaml:"channel_input_mapped,omitempty"`
}

// FeatureSet is one physical accessory: a named group of features.
type FeatureSet struct {
	ID                 string             `json:"featureset_id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	ProductCode        string             `json:"product_code" yaml:"product_code"`
	VirtualProductCode string             `json:"virtual_product_code,omitempty" yaml:"virtual_product_code,omitempty"`
	ManufacturerCode   string             `json:"manufacturer_code" yaml:"manufacturer_code"`
	Serial             string             `json:"serial" yaml:"serial"`
	FirmwareVersion    string             `json:"firmware_version" yaml:"firmware_version"`
	Gen2               bool               `json:"gen2" yaml:"gen2"`
	Features           map[string]Feature `json:"features" yaml:"-"`
}

// Clone returns a deep copy of the feature set.
func (fs FeatureSet) Clone() FeatureSet {
	out := fs
	out.Features = make(map[string]Feature, len(fs.Features))
	for k, f := range fs.Features {
		if f.ChannelInputMapped != nil {
			mapped := *f.ChannelInputMapped
			f.ChannelInputMapped = &mapped
		}
		out.Features[k] = f
	}
	return out
}

// Model returns the product code with the virtual product code appended
// when present, e.g. "LP22-2".
func (fs FeatureSet) Model() string {
	if fs.VirtualProductCode == "" {
		return fs.ProductCode
	}
	return fs.ProductCode + "-" + fs.VirtualProductCode
}

// AssumedState is true for first generation devices whose reported state
// is not authoritative.
func (fs FeatureSet) AssumedState() bool {
	return !fs.Gen2
}

// HasFeature reports whether the set exposes the given feature key.
func (fs FeatureSet) HasFeature(key string) bool {
	_, ok := fs.Features[key]
	return ok
}

// State returns the raw value of a feature, or null when the key is absent.
func (fs FeatureSet) State(key string) Value {
	f, ok := fs.Features[key]
	if !ok {
		return Null()
	}
	return f.State
}

func (fs FeatureSet) IsLight() bool {
	return fs.HasFeature(KeyDimLevel)
}

func (fs FeatureSet) IsSocket() bool {
	return fs.HasFeature(KeyOutletInUse)
}

func (fs FeatureSet) IsSwitch() bool {
	return fs.HasFeature(KeySwitch) && !fs.IsLight() && !fs.IsSocket()
}

func (fs FeatureSet) IsClimate() bool {
	return fs.HasFeature(KeyTargetTemperature)
}

// IsTRV reports a radiator valve: a climate device with its own valve.
func (fs FeatureSet) IsTRV() bool {
	return fs.HasFeature(KeyValveLevel)
}

func (fs FeatureSet) IsCover() bool {
	return fs.HasFeature(KeyThreeWayRelay)
}

func (fs FeatureSet) IsHub() bool {
	return fs.HasFeature(KeyButtonPress)
}

// IsEnergy reports an energy monitor.
func (fs FeatureSet) IsEnergy() bool {
	return fs.HasFeature(KeyEnergy) && fs.HasFeature(KeyRSSI)
}

func (fs FeatureSet) HasLED() bool {
	return fs.HasFeature(KeyRGBColor)
}

func (fs FeatureSet) HasUIIndicator() bool {
	return fs.HasFeature(KeyUIIndicator)
}
