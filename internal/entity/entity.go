// Package entity projects raw feature sets into the typed entity states a
// host platform shows: switches, lights, thermostats, sensors and so on.
//
// Each variant derives only the fields it needs, always through codec, and
// always from a snapshot, so a projection never sees a half-applied update.
package entity

import (
	"errors"
	"fmt"

	"lightwave/internal/model"
)

// ErrNotReady means a feature the entity cannot exist without has not
// been reported yet. Setup should be retried later.
var ErrNotReady = errors.New("entity not ready")

// Kind tags a projection variant.
type Kind string

const (
	KindSwitch       Kind = "switch"
	KindLight        Kind = "light"
	KindLED          Kind = "led"
	KindClimate      Kind = "climate"
	KindLock         Kind = "lock"
	KindBinarySensor Kind = "binary_sensor"
	KindSensor       Kind = "sensor"
	KindButton       Kind = "button"
	KindCover        Kind = "cover"
	KindHubEvent     Kind = "hub_event"
)

// Entity categories.
const (
	CategoryConfig     = "config"
	CategoryDiagnostic = "diagnostic"
)

// Description is the static metadata of an entity.
type Description struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	DeviceClass string `json:"device_class,omitempty"`
	StateClass  string `json:"state_class,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Category    string `json:"category,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// State is the projected state of one entity. The concrete type depends
// on the Kind.
type State interface {
	kind() Kind
}

// Projection turns a feature set snapshot into one entity's state.
type Projection interface {
	Kind() Kind
	UniqueID() string
	FeatureSetID() string
	Description() Description
	Device() DeviceInfo
	AssumedState() bool
	// Hidden is set for entities a bridge such as HomeKit already exposes.
	Hidden() bool
	Project(fs model.FeatureSet) (State, error)
}

// DeviceInfo identifies the physical device an entity belongs to.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Serial       string   `json:"serial_number"`
	SWVersion    string   `json:"sw_version"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// NewDeviceInfo describes a feature set's device, linked through the hub
// feature set hubID.
func NewDeviceInfo(fs model.FeatureSet, hubID string) DeviceInfo {
	info := DeviceInfo{
		Identifiers:  []string{fs.ID},
		Name:         fs.Name,
		Manufacturer: fs.ManufacturerCode,
		Model:        fs.Model(),
		Serial:       fs.Serial,
		SWVersion:    fs.FirmwareVersion,
	}
	if hubID != fs.ID {
		info.ViaDevice = hubID
	}
	return info
}

// ExtraAttributes exposes every raw feature as lwrf_<key>. Null values
// stay nil.
func ExtraAttributes(fs model.FeatureSet) map[string]*int {
	attrs := make(map[string]*int, len(fs.Features))
	for key, f := range fs.Features {
		attrs["lwrf_"+key] = f.State.Ptr()
	}
	return attrs
}

// base carries what every variant shares.
type base struct {
	featuresetID string
	desc         Description
	device       DeviceInfo
	assumed      bool
	hidden       bool
}

func newBase(fs model.FeatureSet, hubID string, desc Description, hidden bool) base {
	return base{
		featuresetID: fs.ID,
		desc:         desc,
		device:       NewDeviceInfo(fs, hubID),
		assumed:      fs.AssumedState(),
		hidden:       hidden,
	}
}

func (b base) UniqueID() string         { return b.featuresetID + "_" + b.desc.Key }
func (b base) FeatureSetID() string     { return b.featuresetID }
func (b base) Description() Description { return b.desc }
func (b base) Device() DeviceInfo       { return b.device }
func (b base) AssumedState() bool       { return b.assumed }
func (b base) Hidden() bool             { return b.hidden }

// requireReported returns ErrNotReady when key is absent or null on fs.
func requireReported(fs model.FeatureSet, key string) error {
	f, ok := fs.Features[key]
	if !ok || f.State.IsNull() {
		return fmt.Errorf("%w: %s has no %s", ErrNotReady, fs.ID, key)
	}
	return nil
}

// onOff maps a raw 0/1 value to a tri-state boolean.
func onOff(v model.Value) *bool {
	n, ok := v.Get()
	if !ok {
		return nil
	}
	on := n != 0
	return &on
}
