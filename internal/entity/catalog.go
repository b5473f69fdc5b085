package entity

import "lightwave/internal/model"

// SensorDescriptions are the numeric and timestamp sensors created for
// every feature set that has the matching feature.
var SensorDescriptions = []Description{
	{Key: model.KeyPower, Name: "Current Consumption", DeviceClass: "power", StateClass: "measurement", Unit: "W", Category: CategoryDiagnostic},
	{Key: model.KeyEnergy, Name: "Total Consumption", DeviceClass: "energy", StateClass: "total_increasing", Unit: "Wh", Category: CategoryDiagnostic},
	{Key: model.KeyRSSI, Name: "Signal Strength", DeviceClass: "signal_strength", StateClass: "measurement", Unit: "dBm", Category: CategoryDiagnostic},
	{Key: model.KeyBatteryLevel, Name: "Battery Level", DeviceClass: "battery", StateClass: "measurement", Unit: "%", Category: CategoryDiagnostic},
	{Key: model.KeyVoltage, Name: "Voltage", DeviceClass: "voltage", StateClass: "measurement", Unit: "V", Category: CategoryDiagnostic},
	{Key: model.KeyCurrent, Name: "Current", DeviceClass: "current", StateClass: "measurement", Unit: "mA", Category: CategoryDiagnostic},
	{Key: model.KeyLightLevel, Name: "Illuminance", DeviceClass: "illuminance", StateClass: "measurement", Unit: "lx"},
	{Key: model.KeyDawnTime, Name: "Dawn Time", DeviceClass: "timestamp", Category: CategoryDiagnostic},
	{Key: model.KeyDuskTime, Name: "Dusk Time", DeviceClass: "timestamp", Category: CategoryDiagnostic},
}

// BinarySensorDescriptions are the on/off sensors.
var BinarySensorDescriptions = []Description{
	{Key: model.KeyWindowPosition, Name: "Window Position", DeviceClass: "window"},
	{Key: model.KeyOutletInUse, Name: "Socket In Use", DeviceClass: "plug", Category: CategoryDiagnostic},
	{Key: model.KeyMovement, Name: "Movement", DeviceClass: "motion"},
	{Key: model.KeyUIDigitalInput, Name: "DigitalInput"},
}

var (
	switchDesc     = Description{Key: "smartSwitch", Name: "Switch", DeviceClass: "switch"}
	socketDesc     = Description{Key: "smartSocket", Name: "Switch", DeviceClass: "outlet", Icon: "mdi:power-socket-uk"}
	lightDesc      = Description{Key: "smartLightSwitch", Name: "Switch"}
	offLEDDesc     = Description{Key: "offLed", Name: "Off LED Indicator", Icon: "mdi:led-outline", Category: CategoryConfig}
	ledDesc        = Description{Key: "ledIndicator", Name: "LED Indicator", Icon: "mdi:led-outline"}
	climateDesc    = Description{Key: "thermostat", Name: "Thermostat"}
	lockDesc       = Description{Key: "lock", Name: "Lock", Category: CategoryConfig}
	coverDesc      = Description{Key: "cover", Name: "Cover"}
	buttonDesc     = Description{Key: model.KeyUIButton, Name: "Smart Switch", DeviceClass: "button"}
	buttonPairDesc = Description{Key: model.KeyUIButtonPair, Name: "Smart Switch Pair", DeviceClass: "button"}
	hubEventDesc   = Description{Key: "lastEvent", Name: "Last Event Received", DeviceClass: "timestamp", Category: CategoryDiagnostic}
)
