package telemetry

import (
	"lightwave/internal/clock"
	"lightwave/internal/codec"
	"lightwave/internal/dispatch"
	"lightwave/internal/model"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"
)

// Measurement is the InfluxDB measurement every reading is written to.
const Measurement = "lightwave_feature"

const subscriberID = "telemetry"

// PointWriter accepts points; api.WriteAPI satisfies it.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// converters turn a raw reading into its recorded unit. Keys without a
// converter are not recorded.
var converters = map[string]func(model.Value) *float64{
	model.KeyPower:        raw,
	model.KeyEnergy:       raw,
	model.KeyRSSI:         raw,
	model.KeyBatteryLevel: raw,
	model.KeyVoltage:      raw,
	model.KeyCurrent:      raw,
	model.KeyTemperature:  codec.Tenths,
	model.KeyLightLevel:   codec.Illuminance,
}

func raw(v model.Value) *float64 {
	n, ok := v.Get()
	if !ok {
		return nil
	}
	f := float64(n)
	return &f
}

// Recorder is a dispatch subscriber writing sensor readings as points.
type Recorder struct {
	logger *zap.Logger
	writer PointWriter
	clock  clock.Clock
}

// NewRecorder creates a recorder stamping points with c.
func NewRecorder(writer PointWriter, c clock.Clock, logger *zap.Logger) *Recorder {
	return &Recorder{
		logger: logger,
		writer: writer,
		clock:  c,
	}
}

// Start registers the recorder for every feature set.
func (r *Recorder) Start(registry *dispatch.Registry) *dispatch.Subscription {
	return registry.RegisterGeneral(subscriberID, r.HandleEvent)
}

// Point converts an event into a point. It returns false for features
// that are not recorded and for null readings.
func (r *Recorder) Point(ev dispatch.Event) (*write.Point, bool) {
	convert, ok := converters[ev.FeatureKey]
	if !ok {
		return nil, false
	}
	value := convert(ev.Value)
	if value == nil {
		return nil, false
	}

	return write.NewPoint(
		Measurement,
		map[string]string{
			"featureset_id": ev.FeatureSetID,
			"feature":       ev.FeatureKey,
		},
		map[string]interface{}{
			"value": *value,
		},
		r.clock.Now(),
	), true
}

// HandleEvent is the recorder's dispatch callback.
func (r *Recorder) HandleEvent(ev dispatch.Event) error {
	p, ok := r.Point(ev)
	if !ok {
		return nil
	}
	r.writer.WritePoint(p)
	r.logger.Debug("Recorded reading",
		zap.String("featureset_id", ev.FeatureSetID),
		zap.String("feature", ev.FeatureKey))
	return nil
}

// RecordAll writes the current readings of every feature set, so a new
// series does not start empty.
func (r *Recorder) RecordAll(sets []model.FeatureSet) int {
	n := 0
	for _, fs := range sets {
		for key, f := range fs.Features {
			p, ok := r.Point(dispatch.Event{FeatureSetID: fs.ID, FeatureKey: key, FeatureID: f.ID, Value: f.State})
			if !ok {
				continue
			}
			r.writer.WritePoint(p)
			n++
		}
	}
	return n
}
