package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lightwave/internal/codec"
	"lightwave/internal/command"
	"lightwave/internal/dispatch"
	"lightwave/internal/model"

	"go.uber.org/zap"
)

// subscriberID is the bridge's id in the dispatch registry.
const subscriberID = "mqtt-bridge"

const commandTimeout = 10 * time.Second

// clickEvent is the event type published for hub button presses.
const clickEvent = "click"

// Publisher is the part of Client the bridge needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Snapshotter hands out feature set copies.
type Snapshotter interface {
	Snapshot(featuresetID string) (model.FeatureSet, error)
	Snapshots() []model.FeatureSet
}

// Executor runs named commands.
type Executor interface {
	Execute(ctx context.Context, featuresetID string, req command.Request) error
}

// Bridge mirrors dispatched feature changes onto MQTT and turns command
// topics into writes.
type Bridge struct {
	logger   *zap.Logger
	pub      Publisher
	topics   Topics
	qos      byte
	features Snapshotter
	commands Executor
}

// NewBridge creates a bridge publishing under prefix.
func NewBridge(pub Publisher, prefix string, qos byte, features Snapshotter, commands Executor, logger *zap.Logger) *Bridge {
	return &Bridge{
		logger:   logger,
		pub:      pub,
		topics:   Topics{Prefix: prefix},
		qos:      qos,
		features: features,
		commands: commands,
	}
}

// Start publishes the current state of every feature set, subscribes to
// command topics and registers the bridge as a general subscriber.
func (b *Bridge) Start(registry *dispatch.Registry) (*dispatch.Subscription, error) {
	for _, fs := range b.features.Snapshots() {
		if err := b.publishFeatureSet(fs); err != nil {
			return nil, err
		}
	}

	if err := b.pub.Subscribe(b.topics.AllSets(), b.qos, b.HandleCommand); err != nil {
		return nil, fmt.Errorf("failed to subscribe to command topics: %w", err)
	}

	b.logger.Info("MQTT bridge started", zap.String("commands", b.topics.AllSets()))
	return registry.RegisterGeneral(subscriberID, b.HandleEvent), nil
}

func (b *Bridge) publishFeatureSet(fs model.FeatureSet) error {
	for key, f := range fs.Features {
		if codec.IsButtonKey(key) {
			continue
		}
		if err := b.publishValue(fs.ID, key, f.State); err != nil {
			return err
		}
	}
	if fs.IsClimate() {
		return b.publishClimate(fs)
	}
	return nil
}

func (b *Bridge) publishValue(featuresetID, key string, v model.Value) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.pub.Publish(b.topics.Feature(featuresetID, key), payload, b.qos, true)
}

func (b *Bridge) publishClimate(fs model.FeatureSet) error {
	payload, err := json.Marshal(codec.DeriveClimate(fs))
	if err != nil {
		return err
	}
	return b.pub.Publish(b.topics.Climate(fs.ID), payload, b.qos, true)
}

// publishClick announces a hub button press. The pressed code is also
// kept as the retained buttonPress value.
func (b *Bridge) publishClick(ev dispatch.Event) error {
	payload, err := json.Marshal(map[string]interface{}{
		"event_type": clickEvent,
		"feature":    ev.FeatureKey,
		"code":       ev.Value,
	})
	if err != nil {
		return err
	}
	return b.pub.Publish(b.topics.Event(ev.FeatureSetID), payload, b.qos, false)
}

// HandleEvent is the bridge's dispatch callback.
func (b *Bridge) HandleEvent(ev dispatch.Event) error {
	if ev.ButtonEvent != "" {
		payload, err := json.Marshal(map[string]string{
			"event_type": ev.ButtonEvent,
			"feature":    ev.FeatureKey,
		})
		if err != nil {
			return err
		}
		return b.pub.Publish(b.topics.Event(ev.FeatureSetID), payload, b.qos, false)
	}

	if ev.Click {
		if err := b.publishClick(ev); err != nil {
			return err
		}
	}

	if err := b.publishValue(ev.FeatureSetID, ev.FeatureKey, ev.Value); err != nil {
		return err
	}

	fs, err := b.features.Snapshot(ev.FeatureSetID)
	if err != nil {
		return err
	}
	if fs.IsClimate() {
		return b.publishClimate(fs)
	}
	return nil
}

// HandleCommand runs a message from <prefix>/<featureset>/set/<command>.
// The payload is the command's JSON value and may be empty.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	featuresetID, name, err := b.topics.ParseSet(topic)
	if err != nil {
		return err
	}

	b.logger.Debug("MQTT command",
		zap.String("featureset_id", featuresetID),
		zap.String("command", name),
		zap.ByteString("payload", payload))

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	req := command.Request{Command: name}
	if len(payload) > 0 {
		req.Value = json.RawMessage(payload)
	}
	if err := b.commands.Execute(ctx, featuresetID, req); err != nil {
		return fmt.Errorf("command %s on %s: %w", name, featuresetID, err)
	}
	return nil
}
