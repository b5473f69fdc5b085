// Package dispatch fans decoded feature changes out to subscribers.
//
// Subscribers register either for one feature set or generally (every
// feature set). Each update reaches each subscriber at most once, in
// registration order, and one failing subscriber never stops delivery to
// the rest.
package dispatch

import (
	"fmt"
	"sort"
	"sync"

	"lightwave/internal/codec"
	"lightwave/internal/model"

	"go.uber.org/zap"
)

// general is the pseudo feature set id used for wildcard subscriptions.
const general = "*"

// Update is a raw change as delivered by the hub client.
type Update struct {
	FeatureSetID string
	FeatureKey   string
	FeatureID    string
	Value        model.Value
	// Payload is the structured part of button updates.
	Payload map[string]interface{}
}

// Event is the decoded change handed to subscribers.
type Event struct {
	FeatureSetID string      `json:"featureset_id"`
	FeatureKey   string      `json:"feature"`
	FeatureID    string      `json:"feature_id"`
	Value        model.Value `json:"value"`
	// ButtonEvent is set for uiButton and uiButtonPair updates,
	// e.g. "Up.Short.2".
	ButtonEvent string `json:"button_event,omitempty"`
	// Click is set for hub buttonPress updates; Value carries the code.
	Click bool `json:"click,omitempty"`
}

// Callback receives decoded events. A returned error is logged and
// otherwise ignored.
type Callback func(Event) error

// Subscription is the handle returned by registration.
type Subscription struct {
	id           uint64
	featuresetID string
	subscriberID string
	registry     *Registry
}

// Unsubscribe removes this subscription. Calling it twice is harmless.
func (s *Subscription) Unsubscribe() {
	s.registry.Unregister(s)
}

// FeatureSetID is the subscribed feature set, or "" for a general
// subscription.
func (s *Subscription) FeatureSetID() string {
	if s.featuresetID == general {
		return ""
	}
	return s.featuresetID
}

// SubscriberID identifies the owner of the subscription.
func (s *Subscription) SubscriberID() string {
	return s.subscriberID
}

type entry struct {
	sub      *Subscription
	seq      uint64
	callback Callback
}

// Registry is the subscription table for one hub session.
type Registry struct {
	logger  *zap.Logger
	entries map[string][]*entry
	mu      sync.Mutex
	nextID  uint64
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:  logger,
		entries: make(map[string][]*entry),
	}
}

// RegisterForFeatureSet subscribes to one feature set. Registering the
// same subscriber for the same set again replaces the callback and keeps
// the original position in the delivery order.
func (r *Registry) RegisterForFeatureSet(featuresetID, subscriberID string, cb Callback) *Subscription {
	return r.register(featuresetID, subscriberID, cb)
}

// RegisterGeneral subscribes to every feature set.
func (r *Registry) RegisterGeneral(subscriberID string, cb Callback) *Subscription {
	return r.register(general, subscriberID, cb)
}

func (r *Registry) register(key, subscriberID string, cb Callback) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries[key] {
		if e.sub.subscriberID == subscriberID {
			e.callback = cb
			r.logger.Debug("Subscription replaced",
				zap.String("featureset_id", key),
				zap.String("subscriber", subscriberID))
			return e.sub
		}
	}

	r.nextID++
	sub := &Subscription{
		id:           r.nextID,
		featuresetID: key,
		subscriberID: subscriberID,
		registry:     r,
	}
	r.entries[key] = append(r.entries[key], &entry{sub: sub, seq: r.nextID, callback: cb})
	return sub
}

// Unregister removes a subscription by handle.
func (r *Registry) Unregister(sub *Subscription) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.entries[sub.featuresetID]
	for i, e := range list {
		if e.sub.id == sub.id {
			r.entries[sub.featuresetID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.entries[sub.featuresetID]) == 0 {
		delete(r.entries, sub.featuresetID)
	}
}

// UnregisterSubscriber removes every subscription a subscriber holds.
func (r *Registry) UnregisterSubscriber(subscriberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, list := range r.entries {
		kept := list[:0:0]
		for _, e := range list {
			if e.sub.subscriberID != subscriberID {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(r.entries, key)
			continue
		}
		r.entries[key] = kept
	}
}

// Count returns the number of active subscriptions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, list := range r.entries {
		n += len(list)
	}
	return n
}

// Dispatch decodes an update and delivers it to every subscriber of its
// feature set plus every general subscriber. Button updates that cannot
// be decoded are dropped and returned as an error.
func (r *Registry) Dispatch(u Update) error {
	ev := Event{
		FeatureSetID: u.FeatureSetID,
		FeatureKey:   u.FeatureKey,
		FeatureID:    u.FeatureID,
		Value:        u.Value,
	}

	if codec.IsButtonKey(u.FeatureKey) {
		name, err := decodeButton(u.Payload)
		if err != nil {
			r.logger.Warn("Dropping undecodable button event",
				zap.String("featureset_id", u.FeatureSetID),
				zap.String("feature", u.FeatureKey),
				zap.Error(err))
			return err
		}
		ev.ButtonEvent = name
	}
	if u.FeatureKey == model.KeyButtonPress && !u.Value.IsNull() {
		ev.Click = true
	}

	for _, e := range r.snapshot(u.FeatureSetID) {
		r.invoke(e, ev)
	}
	return nil
}

func decodeButton(payload map[string]interface{}) (string, error) {
	p, err := codec.ParseButtonPayload(payload)
	if err != nil {
		return "", err
	}
	return codec.DecodeButtonEvent(p)
}

// snapshot collects the matching entries under the lock, ordered by
// registration and with one entry per subscriber, so callbacks may
// register or unregister freely while the dispatch runs.
func (r *Registry) snapshot(featuresetID string) []entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]entry, 0, len(r.entries[featuresetID])+len(r.entries[general]))
	for _, e := range r.entries[featuresetID] {
		matched = append(matched, *e)
	}
	if featuresetID != general {
		for _, e := range r.entries[general] {
			matched = append(matched, *e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	seen := make(map[string]bool, len(matched))
	out := matched[:0]
	for _, e := range matched {
		if seen[e.sub.subscriberID] {
			continue
		}
		seen[e.sub.subscriberID] = true
		out = append(out, e)
	}
	return out
}

func (r *Registry) invoke(e entry, ev Event) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Subscriber panicked",
				zap.String("subscriber", e.sub.subscriberID),
				zap.String("featureset_id", ev.FeatureSetID),
				zap.String("feature", ev.FeatureKey),
				zap.String("panic", fmt.Sprint(rec)))
		}
	}()

	if err := e.callback(ev); err != nil {
		r.logger.Error("Subscriber failed",
			zap.String("subscriber", e.sub.subscriberID),
			zap.String("featureset_id", ev.FeatureSetID),
			zap.String("feature", ev.FeatureKey),
			zap.Error(err))
	}
}
