// Package session ties one hub connection to the state it feeds.
//
// A Session owns exactly one Store, one Registry and one Writer. Nothing
// is shared between sessions; consumers get the session passed to them.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"lightwave/internal/clock"
	"lightwave/internal/codec"
	"lightwave/internal/command"
	"lightwave/internal/dispatch"
	"lightwave/internal/hub"
	"lightwave/internal/model"
	"lightwave/internal/state"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("session already started")

// Session is one hub connection with its feature store, subscriber table
// and command writer.
type Session struct {
	id       string
	logger   *zap.Logger
	clock    clock.Clock
	client   hub.Client
	store    *state.Store
	registry *dispatch.Registry
	writer   *command.Writer

	// updateMu makes applying an update and dispatching it one step.
	updateMu sync.Mutex

	lastEvent time.Time
	started   bool
	mu        sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the clock used for last-event timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// New creates a session around a hub client. Call Start to load the
// hierarchy and begin receiving updates.
func New(client hub.Client, logger *zap.Logger, opts ...Option) *Session {
	id := uuid.NewString()
	logger = logger.With(zap.String("session_id", id))

	store := state.NewStore(logger)
	s := &Session{
		id:       id,
		logger:   logger,
		clock:    clock.NewRealClock(),
		client:   client,
		store:    store,
		registry: dispatch.NewRegistry(logger),
		writer:   command.NewWriter(client, store, logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string                   { return s.id }
func (s *Session) Store() *state.Store          { return s.store }
func (s *Session) Registry() *dispatch.Registry { return s.registry }
func (s *Session) Writer() *command.Writer      { return s.writer }

// Start fetches the hierarchy, loads it into the store and subscribes to
// the hub's update stream. A failed Start may be retried.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if err := s.start(ctx); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) start(ctx context.Context) error {
	s.logger.Info("Starting hub session")

	sets, err := s.client.FetchHierarchy(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch hierarchy: %w", err)
	}

	s.updateMu.Lock()
	s.store.Load(sets)
	s.updateMu.Unlock()

	for _, fs := range sets {
		s.writer.Observe(fs)
	}

	if err := s.client.RegisterGeneralCallback(func(u hub.Update) {
		if err := s.HandleUpdate(u); err != nil {
			s.logger.Warn("Dropped hub update",
				zap.String("feature_id", u.FeatureID),
				zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("failed to register with hub: %w", err)
	}

	s.logger.Info("Hub session started", zap.Int("featuresets", len(sets)))
	return nil
}

// HandleUpdate applies one raw hub update to the store and dispatches it.
// Updates are handled strictly one at a time, so every subscriber sees
// the store as it was right after its own update.
func (s *Session) HandleUpdate(u hub.Update) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	featuresetID, key, err := s.store.ApplyFeatureUpdate(u.FeatureID, u.Value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.lastEvent = s.clock.Now()
	s.mu.Unlock()

	if key == model.KeyTargetTemperature || key == model.KeyValveLevel || key == model.KeyCallForHeat {
		if fs, err := s.store.Snapshot(featuresetID); err == nil {
			s.writer.Observe(fs)
		}
	}

	return s.registry.Dispatch(dispatch.Update{
		FeatureSetID: featuresetID,
		FeatureKey:   key,
		FeatureID:    u.FeatureID,
		Value:        u.Value,
		Payload:      u.Payload,
	})
}

// LastEventTime is when the last hub update was applied. It is zero until
// the first update.
func (s *Session) LastEventTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}

// RefreshStates re-reads the hierarchy from the hub and dispatches every
// feature whose value changed. Feature sets that left the hierarchy are
// dropped. It returns the number of changed features.
func (s *Session) RefreshStates(ctx context.Context) (int, error) {
	sets, err := s.client.FetchHierarchy(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch hierarchy: %w", err)
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	var changed []dispatch.Update
	seen := make(map[string]bool, len(sets))
	for _, fs := range sets {
		seen[fs.ID] = true
		old, err := s.store.Snapshot(fs.ID)
		if err != nil {
			continue
		}
		for key, f := range fs.Features {
			prev, ok := old.Features[key]
			if !ok || prev.State == f.State || codec.IsButtonKey(key) {
				continue
			}
			changed = append(changed, dispatch.Update{
				FeatureSetID: fs.ID,
				FeatureKey:   key,
				FeatureID:    f.ID,
				Value:        f.State,
			})
		}
	}

	for _, id := range s.store.FeatureSetIDs() {
		if !seen[id] {
			s.writer.Forget(id)
			s.logger.Info("Feature set left the hierarchy", zap.String("featureset_id", id))
		}
	}

	s.store.Load(sets)
	for _, fs := range sets {
		s.writer.Observe(fs)
	}

	sort.Slice(changed, func(i, j int) bool {
		if changed[i].FeatureSetID != changed[j].FeatureSetID {
			return changed[i].FeatureSetID < changed[j].FeatureSetID
		}
		return changed[i].FeatureKey < changed[j].FeatureKey
	})
	for _, u := range changed {
		if err := s.registry.Dispatch(u); err != nil {
			s.logger.Warn("Refresh dispatch failed",
				zap.String("featureset_id", u.FeatureSetID),
				zap.String("feature", u.FeatureKey),
				zap.Error(err))
		}
	}

	s.logger.Info("Feature set states refreshed", zap.Int("changed", len(changed)))
	return len(changed), nil
}

// MissingDevices returns the ids in known that the hub no longer reports,
// sorted.
func (s *Session) MissingDevices(known []string) []string {
	var missing []string
	for _, id := range known {
		if !s.store.Has(id) {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

// Close releases the hub client and empties the store.
func (s *Session) Close() error {
	s.logger.Info("Closing hub session")

	err := s.client.Close()

	s.updateMu.Lock()
	s.store.Clear()
	s.updateMu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to close hub client: %w", err)
	}
	return nil
}
