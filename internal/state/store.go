// Package state holds the in-memory copy of the hub's device graph. The
// Store is the only place raw feature values are mutated.
package state

import (
	"fmt"
	"sort"
	"sync"

	"lightwave/internal/model"

	"go.uber.org/zap"
)

// featureRef locates a feature by its hub-wide id.
type featureRef struct {
	featuresetID string
	key          string
}

// Store maps feature set ids to feature sets and their raw values.
type Store struct {
	logger      *zap.Logger
	featuresets map[string]*model.FeatureSet
	byFeatureID map[string]featureRef
	mu          sync.RWMutex
}

// NewStore creates an empty store
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger:      logger,
		featuresets: make(map[string]*model.FeatureSet),
		byFeatureID: make(map[string]featureRef),
	}
}

// Load replaces the whole graph with the result of a hierarchy fetch.
func (s *Store) Load(sets []model.FeatureSet) {
	featuresets := make(map[string]*model.FeatureSet, len(sets))
	byFeatureID := make(map[string]featureRef)

	for _, fs := range sets {
		clone := fs.Clone()
		featuresets[fs.ID] = &clone
		for key, f := range clone.Features {
			byFeatureID[f.ID] = featureRef{featuresetID: fs.ID, key: key}
		}
	}

	s.mu.Lock()
	s.featuresets = featuresets
	s.byFeatureID = byFeatureID
	s.mu.Unlock()

	s.logger.Info("Feature sets loaded", zap.Int("count", len(sets)))
}

// Remove drops a feature set that disappeared from the hierarchy.
func (s *Store) Remove(featuresetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.featuresets[featuresetID]
	if !ok {
		return
	}
	for _, f := range fs.Features {
		delete(s.byFeatureID, f.ID)
	}
	delete(s.featuresets, featuresetID)
}

// Clear empties the store when the hub session ends.
func (s *Store) Clear() {
	s.Load(nil)
}

// ApplyUpdate overwrites the stored raw value of a feature.
func (s *Store) ApplyUpdate(featuresetID, key string, value model.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fs, ok := s.featuresets[featuresetID]
	if !ok {
		return fmt.Errorf("feature set %s: %w", featuresetID, ErrNotFound)
	}
	f, ok := fs.Features[key]
	if !ok {
		return fmt.Errorf("feature %s on %s: %w", key, featuresetID, ErrNotFound)
	}

	old := f.State
	f.State = value
	fs.Features[key] = f

	s.logger.Debug("Feature updated",
		zap.String("featureset_id", featuresetID),
		zap.String("feature", key),
		zap.Stringer("old", old),
		zap.Stringer("new", value))
	return nil
}

// ApplyFeatureUpdate is ApplyUpdate addressed by hub feature id. It
// returns where the feature lives so the caller can dispatch.
func (s *Store) ApplyFeatureUpdate(featureID string, value model.Value) (string, string, error) {
	featuresetID, key, err := s.Lookup(featureID)
	if err != nil {
		return "", "", err
	}
	if err := s.ApplyUpdate(featuresetID, key, value); err != nil {
		return "", "", err
	}
	return featuresetID, key, nil
}

// Get returns the raw value of a feature. The value may be null.
func (s *Store) Get(featuresetID, key string) (model.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.featuresets[featuresetID]
	if !ok {
		return model.Null(), fmt.Errorf("feature set %s: %w", featuresetID, ErrNotFound)
	}
	f, ok := fs.Features[key]
	if !ok {
		return model.Null(), fmt.Errorf("feature %s on %s: %w", key, featuresetID, ErrNotFound)
	}
	return f.State, nil
}

// FeatureID returns the hub id of a feature, for writes.
func (s *Store) FeatureID(featuresetID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.featuresets[featuresetID]
	if !ok {
		return "", fmt.Errorf("feature set %s: %w", featuresetID, ErrNotFound)
	}
	f, ok := fs.Features[key]
	if !ok {
		return "", fmt.Errorf("feature %s on %s: %w", key, featuresetID, ErrNotFound)
	}
	return f.ID, nil
}

// Lookup resolves a hub feature id to its feature set and key.
func (s *Store) Lookup(featureID string) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.byFeatureID[featureID]
	if !ok {
		return "", "", fmt.Errorf("feature id %s: %w", featureID, ErrNotFound)
	}
	return ref.featuresetID, ref.key, nil
}

// Snapshot returns an independent copy of a feature set. Later updates
// do not show through it.
func (s *Store) Snapshot(featuresetID string) (model.FeatureSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.featuresets[featuresetID]
	if !ok {
		return model.FeatureSet{}, fmt.Errorf("feature set %s: %w", featuresetID, ErrNotFound)
	}
	return fs.Clone(), nil
}

// Snapshots copies every feature set, ordered by id.
func (s *Store) Snapshots() []model.FeatureSet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.FeatureSet, 0, len(s.featuresets))
	for _, fs := range s.featuresets {
		out = append(out, fs.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FeatureSetIDs returns the known feature set ids, sorted.
func (s *Store) FeatureSetIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.featuresets))
	for id := range s.featuresets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether a feature set is known.
func (s *Store) Has(featuresetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.featuresets[featuresetID]
	return ok
}
