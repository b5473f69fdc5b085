package state

import (
	"testing"

	"lightwave/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testSets() []model.FeatureSet {
	return []model.FeatureSet{
		{
			ID:   "dimmer-1",
			Name: "Kitchen",
			Features: map[string]model.Feature{
				model.KeySwitch:   {ID: "f1", Key: model.KeySwitch, State: model.Int(1)},
				model.KeyDimLevel: {ID: "f2", Key: model.KeyDimLevel, State: model.Null()},
			},
		},
		{
			ID:   "trv-1",
			Name: "Lounge",
			Features: map[string]model.Feature{
				model.KeyValveLevel: {ID: "f3", Key: model.KeyValveLevel, State: model.Int(80)},
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(zap.NewNop())
	s.Load(testSets())
	return s
}

func TestStore_Get(t *testing.T) {
	s := newTestStore(t)

	t.Run("reported value", func(t *testing.T) {
		v, err := s.Get("dimmer-1", model.KeySwitch)
		require.NoError(t, err)
		assert.Equal(t, model.Int(1), v)
	})

	t.Run("null is not an error", func(t *testing.T) {
		v, err := s.Get("dimmer-1", model.KeyDimLevel)
		require.NoError(t, err)
		assert.True(t, v.IsNull())
	})

	t.Run("unknown feature set", func(t *testing.T) {
		_, err := s.Get("nope", model.KeySwitch)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := s.Get("dimmer-1", model.KeyValveLevel)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ApplyUpdate(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.ApplyUpdate("dimmer-1", model.KeyDimLevel, model.Int(0)))
	v, err := s.Get("dimmer-1", model.KeyDimLevel)
	require.NoError(t, err)
	assert.Equal(t, model.Int(0), v)
	assert.False(t, v.IsNull(), "0 must stay distinct from null")

	require.NoError(t, s.ApplyUpdate("dimmer-1", model.KeyDimLevel, model.Null()))
	v, _ = s.Get("dimmer-1", model.KeyDimLevel)
	assert.True(t, v.IsNull())

	assert.ErrorIs(t, s.ApplyUpdate("nope", model.KeySwitch, model.Int(1)), ErrNotFound)
	assert.ErrorIs(t, s.ApplyUpdate("dimmer-1", "bogus", model.Int(1)), ErrNotFound)
}

func TestStore_ApplyFeatureUpdate(t *testing.T) {
	s := newTestStore(t)

	setID, key, err := s.ApplyFeatureUpdate("f3", model.Int(40))
	require.NoError(t, err)
	assert.Equal(t, "trv-1", setID)
	assert.Equal(t, model.KeyValveLevel, key)

	v, _ := s.Get("trv-1", model.KeyValveLevel)
	assert.Equal(t, model.Int(40), v)

	_, _, err = s.ApplyFeatureUpdate("f99", model.Int(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	s := newTestStore(t)

	snap, err := s.Snapshot("dimmer-1")
	require.NoError(t, err)

	require.NoError(t, s.ApplyUpdate("dimmer-1", model.KeySwitch, model.Int(0)))
	assert.Equal(t, model.Int(1), snap.State(model.KeySwitch), "snapshot must not see later updates")

	snap.Features[model.KeySwitch] = model.Feature{ID: "f1", Key: model.KeySwitch, State: model.Int(7)}
	v, _ := s.Get("dimmer-1", model.KeySwitch)
	assert.Equal(t, model.Int(0), v, "mutating a snapshot must not reach the store")

	_, err = s.Snapshot("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadDoesNotAliasInput(t *testing.T) {
	sets := testSets()
	s := NewStore(zap.NewNop())
	s.Load(sets)

	sets[0].Features[model.KeySwitch] = model.Feature{ID: "f1", Key: model.KeySwitch, State: model.Int(9)}
	v, _ := s.Get("dimmer-1", model.KeySwitch)
	assert.Equal(t, model.Int(1), v)
}

func TestStore_RemoveAndClear(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, []string{"dimmer-1", "trv-1"}, s.FeatureSetIDs())

	s.Remove("trv-1")
	assert.False(t, s.Has("trv-1"))
	_, _, err := s.Lookup("f3")
	assert.ErrorIs(t, err, ErrNotFound)

	s.Clear()
	assert.Empty(t, s.Snapshots())
}

func TestStore_FeatureID(t *testing.T) {
	s := newTestStore(t)

	id, err := s.FeatureID("trv-1", model.KeyValveLevel)
	require.NoError(t, err)
	assert.Equal(t, "f3", id)

	_, err = s.FeatureID("trv-1", model.KeyProtection)
	assert.ErrorIs(t, err, ErrNotFound)
}
