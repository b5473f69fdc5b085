package command

import (
	"context"
	"errors"
	"testing"

	"lightwave/internal/codec"
	"lightwave/internal/hub"
	"lightwave/internal/model"
	"lightwave/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func feature(id, key string, v model.Value) model.Feature {
	return model.Feature{ID: id, Key: key, State: v}
}

func testSets() []model.FeatureSet {
	return []model.FeatureSet{
		{
			ID: "trv-1",
			Features: map[string]model.Feature{
				model.KeyValveLevel:        feature("trv-valve", model.KeyValveLevel, model.Int(100)),
				model.KeyTargetTemperature: feature("trv-target", model.KeyTargetTemperature, model.Int(35)),
				model.KeyHeatState:         feature("trv-heat", model.KeyHeatState, model.Int(1)),
				model.KeyTargetHumidity:    feature("trv-humidity", model.KeyTargetHumidity, model.Null()),
				model.KeyProtection:        feature("trv-lock", model.KeyProtection, model.Int(0)),
			},
		},
		{
			ID: "stat-1",
			Features: map[string]model.Feature{
				model.KeyTargetTemperature: feature("stat-target", model.KeyTargetTemperature, model.Null()),
			},
		},
		{
			ID: "dimmer-1",
			Features: map[string]model.Feature{
				model.KeySwitch:      feature("dim-switch", model.KeySwitch, model.Int(0)),
				model.KeyDimLevel:    feature("dim-level", model.KeyDimLevel, model.Int(50)),
				model.KeyRGBColor:    feature("dim-led", model.KeyRGBColor, model.Int(0)),
				model.KeyUIIndicator: feature("dim-indicator", model.KeyUIIndicator, model.Int(0)),
			},
		},
		{
			ID: "blind-1",
			Features: map[string]model.Feature{
				model.KeyThreeWayRelay: feature("blind-relay", model.KeyThreeWayRelay, model.Int(0)),
			},
		},
	}
}

func newTestWriter(t *testing.T) (*Writer, *hub.MemoryClient, *state.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := state.NewStore(logger)
	store.Load(testSets())
	client := hub.NewMemoryClient(nil, logger)
	t.Cleanup(func() { client.Close() })
	return NewWriter(client, store, logger), client, store
}

func lastWrite(t *testing.T, c *hub.MemoryClient) hub.Write {
	t.Helper()
	writes := c.Writes()
	require.NotEmpty(t, writes)
	return writes[len(writes)-1]
}

func TestWriter_SetTemperature(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	require.NoError(t, w.SetTemperature(ctx, "trv-1", 21.5))
	assert.Equal(t, "trv-target", lastWrite(t, client).FeatureID)
	assert.Equal(t, 215, lastWrite(t, client).Value)

	got, ok := w.LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 21.5, got)

	t.Run("out of range", func(t *testing.T) {
		client.ClearWrites()
		assert.ErrorIs(t, w.SetTemperature(ctx, "trv-1", 41), ErrOutOfRange)
		assert.ErrorIs(t, w.SetTemperature(ctx, "trv-1", -1), ErrOutOfRange)
		assert.Empty(t, client.Writes())
	})

	t.Run("unknown feature set", func(t *testing.T) {
		assert.ErrorIs(t, w.SetTemperature(ctx, "nope", 20), state.ErrNotFound)
	})
}

func TestWriter_SetBrightness(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	require.NoError(t, w.SetBrightness(ctx, "dimmer-1", 75))
	assert.Equal(t, hub.Write{FeatureID: "dim-level", Value: 75, Time: lastWrite(t, client).Time}, lastWrite(t, client))

	assert.ErrorIs(t, w.SetBrightness(ctx, "dimmer-1", 101), ErrOutOfRange)
	assert.ErrorIs(t, w.SetBrightness(ctx, "trv-1", 50), state.ErrNotFound)
}

func TestWriter_SetColor(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		hue        codec.RGB
		brightness int
		key        string
		wantID     string
		want       int
	}{
		{"full red default key", codec.RGB{R: 255}, 255, "", "dim-led", 0xFF0000},
		{"half white", codec.White, 128, model.KeyRGBColor, "dim-led", 0x808080},
		{"indicator", codec.RGB{G: 255, B: 255}, 255, model.KeyUIIndicator, "dim-indicator", 0x00FFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, w.SetColor(ctx, "dimmer-1", tt.hue, tt.brightness, tt.key))
			got := lastWrite(t, client)
			assert.Equal(t, tt.wantID, got.FeatureID)
			assert.Equal(t, tt.want, got.Value)
		})
	}

	t.Run("off", func(t *testing.T) {
		require.NoError(t, w.TurnOffColor(ctx, "dimmer-1", ""))
		assert.Equal(t, 0, lastWrite(t, client).Value)
	})

	t.Run("missing offLed", func(t *testing.T) {
		assert.ErrorIs(t, w.TurnOffColor(ctx, "dimmer-1", model.KeyOffLED), state.ErrNotFound)
	})
}

func TestWriter_SetPresetMode(t *testing.T) {
	ctx := context.Background()

	t.Run("percentage writes valve level", func(t *testing.T) {
		w, client, _ := newTestWriter(t)
		require.NoError(t, w.SetPresetMode(ctx, "trv-1", codec.Preset60))
		assert.Equal(t, "trv-valve", lastWrite(t, client).FeatureID)
		assert.Equal(t, 60, lastWrite(t, client).Value)
	})

	t.Run("auto restores explicit target", func(t *testing.T) {
		w, client, _ := newTestWriter(t)
		require.NoError(t, w.SetTemperature(ctx, "trv-1", 19))
		require.NoError(t, w.SetPresetMode(ctx, "trv-1", codec.Preset100))
		require.NoError(t, w.SetPresetMode(ctx, "trv-1", codec.PresetAuto))

		got := lastWrite(t, client)
		assert.Equal(t, "trv-target", got.FeatureID)
		assert.Equal(t, 190, got.Value)
	})

	t.Run("auto falls back to observed target", func(t *testing.T) {
		w, client, _ := newTestWriter(t)
		require.NoError(t, w.SetPresetMode(ctx, "trv-1", codec.PresetAuto))
		assert.Equal(t, 35, lastWrite(t, client).Value)
	})

	t.Run("auto without any target", func(t *testing.T) {
		w, client, _ := newTestWriter(t)
		assert.ErrorIs(t, w.SetPresetMode(ctx, "stat-1", codec.PresetAuto), ErrNoTargetTemperature)
		assert.Empty(t, client.Writes())
	})

	t.Run("unknown preset", func(t *testing.T) {
		w, _, _ := newTestWriter(t)
		assert.ErrorIs(t, w.SetPresetMode(ctx, "trv-1", "50%"), ErrUnknownPreset)
	})

	t.Run("percentage without valve", func(t *testing.T) {
		w, _, _ := newTestWriter(t)
		assert.ErrorIs(t, w.SetPresetMode(ctx, "stat-1", codec.Preset20), state.ErrNotFound)
	})
}

func TestWriter_Observe(t *testing.T) {
	w, _, store := newTestWriter(t)

	fs, err := store.Snapshot("trv-1")
	require.NoError(t, err)
	w.Observe(fs)

	got, ok := w.LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 3.5, got)

	// 100% preset: observed target is not a restore point.
	require.NoError(t, store.ApplyUpdate("trv-1", model.KeyTargetTemperature, model.Int(210)))
	fs, err = store.Snapshot("trv-1")
	require.NoError(t, err)
	w.Observe(fs)
	got, _ = w.LastTargetTemperature("trv-1")
	assert.Equal(t, 3.5, got)

	w.Forget("trv-1")
	_, ok = w.LastTargetTemperature("trv-1")
	assert.False(t, ok)
}

func TestWriter_ObserveKeepsExplicitTarget(t *testing.T) {
	w, _, store := newTestWriter(t)
	require.NoError(t, w.SetTemperature(context.Background(), "trv-1", 19))

	// An Auto reading arriving later does not replace the explicit target.
	require.NoError(t, store.ApplyUpdate("trv-1", model.KeyTargetTemperature, model.Int(30)))
	fs, err := store.Snapshot("trv-1")
	require.NoError(t, err)
	w.Observe(fs)

	got, ok := w.LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 19.0, got)
}

func TestWriter_FailedSetTemperatureNotRemembered(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	require.NoError(t, w.SetTemperature(ctx, "trv-1", 19))
	client.FailWrites(errors.New("link down"))
	require.Error(t, w.SetTemperature(ctx, "trv-1", 25))
	client.FailWrites(nil)

	got, ok := w.LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 19.0, got)

	require.NoError(t, w.SetPresetMode(ctx, "trv-1", codec.PresetAuto))
	assert.Equal(t, 190, lastWrite(t, client).Value)
}

func TestWriter_SetLock(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	require.NoError(t, w.SetLock(ctx, "trv-1", true))
	require.NoError(t, w.SetLock(ctx, "trv-1", true))

	writes := client.Writes()
	require.Len(t, writes, 2)
	for _, wr := range writes {
		assert.Equal(t, "trv-lock", wr.FeatureID)
		assert.Equal(t, 1, wr.Value)
	}

	require.NoError(t, w.SetLock(ctx, "trv-1", false))
	assert.Equal(t, 0, lastWrite(t, client).Value)
}

func TestWriter_SwitchHVACHumidityCover(t *testing.T) {
	w, client, _ := newTestWriter(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		call   func() error
		wantID string
		want   int
	}{
		{"turn on", func() error { return w.TurnOn(ctx, "dimmer-1") }, "dim-switch", 1},
		{"turn off", func() error { return w.TurnOff(ctx, "dimmer-1") }, "dim-switch", 0},
		{"hvac heat", func() error { return w.SetHVACMode(ctx, "trv-1", codec.HVACModeHeat) }, "trv-heat", 1},
		{"hvac off", func() error { return w.SetHVACMode(ctx, "trv-1", codec.HVACModeOff) }, "trv-heat", 0},
		{"humidity", func() error { return w.SetHumidity(ctx, "trv-1", 45) }, "trv-humidity", 45},
		{"cover open", func() error { return w.CoverOpen(ctx, "blind-1") }, "blind-relay", CoverOpen},
		{"cover close", func() error { return w.CoverClose(ctx, "blind-1") }, "blind-relay", CoverClose},
		{"cover stop", func() error { return w.CoverStop(ctx, "blind-1") }, "blind-relay", CoverStop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			got := lastWrite(t, client)
			assert.Equal(t, tt.wantID, got.FeatureID)
			assert.Equal(t, tt.want, got.Value)
		})
	}

	assert.ErrorIs(t, w.SetHVACMode(ctx, "trv-1", "cool"), ErrUnknownHVACMode)
	assert.ErrorIs(t, w.SetHumidity(ctx, "trv-1", 120), ErrOutOfRange)
}

func TestWriter_HubErrorPropagates(t *testing.T) {
	w, client, _ := newTestWriter(t)
	boom := errors.New("link down")
	client.FailWrites(boom)

	err := w.TurnOn(context.Background(), "dimmer-1")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, client.Writes())
}
