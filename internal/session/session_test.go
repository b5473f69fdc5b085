package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"lightwave/internal/clock"
	"lightwave/internal/codec"
	"lightwave/internal/dispatch"
	"lightwave/internal/hub"
	"lightwave/internal/model"
	"lightwave/internal/state"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHierarchy() []model.FeatureSet {
	return []model.FeatureSet{
		{
			ID: "trv-1",
			Features: map[string]model.Feature{
				model.KeyValveLevel:        {ID: "trv-valve", Key: model.KeyValveLevel, State: model.Int(100)},
				model.KeyTargetTemperature: {ID: "trv-target", Key: model.KeyTargetTemperature, State: model.Int(35)},
				model.KeyProtection:        {ID: "trv-lock", Key: model.KeyProtection, State: model.Int(0)},
			},
		},
		{
			ID: "switch-1",
			Features: map[string]model.Feature{
				model.KeySwitch:       {ID: "sw-switch", Key: model.KeySwitch, State: model.Null()},
				model.KeyUIButtonPair: {ID: "sw-buttons", Key: model.KeyUIButtonPair, State: model.Null()},
			},
		},
	}
}

func newTestSession(t *testing.T, opts ...hub.Option) (*Session, *hub.MemoryClient, *clock.MockClock) {
	t.Helper()
	logger := zap.NewNop()
	mockClock := clock.NewMockClock(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	client := hub.NewMemoryClient(testHierarchy(), logger, opts...)
	s := New(client, logger, WithClock(mockClock))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s, client, mockClock
}

func TestSession_Start(t *testing.T) {
	s, _, _ := newTestSession(t)

	_, err := uuid.Parse(s.ID())
	assert.NoError(t, err)

	assert.Equal(t, []string{"switch-1", "trv-1"}, s.Store().FeatureSetIDs())

	target, ok := s.Writer().LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 3.5, target)

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	assert.True(t, s.LastEventTime().IsZero())
}

func TestSession_StartFetchError(t *testing.T) {
	client := hub.NewMemoryClient(testHierarchy(), zap.NewNop())
	require.NoError(t, client.Close())

	s := New(client, zap.NewNop())
	assert.ErrorIs(t, s.Start(context.Background()), hub.ErrClosed)
}

// flakyClient fails its first hierarchy fetch.
type flakyClient struct {
	*hub.MemoryClient
	failed bool
}

func (c *flakyClient) FetchHierarchy(ctx context.Context) ([]model.FeatureSet, error) {
	if !c.failed {
		c.failed = true
		return nil, errors.New("hub unreachable")
	}
	return c.MemoryClient.FetchHierarchy(ctx)
}

func TestSession_StartRetryAfterFailure(t *testing.T) {
	client := &flakyClient{MemoryClient: hub.NewMemoryClient(testHierarchy(), zap.NewNop())}
	s := New(client, zap.NewNop())
	t.Cleanup(func() { s.Close() })

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyStarted)
	assert.Empty(t, s.Store().FeatureSetIDs())

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"switch-1", "trv-1"}, s.Store().FeatureSetIDs())
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	client.Push(hub.Update{FeatureID: "sw-switch", Value: model.Int(1)})
	v, err := s.Store().Get("switch-1", model.KeySwitch)
	require.NoError(t, err)
	assert.Equal(t, model.Int(1), v)
}

func TestSession_UpdatePath(t *testing.T) {
	s, client, mockClock := newTestSession(t)

	var events []dispatch.Event
	var seen []model.Value
	s.Registry().RegisterForFeatureSet("switch-1", "recorder", func(ev dispatch.Event) error {
		events = append(events, ev)
		// The store already holds the new value during dispatch.
		v, err := s.Store().Get(ev.FeatureSetID, ev.FeatureKey)
		require.NoError(t, err)
		seen = append(seen, v)
		return nil
	})

	mockClock.Advance(time.Minute)
	client.Push(hub.Update{FeatureID: "sw-switch", Value: model.Int(1)})

	require.Len(t, events, 1)
	assert.Equal(t, dispatch.Event{
		FeatureSetID: "switch-1",
		FeatureKey:   model.KeySwitch,
		FeatureID:    "sw-switch",
		Value:        model.Int(1),
	}, events[0])
	assert.Equal(t, []model.Value{model.Int(1)}, seen)
	assert.Equal(t, mockClock.Now(), s.LastEventTime())
}

func TestSession_ButtonUpdates(t *testing.T) {
	s, _, _ := newTestSession(t)

	var got []string
	s.Registry().RegisterGeneral("buttons", func(ev dispatch.Event) error {
		got = append(got, ev.ButtonEvent)
		return nil
	})

	require.NoError(t, s.HandleUpdate(hub.Update{
		FeatureID: "sw-buttons",
		Value:     model.Int(1),
		Payload:   map[string]interface{}{"upDown": "Down", "eventType": "Long"},
	}))

	err := s.HandleUpdate(hub.Update{
		FeatureID: "sw-buttons",
		Value:     model.Int(1),
		Payload:   map[string]interface{}{"upDown": "Sideways", "eventType": "Long"},
	})
	assert.ErrorIs(t, err, codec.ErrDecode)

	assert.Equal(t, []string{"Down.Long"}, got)
}

func TestSession_UnknownFeature(t *testing.T) {
	s, _, _ := newTestSession(t)

	err := s.HandleUpdate(hub.Update{FeatureID: "ghost", Value: model.Int(1)})
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestSession_ObservesClimateTarget(t *testing.T) {
	s, client, _ := newTestSession(t)

	client.Push(hub.Update{FeatureID: "trv-target", Value: model.Int(30)})
	target, ok := s.Writer().LastTargetTemperature("trv-1")
	require.True(t, ok)
	assert.Equal(t, 3.0, target)

	require.NoError(t, s.Writer().SetPresetMode(context.Background(), "trv-1", codec.PresetAuto))
	writes := client.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, hub.Write{FeatureID: "trv-target", Value: 30, Time: writes[len(writes)-1].Time}, writes[len(writes)-1])
}

func TestSession_EchoRoundTrip(t *testing.T) {
	s, _, _ := newTestSession(t, hub.WithEcho())

	got := make(chan dispatch.Event, 1)
	s.Registry().RegisterForFeatureSet("trv-1", "lock-watch", func(ev dispatch.Event) error {
		if ev.FeatureKey == model.KeyProtection {
			got <- ev
		}
		return nil
	})

	require.NoError(t, s.Writer().SetLock(context.Background(), "trv-1", true))

	select {
	case ev := <-got:
		assert.Equal(t, model.Int(1), ev.Value)
	case <-time.After(time.Second):
		t.Fatal("lock change was never dispatched")
	}

	v, err := s.Store().Get("trv-1", model.KeyProtection)
	require.NoError(t, err)
	assert.Equal(t, model.Int(1), v)
}

func TestSession_RefreshStates(t *testing.T) {
	s, client, _ := newTestSession(t)

	var events []dispatch.Event
	s.Registry().RegisterGeneral("recorder", func(ev dispatch.Event) error {
		events = append(events, ev)
		return nil
	})

	// The hub changed underneath us without sending updates.
	sets := testHierarchy()
	f := sets[0].Features[model.KeyValveLevel]
	f.State = model.Int(40)
	sets[0].Features[model.KeyValveLevel] = f
	client.SetHierarchy(sets[:1])

	changed, err := s.RefreshStates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	require.Len(t, events, 1)
	assert.Equal(t, "trv-1", events[0].FeatureSetID)
	assert.Equal(t, model.Int(40), events[0].Value)

	assert.Equal(t, []string{"trv-1"}, s.Store().FeatureSetIDs())
	assert.Equal(t, []string{"switch-1"}, s.MissingDevices([]string{"trv-1", "switch-1"}))
}

func TestSession_RefreshFetchError(t *testing.T) {
	s, client, _ := newTestSession(t)
	require.NoError(t, client.Close())

	_, err := s.RefreshStates(context.Background())
	assert.True(t, errors.Is(err, hub.ErrClosed))
	assert.Len(t, s.Store().FeatureSetIDs(), 2)
}

func TestSession_Close(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.Close())
	assert.Empty(t, s.Store().FeatureSetIDs())
}
