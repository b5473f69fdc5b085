package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lightwave/internal/clock"
	"lightwave/internal/model"

	"go.uber.org/zap"
)

// ErrClosed is returned by a MemoryClient after Close.
var ErrClosed = errors.New("hub: client closed")

// MemoryClient is a Client backed by an in-memory hierarchy. It records
// every write. With echo enabled, each write comes back as an Update on a
// separate goroutine, the way a real hub confirms a change.
type MemoryClient struct {
	logger *zap.Logger
	clock  clock.Clock

	sets     map[string]model.FeatureSet
	order    []string
	setOf    map[string]string
	setsMu   sync.RWMutex
	writes   []Write
	writeErr error
	writesMu sync.Mutex

	featureHandlers map[string][]UpdateHandler
	generalHandlers []UpdateHandler
	handlersMu      sync.RWMutex

	echo    chan Update
	done    chan struct{}
	closed  bool
	closeMu sync.Mutex
}

// Option configures a MemoryClient.
type Option func(*MemoryClient)

// WithEcho makes every successful write come back as an update.
func WithEcho() Option {
	return func(m *MemoryClient) {
		m.echo = make(chan Update, 64)
	}
}

// WithClock sets the clock used to stamp writes.
func WithClock(c clock.Clock) Option {
	return func(m *MemoryClient) {
		m.clock = c
	}
}

// NewMemoryClient creates a client serving the given hierarchy.
func NewMemoryClient(sets []model.FeatureSet, logger *zap.Logger, opts ...Option) *MemoryClient {
	m := &MemoryClient{
		logger:          logger,
		clock:           clock.NewRealClock(),
		sets:            make(map[string]model.FeatureSet),
		setOf:           make(map[string]string),
		featureHandlers: make(map[string][]UpdateHandler),
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.SetHierarchy(sets)

	if m.echo != nil {
		go m.runEcho()
	}
	return m
}

// SetHierarchy replaces what FetchHierarchy returns.
func (m *MemoryClient) SetHierarchy(sets []model.FeatureSet) {
	m.setsMu.Lock()
	defer m.setsMu.Unlock()

	m.sets = make(map[string]model.FeatureSet, len(sets))
	m.setOf = make(map[string]string)
	m.order = m.order[:0]
	for _, fs := range sets {
		m.sets[fs.ID] = fs.Clone()
		m.order = append(m.order, fs.ID)
		for _, f := range fs.Features {
			m.setOf[f.ID] = fs.ID
		}
	}
}

// FetchHierarchy returns a copy of the hierarchy with current values.
func (m *MemoryClient) FetchHierarchy(ctx context.Context) ([]model.FeatureSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.isClosed() {
		return nil, ErrClosed
	}

	m.setsMu.RLock()
	defer m.setsMu.RUnlock()

	out := make([]model.FeatureSet, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sets[id].Clone())
	}
	return out, nil
}

// WriteFeature records the write, or returns the injected failure.
func (m *MemoryClient) WriteFeature(ctx context.Context, featureID string, value int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.isClosed() {
		return ErrClosed
	}

	m.writesMu.Lock()
	if m.writeErr != nil {
		err := m.writeErr
		m.writesMu.Unlock()
		return fmt.Errorf("write feature %s: %w", featureID, err)
	}
	m.writes = append(m.writes, Write{FeatureID: featureID, Value: value, Time: m.clock.Now()})
	m.writesMu.Unlock()

	m.logger.Debug("Feature write",
		zap.String("feature_id", featureID),
		zap.Int("value", value))

	if m.echo != nil {
		select {
		case m.echo <- Update{FeatureID: featureID, Value: model.Int(value)}:
		case <-m.done:
		}
	}
	return nil
}

// RegisterFeatureCallback subscribes to one feature set's updates.
func (m *MemoryClient) RegisterFeatureCallback(featuresetID string, handler UpdateHandler) error {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.featureHandlers[featuresetID] = append(m.featureHandlers[featuresetID], handler)
	return nil
}

// RegisterGeneralCallback subscribes to every update.
func (m *MemoryClient) RegisterGeneralCallback(handler UpdateHandler) error {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.generalHandlers = append(m.generalHandlers, handler)
	return nil
}

// Push simulates an inbound update from the hub. The stored hierarchy is
// updated first so a later FetchHierarchy sees the new value.
func (m *MemoryClient) Push(u Update) {
	m.setsMu.Lock()
	featuresetID, known := m.setOf[u.FeatureID]
	if known {
		fs := m.sets[featuresetID]
		for key, f := range fs.Features {
			if f.ID == u.FeatureID {
				f.State = u.Value
				fs.Features[key] = f
				break
			}
		}
	}
	m.setsMu.Unlock()

	m.handlersMu.RLock()
	handlers := append([]UpdateHandler(nil), m.featureHandlers[featuresetID]...)
	handlers = append(handlers, m.generalHandlers...)
	m.handlersMu.RUnlock()

	for _, h := range handlers {
		h(u)
	}
}

// Writes returns every recorded write.
func (m *MemoryClient) Writes() []Write {
	m.writesMu.Lock()
	defer m.writesMu.Unlock()

	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// ClearWrites forgets recorded writes.
func (m *MemoryClient) ClearWrites() {
	m.writesMu.Lock()
	defer m.writesMu.Unlock()
	m.writes = nil
}

// FailWrites makes every following write return err. Pass nil to
// recover.
func (m *MemoryClient) FailWrites(err error) {
	m.writesMu.Lock()
	defer m.writesMu.Unlock()
	m.writeErr = err
}

// Close stops the echo loop and rejects further calls.
func (m *MemoryClient) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}

func (m *MemoryClient) isClosed() bool {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	return m.closed
}

func (m *MemoryClient) runEcho() {
	for {
		select {
		case u := <-m.echo:
			m.Push(u)
		case <-m.done:
			return
		}
	}
}
