package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lightwave/internal/api"
	"lightwave/internal/clock"
	"lightwave/internal/config"
	"lightwave/internal/dispatch"
	"lightwave/internal/entity"
	"lightwave/internal/hub"
	"lightwave/internal/mqtt"
	"lightwave/internal/session"
	"lightwave/internal/telemetry"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger; the level is adjusted once config is loaded
	zapConfig := zap.NewProductionConfig()
	logger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using environment variables")
	}

	configDir := os.Getenv("LW_CONFIG_DIR")
	if configDir == "" {
		configDir = "configs"
	}

	cfg, err := config.NewLoader(configDir, logger).Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	zapConfig.Level.SetLevel(config.ParseLevel(cfg.LogLevel).Level())

	sets, err := hub.LoadHierarchy(cfg.Hierarchy)
	if err != nil {
		logger.Fatal("Failed to load hierarchy", zap.Error(err))
	}

	var hubOpts []hub.Option
	if cfg.Echo {
		hubOpts = append(hubOpts, hub.WithEcho())
	}
	client := hub.NewMemoryClient(sets, logger, hubOpts...)

	sess := session.New(client, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		logger.Fatal("Failed to start hub session", zap.Error(err))
	}
	defer sess.Close()

	logger.Info("Starting Lightwave service",
		zap.String("session_id", sess.ID()),
		zap.Int("featuresets", len(sets)),
		zap.Bool("echo", cfg.Echo))

	server := api.NewServer(sess.Store(), sess.Writer(), sess.Registry(), logger, cfg.API.Port)
	entities := newEntityIndex(sess, server, cfg.HomeKit, logger)
	entities.Rebuild()
	sess.Registry().RegisterGeneral("button-events", entities.HandleEvent)

	if cfg.MQTT.Broker != "" {
		mqttClient, err := startMQTT(cfg.MQTT, sess, logger)
		if err != nil {
			logger.Error("MQTT bridge disabled", zap.Error(err))
		} else {
			defer mqttClient.Close()
		}
	}

	if cfg.Influx.URL != "" {
		influx, err := startTelemetry(cfg.Influx, sess, logger)
		if err != nil {
			logger.Error("Telemetry disabled", zap.Error(err))
		} else {
			defer influx.Close()
		}
	}

	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
	}
	defer server.Stop()

	if cfg.RefreshInterval > 0 {
		go refreshLoop(ctx, cfg.RefreshInterval, sess, entities, logger)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Application running. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")
}

func startMQTT(cfg config.MQTTConfig, sess *session.Session, logger *zap.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	bridge := mqtt.NewBridge(client, cfg.TopicPrefix, cfg.QoS, sess.Store(), sess.Writer(), logger)
	if _, err := bridge.Start(sess.Registry()); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func startTelemetry(cfg config.InfluxConfig, sess *session.Session, logger *zap.Logger) (*telemetry.Client, error) {
	client, err := telemetry.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	recorder := telemetry.NewRecorder(client.WriteAPI(), clock.NewRealClock(), logger)
	n := recorder.RecordAll(sess.Store().Snapshots())
	recorder.Start(sess.Registry())
	logger.Info("Telemetry started", zap.Int("initial_points", n))
	return client, nil
}

// refreshLoop periodically re-reads the hierarchy and rebuilds the entity
// list when it changes.
func refreshLoop(ctx context.Context, interval time.Duration, sess *session.Session, entities *entityIndex, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			known := entities.FeatureSetIDs()
			changed, err := sess.RefreshStates(ctx)
			if err != nil {
				logger.Warn("Failed to refresh states", zap.Error(err))
				continue
			}
			if missing := sess.MissingDevices(known); len(missing) > 0 {
				logger.Warn("Devices no longer reported by the hub",
					zap.Strings("featureset_ids", missing))
			}
			logger.Debug("States refreshed", zap.Int("changed", changed))
			entities.Rebuild()
		}
	}
}

// entityIndex keeps the discovered projections, hands them to the API and
// records button presses on the matching button entity.
type entityIndex struct {
	sess    *session.Session
	server  *api.Server
	homeKit bool
	logger  *zap.Logger

	mu          sync.RWMutex
	projections []entity.Projection
	ids         []string
}

func newEntityIndex(sess *session.Session, server *api.Server, homeKit bool, logger *zap.Logger) *entityIndex {
	return &entityIndex{
		sess:    sess,
		server:  server,
		homeKit: homeKit,
		logger:  logger,
	}
}

func (x *entityIndex) Rebuild() {
	snapshots := x.sess.Store().Snapshots()
	projections, err := entity.Discover(snapshots, entity.Options{
		HomeKit:   x.homeKit,
		LastEvent: x.sess.LastEventTime,
	})
	if err != nil {
		x.logger.Info("Some entities are not ready yet", zap.Error(err))
	}

	ids := make([]string, 0, len(snapshots))
	for _, fs := range snapshots {
		ids = append(ids, fs.ID)
	}

	x.mu.Lock()
	entity.CarryOverButtons(x.projections, projections)
	x.projections = projections
	x.ids = ids
	x.mu.Unlock()

	x.server.SetEntities(projections)
	x.logger.Info("Entities discovered", zap.Int("count", len(projections)))
}

func (x *entityIndex) FeatureSetIDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return append([]string(nil), x.ids...)
}

func (x *entityIndex) HandleEvent(ev dispatch.Event) error {
	if ev.ButtonEvent == "" {
		return nil
	}
	x.mu.RLock()
	b, ok := entity.FindButton(x.projections, ev.FeatureSetID, ev.FeatureKey)
	x.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no button entity for %s/%s", ev.FeatureSetID, ev.FeatureKey)
	}
	b.Record(ev.ButtonEvent)
	return nil
}
