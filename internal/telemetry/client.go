// Package telemetry records numeric feature readings into InfluxDB.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"lightwave/internal/config"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultBatchSize      = 100
	defaultFlushInterval  = 10 * time.Second
)

// Client owns the InfluxDB connection and its non-blocking write API.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *zap.Logger
}

// Connect pings the server and opens a batched write API for the
// configured bucket.
func Connect(cfg config.InfluxConfig, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(defaultBatchSize).
			SetFlushInterval(uint(defaultFlushInterval.Milliseconds())),
	)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
	}
	go c.logWriteErrors(c.writeAPI.Errors())

	logger.Info("Connected to InfluxDB",
		zap.String("url", cfg.URL),
		zap.String("bucket", cfg.Bucket))
	return c, nil
}

func (c *Client) logWriteErrors(errorsCh <-chan error) {
	for err := range errorsCh {
		c.logger.Warn("InfluxDB write failed", zap.Error(err))
	}
}

// WriteAPI is where Recorder sends its points.
func (c *Client) WriteAPI() api.WriteAPI {
	return c.writeAPI
}

// Close flushes pending points and closes the connection.
func (c *Client) Close() error {
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
