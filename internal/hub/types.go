// Package hub describes the hub client the session is driven by, and
// provides an in-memory implementation of it.
//
// Talking to a real hub (framing, transport, authentication) is the
// client's business; the session only sees the Client interface.
package hub

import (
	"context"
	"time"

	"lightwave/internal/model"
)

// Update is a raw feature change pushed by the hub.
type Update struct {
	FeatureID string      `json:"feature_id"`
	Value     model.Value `json:"value"`
	// Payload carries structured detail for button features.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// UpdateHandler is called for each inbound update, in arrival order.
type UpdateHandler func(Update)

// Write records a raw write issued to the hub.
type Write struct {
	FeatureID string
	Value     int
	Time      time.Time
}

// Client is the hub connection a session drives.
type Client interface {
	// FetchHierarchy returns every feature set the hub knows about,
	// with the current raw values.
	FetchHierarchy(ctx context.Context) ([]model.FeatureSet, error)

	// WriteFeature issues a single raw write. It does not wait for the
	// resulting state change; that arrives later as an Update.
	WriteFeature(ctx context.Context, featureID string, value int) error

	// RegisterFeatureCallback delivers updates for one feature set.
	RegisterFeatureCallback(featuresetID string, handler UpdateHandler) error

	// RegisterGeneralCallback delivers every update.
	RegisterGeneralCallback(handler UpdateHandler) error

	Close() error
}
