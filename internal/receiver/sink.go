package receiver

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/casaops/go-smarther/internal/logging"
)

// Sink consumes accepted events. Store failures are logged by the receiver
// and never fail ingestion.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string

	// Store persists one event.
	Store(ctx context.Context, event *Event) error

	// Close releases the sink's resources.
	Close() error
}

// LogSink writes every event to the structured log. It is always registered
// so a receiver with no configured persistence still shows traffic.
type LogSink struct{}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Store implements Sink.
func (LogSink) Store(ctx context.Context, event *Event) error {
	log.WithFields(log.Fields{
		"request_id": logging.GetRequestID(ctx),
		"event":      event.ID,
		"plant":      event.PlantID,
		"module":     event.ModuleID,
	}).Info("notification received")
	return nil
}

// Close implements Sink.
func (LogSink) Close() error { return nil }
