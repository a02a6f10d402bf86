// Package receiver implements the local endpoint for Smarther cloud-to-cloud
// notifications: an HTTP server the vendor cloud posts status events to, with
// pluggable sinks for persistence and a websocket hub for local consumers.
package receiver

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Event is one accepted notification. Raw preserves the vendor payload with
// receivedAt (and a generated eventId when the vendor sent none) stamped in.
type Event struct {
	ID         string
	PlantID    string
	ModuleID   string
	ReceivedAt time.Time
	Raw        []byte
}

// normalizeEvent turns one vendor notification object into an Event. The
// payload structure is not enforced beyond being a JSON object; identifiers
// are extracted when present.
func normalizeEvent(raw []byte, receivedAt time.Time) (*Event, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("notification is not a JSON object")
	}

	id := parsed.Get("id").String()
	if id == "" {
		id = parsed.Get("eventId").String()
	}

	stamped := raw
	var err error
	if id == "" {
		id = uuid.NewString()
		if stamped, err = sjson.SetBytes(stamped, "eventId", id); err != nil {
			return nil, fmt.Errorf("failed to stamp event id: %w", err)
		}
	}
	if stamped, err = sjson.SetBytes(stamped, "receivedAt", receivedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to stamp receipt time: %w", err)
	}

	plantID := parsed.Get("data.chronothermostats.0.sender.plant.id").String()
	if plantID == "" {
		plantID = parsed.Get("plantId").String()
	}
	moduleID := parsed.Get("data.chronothermostats.0.sender.plant.module.id").String()
	if moduleID == "" {
		moduleID = parsed.Get("moduleId").String()
	}

	return &Event{
		ID:         id,
		PlantID:    plantID,
		ModuleID:   moduleID,
		ReceivedAt: receivedAt,
		Raw:        stamped,
	}, nil
}
