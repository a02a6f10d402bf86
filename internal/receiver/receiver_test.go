package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"github.com/casaops/go-smarther/internal/config"
)

const sampleNotification = `{
	"id": "evt-1",
	"eventType": "Smarther.ChronothermostatStatus",
	"subject": "p1/m1",
	"data": {
		"chronothermostats": [{
			"function": "HEATING",
			"mode": "AUTOMATIC",
			"setPoint": {"value": "7.00000", "unit": "C"},
			"sender": {"addressType": "PLANT", "system": "chronothermostat", "plant": {"id": "p1", "module": {"id": "m1"}}}
		}]
	}
}`

// captureSink records stored events and can be made to fail.
type captureSink struct {
	mu     sync.Mutex
	events []*Event
	fail   bool
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Store(_ context.Context, event *Event) error {
	if s.fail {
		return errors.New("capture sink forced failure")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) stored() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Event(nil), s.events...)
}

func postNotification(t *testing.T, r *Receiver, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleNotificationSingleObject(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{}, sink)

	w := postNotification(t, r, sampleNotification, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Accepted int `json:"accepted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response does not parse: %v", err)
	}
	if resp.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", resp.Accepted)
	}

	events := sink.stored()
	if len(events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(events))
	}
	event := events[0]
	if event.ID != "evt-1" {
		t.Errorf("event id = %q, want %q", event.ID, "evt-1")
	}
	if event.PlantID != "p1" || event.ModuleID != "m1" {
		t.Errorf("plant/module = %q/%q, want p1/m1", event.PlantID, event.ModuleID)
	}
	if got := gjson.GetBytes(event.Raw, "receivedAt").String(); got == "" {
		t.Error("raw payload should carry a stamped receivedAt")
	}
	if got := gjson.GetBytes(event.Raw, "data.chronothermostats.0.mode").String(); got != "AUTOMATIC" {
		t.Errorf("raw payload mode = %q, want AUTOMATIC preserved", got)
	}
}

func TestHandleNotificationBatch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{}, sink)

	batch := fmt.Sprintf("[%s,%s]", sampleNotification, `{"id":"evt-2","plantId":"p2"}`)
	w := postNotification(t, r, batch, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	events := sink.stored()
	if len(events) != 2 {
		t.Fatalf("stored events = %d, want 2", len(events))
	}
	if events[1].ID != "evt-2" || events[1].PlantID != "p2" {
		t.Errorf("second event = %q/%q, want evt-2/p2", events[1].ID, events[1].PlantID)
	}
}

func TestHandleNotificationGeneratesMissingID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{}, sink)

	w := postNotification(t, r, `{"plantId":"p1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	events := sink.stored()
	if len(events) != 1 {
		t.Fatalf("stored events = %d, want 1", len(events))
	}
	if events[0].ID == "" {
		t.Error("event id should be generated when the payload has none")
	}
	if got := gjson.GetBytes(events[0].Raw, "eventId").String(); got != events[0].ID {
		t.Errorf("stamped eventId = %q, want %q", got, events[0].ID)
	}
}

func TestHandleNotificationSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{Secret: "hunter2"}, sink)

	w := postNotification(t, r, sampleNotification, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without secret = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	w = postNotification(t, r, sampleNotification, map[string]string{"X-Receiver-Secret": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong secret = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if got := len(sink.stored()); got != 0 {
		t.Fatalf("stored events = %d, want 0 before a valid secret", got)
	}

	w = postNotification(t, r, sampleNotification, map[string]string{"X-Receiver-Secret": "hunter2"})
	if w.Code != http.StatusOK {
		t.Errorf("status with secret = %d, want %d", w.Code, http.StatusOK)
	}
	if got := len(sink.stored()); got != 1 {
		t.Errorf("stored events = %d, want 1", got)
	}
}

func TestHandleNotificationRejectsInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{}, sink)

	w := postNotification(t, r, "not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleNotificationSkipsNonObjectItems(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := &captureSink{}
	r := New(config.ReceiverConfig{}, sink)

	w := postNotification(t, r, `[{"id":"evt-1"},"stray string",42]`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Accepted int `json:"accepted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response does not parse: %v", err)
	}
	if resp.Accepted != 1 {
		t.Errorf("accepted = %d, want only the object item", resp.Accepted)
	}
}

func TestSinkFailureDoesNotFailIngestion(t *testing.T) {
	gin.SetMode(gin.TestMode)

	failing := &captureSink{fail: true}
	working := &captureSink{}
	r := New(config.ReceiverConfig{}, failing, working)

	w := postNotification(t, r, sampleNotification, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d despite a failing sink", w.Code, http.StatusOK)
	}
	if got := len(working.stored()); got != 1 {
		t.Errorf("working sink stored = %d, want 1", got)
	}
}

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := New(config.ReceiverConfig{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
