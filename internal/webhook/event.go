// Package webhook receives inbound SMS events, deduplicates at-least-once
// delivery, and routes each message through the per-phone command state
// machine.
package webhook

import (
	"time"

	"github.com/google/uuid"
)

// TypeMessageReceived is the only event subtype that triggers processing.
// Every other subtype is acknowledged without side effects.
const TypeMessageReceived = "message.phone.received"

// EventData is the payload of an httpSMS CloudEvents envelope.
type EventData struct {
	// Contact is the sender's phone for incoming messages.
	Contact   string `json:"contact"`
	Content   string `json:"content"`
	Owner     string `json:"owner"`
	MessageID string `json:"message_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	SIM       string `json:"sim,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// Event is the httpSMS CloudEvents envelope.
type Event struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Source          string    `json:"source,omitempty"`
	SpecVersion     string    `json:"specversion,omitempty"`
	DataContentType string    `json:"datacontenttype,omitempty"`
	Time            time.Time `json:"time,omitempty"`
	Data            EventData `json:"data"`
}

// GatewayMessage is the simple wire shape posted by an ESP32/SIM800L
// hardware gateway.
type GatewayMessage struct {
	From     string `json:"from"`
	Message  string `json:"message"`
	DeviceID string `json:"deviceId"`
}

// Event normalizes the gateway shape to the CloudEvents one. Gateways carry
// no event id, so a synthetic one is minted per delivery.
func (g GatewayMessage) Event(now time.Time) Event {
	device := g.DeviceID
	if device == "" {
		device = "unknown"
	}
	return Event{
		ID:          "esp32-" + device + "-" + uuid.NewString(),
		Type:        TypeMessageReceived,
		Source:      "/v1/messages/receive",
		SpecVersion: "1.0",
		Time:        now,
		Data: EventData{
			Contact:   g.From,
			Content:   g.Message,
			Owner:     "ESP32-SIM800L",
			SIM:       "SIM1",
			Timestamp: now.Format(time.RFC3339),
			UserID:    device,
		},
	}
}
