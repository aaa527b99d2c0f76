// Package feeder contains the public domain models, interfaces, and pure
// functions for the smart-feeder ingestion service. It defines the contract
// between the MQTT ingestion pipeline and its collaborators.
package feeder

import (
	"time"
)

// TopicNamespace is the fixed first segment of every feeder topic.
const TopicNamespace = "feeder"

// Event is the transient descriptor derived from one inbound MQTT message.
// It lives for the duration of that message's processing.
type Event struct {
	// DeviceID is the second topic segment and is always present.
	DeviceID string `json:"deviceId"`
	// Category is the third topic segment ("presence", "factory_reset",
	// "activity", ...). Empty when the topic has only two segments.
	Category string `json:"category,omitempty"`
	// Subpath holds any remaining topic segments.
	Subpath []string `json:"subpath,omitempty"`
	// Topic is the full topic string as received.
	Topic string `json:"topic"`
	// Payload is the UTF-8 decoded message body. An empty body normalizes
	// to nil.
	Payload *string `json:"payload"`
}

// LogRecord is one durable row of the append-only mqtt_logs table. ID and
// ReceivedAt are assigned by the store at insert time; ID is the
// authoritative ordering for any consumer.
type LogRecord struct {
	ID         int64     `json:"id"`
	ReceivedAt time.Time `json:"receivedAt"`
	DeviceID   string    `json:"deviceId"`
	Topic      string    `json:"topic"`
	Payload    *string   `json:"payload"`
}

// InboundMessage is the wire shape the MQTT consumer hands to the pipeline:
// the raw topic plus the opaque message body.
type InboundMessage struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload,omitempty"`
}
