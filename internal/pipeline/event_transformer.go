// Package pipeline contains the ingestion pipeline stages: the transformer
// that turns a raw broker message into an event descriptor, and the processor
// that runs the log-then-notify state machine for each event.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// EventTransformer is the pipeline stage that decodes the consumer's
// transport envelope and parses the topic into a feeder.Event.
//
// A message whose topic has no device segment is discarded here: it is
// marked for skipping so the processor never sees it, leaving no log row and
// no notification, only a debug trace. An empty body normalizes to a nil
// payload.
func EventTransformer(_ context.Context, msg *messagepipeline.Message) (*feeder.Event, bool, error) {
	var inbound feeder.InboundMessage
	if err := json.Unmarshal(msg.Payload, &inbound); err != nil {
		slog.Error("Failed to decode inbound message envelope", "err", err, "msg_id", msg.ID)
		return nil, true, fmt.Errorf("failed to decode inbound message %s: %w", msg.ID, err)
	}

	ev, err := feeder.ParseTopic(inbound.Topic)
	if err != nil {
		if errors.Is(err, feeder.ErrMalformedTopic) {
			slog.Debug("Discarding message with malformed topic", "topic", inbound.Topic, "msg_id", msg.ID)
		}
		return nil, true, fmt.Errorf("failed to parse topic of message %s: %w", msg.ID, err)
	}

	if len(inbound.Payload) > 0 {
		body := string(inbound.Payload)
		ev.Payload = &body
	}

	return ev, false, nil
}
