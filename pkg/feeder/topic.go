package feeder

import (
	"fmt"
	"strings"
)

// ParseTopic decomposes a feeder topic into an Event descriptor. Topics are
// '/'-separated: <namespace>/<deviceId>[/<category>[/<subpath...>]].
//
// Segment 1 (the device id) is mandatory; a topic with fewer than two
// segments, or an empty device segment, fails with ErrMalformedTopic and the
// caller must discard the message without logging or notifying. No other
// validation happens here; unknown categories pass through unchanged.
func ParseTopic(topic string) (*Event, error) {
	segments := strings.Split(topic, "/")
	if len(segments) < 2 || segments[1] == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}

	ev := &Event{
		DeviceID: segments[1],
		Topic:    topic,
	}
	if len(segments) > 2 {
		ev.Category = segments[2]
	}
	if len(segments) > 3 {
		ev.Subpath = segments[3:]
	}
	return ev, nil
}
