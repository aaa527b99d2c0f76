package feeder

import (
	"errors"
	"fmt"
)

// ErrMalformedTopic is returned by ParseTopic when a topic has no device
// segment. Messages with malformed topics are discarded before any side
// effect.
var ErrMalformedTopic = errors.New("malformed feeder topic")

// PersistenceError wraps a failed event-log write. When the coordinator sees
// one, the message's notification is dropped but the ingestion loop
// continues.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("event log persistence failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// QueryError wraps a failed recipient lookup. The coordinator treats it as
// "no recipients" and never retries inline.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("recipient query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }
