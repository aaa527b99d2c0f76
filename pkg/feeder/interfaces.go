package feeder

import (
	"context"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
)

// EventLog persists every received event. Append performs a single durable
// write and returns the stored record, including the store-assigned id and
// receivedAt, in the same call. Failures wrap *PersistenceError.
type EventLog interface {
	Append(ctx context.Context, deviceID, topic string, payload *string) (*LogRecord, error)
}

// DeviceTokenFetcher resolves a device id to the distinct enabled push
// tokens of all users owning that device. An empty result is not an error;
// it means no one gets notified. Failures wrap *QueryError. Results are
// recomputed per dispatch, never cached, because token enablement can change
// between events.
type DeviceTokenFetcher interface {
	Fetch(ctx context.Context, deviceID string) ([]string, error)
}

// PushNotifier builds the policy-specific payload and invokes the push
// gateway. Delivery is best-effort: implementations must no-op on an empty
// token set and must not let gateway errors escape their boundary.
type PushNotifier interface {
	Notify(ctx context.Context, tokens []string, policy Policy, rec *LogRecord) error
}

// ServiceDependencies is the container of collaborators the ingestion
// pipeline is wired with. The clients behind these are process-wide
// singletons initialised at startup.
type ServiceDependencies struct {
	IngestionConsumer  messagepipeline.MessageConsumer
	EventLog           EventLog
	DeviceTokenFetcher DeviceTokenFetcher
	PushNotifier       PushNotifier
}
