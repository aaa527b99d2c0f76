package pipeline

import (
	"context"
	"log/slog"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// NewIngestionProcessor builds the per-message coordinator. For every parsed
// event it runs, in order: append to the event log, decide the notification
// policy, resolve the recipient token set, send the push.
//
// Every failure past parsing is absorbed here so the ingestion loop survives
// indefinitely:
//   - an append failure drops the event's notification (fail-closed: no log
//     row, no push) and moves on;
//   - a recipient lookup failure is treated as "no recipients";
//   - push delivery is best-effort and already swallowed by the notifier.
//
// The processor always returns nil; the broker's own redelivery, if any, is
// the only retry mechanism.
func NewIngestionProcessor(deps *feeder.ServiceDependencies, logger *slog.Logger) messagepipeline.StreamProcessor[feeder.Event] {
	return func(ctx context.Context, msg messagepipeline.Message, ev *feeder.Event) error {
		procLogger := logger.With(
			"device_id", ev.DeviceID,
			"topic", ev.Topic,
			"msg_id", msg.ID,
		)

		// 1. Durable log write. Exactly one row per inbound message, and it
		// must exist before any notification is attempted.
		rec, err := deps.EventLog.Append(ctx, ev.DeviceID, ev.Topic, ev.Payload)
		if err != nil {
			procLogger.Error("Failed to persist event, dropping its notification", "err", err)
			return nil
		}
		procLogger = procLogger.With("log_id", rec.ID)

		// 2. Exactly one policy per event.
		policy := feeder.Decide(ev)

		// 3. Recipients are recomputed per dispatch, never cached.
		tokens, err := deps.DeviceTokenFetcher.Fetch(ctx, ev.DeviceID)
		if err != nil {
			procLogger.Warn("Recipient lookup failed, treating as no recipients", "err", err)
			tokens = nil
		}
		if len(tokens) == 0 {
			procLogger.Debug("No enabled recipients, skipping push")
			return nil
		}

		// 4. Best-effort delivery; "sent" means attempted.
		_ = deps.PushNotifier.Notify(ctx, tokens, policy, rec)
		return nil
	}
}
