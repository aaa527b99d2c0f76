// Package push sends policy-specific notifications to device owners through
// Firebase Cloud Messaging.
package push

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"firebase.google.com/go/v4/messaging"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// gatewayTimeout bounds one multicast call so a hung gateway delays, rather
// than blocks, the pipeline worker.
const gatewayTimeout = 10 * time.Second

// MulticastSender is the slice of the FCM client this notifier needs.
type MulticastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMNotifier implements the feeder.PushNotifier interface.
type FCMNotifier struct {
	sender MulticastSender
	logger *slog.Logger
}

var _ feeder.PushNotifier = (*FCMNotifier)(nil)

// NewFCMNotifier creates a notifier over an FCM messaging client.
func NewFCMNotifier(sender MulticastSender, logger *slog.Logger) (*FCMNotifier, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender cannot be nil")
	}
	return &FCMNotifier{
		sender: sender,
		logger: logger.With("component", "FCMNotifier"),
	}, nil
}

// Notify builds the outbound message for one decided policy and invokes the
// gateway once. Delivery is best-effort: an empty token set is an immediate
// no-op and gateway errors are logged and swallowed so they can never
// destabilise ingestion. The per-token result is only logged.
func (n *FCMNotifier) Notify(ctx context.Context, tokens []string, policy feeder.Policy, rec *feeder.LogRecord) error {
	if rec == nil {
		return fmt.Errorf("notify failed: log record cannot be nil")
	}
	if len(tokens) == 0 {
		return nil
	}

	log := n.logger.With(
		"device_id", rec.DeviceID,
		"log_id", rec.ID,
		"notification_type", policy.NotificationType(),
	)

	msg := BuildMulticastMessage(tokens, policy, rec)

	sendCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	resp, err := n.sender.SendEachForMulticast(sendCtx, msg)
	if err != nil {
		log.Error("Push gateway call failed", "err", err)
		return nil
	}

	if resp.FailureCount > 0 {
		log.Warn("Push delivered partially", "success", resp.SuccessCount, "failure", resp.FailureCount)
		return nil
	}
	log.Debug("Push delivered", "success", resp.SuccessCount)
	return nil
}

// BuildMulticastMessage constructs the gateway payload for one event.
//
// Every policy carries the stringified log record in the data map so the
// receiving client can reconcile against its local log view. Only visible
// policies (presence, factory reset) carry a human-readable notification
// block; routine telemetry stays silent and merely updates client state.
func BuildMulticastMessage(tokens []string, policy feeder.Policy, rec *feeder.LogRecord) *messaging.MulticastMessage {
	payload := ""
	if rec.Payload != nil {
		payload = *rec.Payload
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data: map[string]string{
			"notificationType": policy.NotificationType(),
			"id":               strconv.FormatInt(rec.ID, 10),
			"receivedAt":       rec.ReceivedAt.UTC().Format(time.RFC3339),
			"deviceId":         rec.DeviceID,
			"topic":            rec.Topic,
			"payload":          payload,
		},
	}

	switch policy.Kind {
	case feeder.PolicyPresenceChanged:
		status := "오프라인"
		if policy.PresenceStatus == feeder.PresenceOnline {
			status = "온라인"
		}
		msg.Notification = &messaging.Notification{
			Title: "스마트 피더",
			Body:  fmt.Sprintf("%s 기기가 %s 상태가 되었습니다.", rec.DeviceID, status),
		}
	case feeder.PolicyFactoryReset:
		msg.Notification = &messaging.Notification{
			Title: "스마트 피더",
			Body:  fmt.Sprintf("%s 기기가 공장 초기화되었습니다.", rec.DeviceID),
		}
	}

	return msg
}
