package push_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/niw5924/smart-feeder-remote-api/internal/platform/push"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// mockSender mocks the MulticastSender interface.
type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, message)
	var resp *messaging.BatchResponse
	if val, ok := args.Get(0).(*messaging.BatchResponse); ok {
		resp = val
	}
	return resp, args.Error(1)
}

func strPtr(s string) *string { return &s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testRecord(payload *string) *feeder.LogRecord {
	return &feeder.LogRecord{
		ID:         42,
		ReceivedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		DeviceID:   "SF-1",
		Topic:      "feeder/SF-1/presence",
		Payload:    payload,
	}
}

func TestNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("Empty token set performs zero gateway calls", func(t *testing.T) {
		sender := new(mockSender)
		notifier, err := push.NewFCMNotifier(sender, testLogger())
		require.NoError(t, err)

		err = notifier.Notify(ctx, nil, feeder.Policy{Kind: feeder.PolicyDataOnly}, testRecord(nil))

		require.NoError(t, err)
		sender.AssertNotCalled(t, "SendEachForMulticast", mock.Anything, mock.Anything)
	})

	t.Run("Gateway error is swallowed", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendEachForMulticast", mock.Anything, mock.Anything).
			Return(nil, errors.New("gateway unavailable"))
		notifier, err := push.NewFCMNotifier(sender, testLogger())
		require.NoError(t, err)

		err = notifier.Notify(ctx, []string{"tok-a"}, feeder.Policy{Kind: feeder.PolicyFactoryReset}, testRecord(nil))

		require.NoError(t, err)
	})

	t.Run("Partial failure is swallowed", func(t *testing.T) {
		sender := new(mockSender)
		sender.On("SendEachForMulticast", mock.Anything, mock.Anything).
			Return(&messaging.BatchResponse{SuccessCount: 1, FailureCount: 1}, nil)
		notifier, err := push.NewFCMNotifier(sender, testLogger())
		require.NoError(t, err)

		err = notifier.Notify(ctx, []string{"tok-a", "tok-b"}, feeder.Policy{Kind: feeder.PolicyDataOnly}, testRecord(nil))

		require.NoError(t, err)
	})

	t.Run("One multicast call per event", func(t *testing.T) {
		sender := new(mockSender)
		var captured *messaging.MulticastMessage
		sender.On("SendEachForMulticast", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				captured = args.Get(1).(*messaging.MulticastMessage)
			}).
			Return(&messaging.BatchResponse{SuccessCount: 2}, nil)
		notifier, err := push.NewFCMNotifier(sender, testLogger())
		require.NoError(t, err)

		policy := feeder.Decide(&feeder.Event{Category: "presence", Payload: strPtr("online")})
		err = notifier.Notify(ctx, []string{"tok-a", "tok-b"}, policy, testRecord(strPtr("online")))

		require.NoError(t, err)
		sender.AssertNumberOfCalls(t, "SendEachForMulticast", 1)
		require.NotNil(t, captured)
		assert.Equal(t, []string{"tok-a", "tok-b"}, captured.Tokens)
	})
}

func TestBuildMulticastMessage(t *testing.T) {
	t.Run("Presence online carries visible block and FEEDER_PRESENCE tag", func(t *testing.T) {
		policy := feeder.Policy{Kind: feeder.PolicyPresenceChanged, PresenceStatus: "online"}

		msg := push.BuildMulticastMessage([]string{"tok-a"}, policy, testRecord(strPtr("online")))

		assert.Equal(t, "FEEDER_PRESENCE", msg.Data["notificationType"])
		assert.Equal(t, "42", msg.Data["id"])
		assert.Equal(t, "2025-06-01T12:00:00Z", msg.Data["receivedAt"])
		assert.Equal(t, "SF-1", msg.Data["deviceId"])
		assert.Equal(t, "feeder/SF-1/presence", msg.Data["topic"])
		assert.Equal(t, "online", msg.Data["payload"])
		require.NotNil(t, msg.Notification)
		assert.Contains(t, msg.Notification.Body, "온라인")
	})

	t.Run("Presence offline body mentions offline", func(t *testing.T) {
		policy := feeder.Policy{Kind: feeder.PolicyPresenceChanged, PresenceStatus: "offline"}

		msg := push.BuildMulticastMessage([]string{"tok-a"}, policy, testRecord(strPtr("offline")))

		require.NotNil(t, msg.Notification)
		assert.Contains(t, msg.Notification.Body, "오프라인")
	})

	t.Run("Factory reset carries FEEDER_RESET tag and visible block", func(t *testing.T) {
		policy := feeder.Policy{Kind: feeder.PolicyFactoryReset}

		msg := push.BuildMulticastMessage([]string{"tok-a"}, policy, testRecord(nil))

		assert.Equal(t, "FEEDER_RESET", msg.Data["notificationType"])
		require.NotNil(t, msg.Notification)
	})

	t.Run("Data-only carries MQTT_LOG tag and no visible block", func(t *testing.T) {
		policy := feeder.Policy{Kind: feeder.PolicyDataOnly}

		msg := push.BuildMulticastMessage([]string{"tok-a"}, policy, testRecord(nil))

		assert.Equal(t, "MQTT_LOG", msg.Data["notificationType"])
		assert.Nil(t, msg.Notification)
	})

	t.Run("Null payload serializes as empty string", func(t *testing.T) {
		msg := push.BuildMulticastMessage([]string{"tok-a"}, feeder.Policy{Kind: feeder.PolicyDataOnly}, testRecord(nil))

		payload, ok := msg.Data["payload"]
		assert.True(t, ok)
		assert.Equal(t, "", payload)
	})
}
