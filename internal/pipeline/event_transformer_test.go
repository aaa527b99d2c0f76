package pipeline_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niw5924/smart-feeder-remote-api/internal/pipeline"
	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

func busMessage(t *testing.T, topic string, body []byte) *messagepipeline.Message {
	t.Helper()
	payload, err := json.Marshal(feeder.InboundMessage{Topic: topic, Payload: body})
	require.NoError(t, err)
	return &messagepipeline.Message{
		MessageData: messagepipeline.MessageData{ID: "test-msg-id", Payload: payload},
	}
}

func TestEventTransformer(t *testing.T) {
	ctx := context.Background()

	t.Run("Parses topic and attaches payload", func(t *testing.T) {
		ev, skipped, err := pipeline.EventTransformer(ctx, busMessage(t, "feeder/SF-1/presence", []byte("online")))

		require.NoError(t, err)
		require.False(t, skipped)
		assert.Equal(t, "SF-1", ev.DeviceID)
		assert.Equal(t, "presence", ev.Category)
		require.NotNil(t, ev.Payload)
		assert.Equal(t, "online", *ev.Payload)
	})

	t.Run("Empty body normalizes to nil payload", func(t *testing.T) {
		ev, skipped, err := pipeline.EventTransformer(ctx, busMessage(t, "feeder/SF-1/feed_button", nil))

		require.NoError(t, err)
		require.False(t, skipped)
		assert.Nil(t, ev.Payload)
	})

	t.Run("Malformed topic is skipped", func(t *testing.T) {
		ev, skipped, err := pipeline.EventTransformer(ctx, busMessage(t, "feeder", []byte("x")))

		require.Error(t, err)
		assert.ErrorIs(t, err, feeder.ErrMalformedTopic)
		assert.True(t, skipped)
		assert.Nil(t, ev)
	})

	t.Run("Garbage envelope is skipped", func(t *testing.T) {
		msg := &messagepipeline.Message{
			MessageData: messagepipeline.MessageData{ID: "bad", Payload: []byte("{not json")},
		}

		ev, skipped, err := pipeline.EventTransformer(ctx, msg)

		require.Error(t, err)
		assert.True(t, skipped)
		assert.Nil(t, ev)
	})
}
