// Package mqtt adapts an MQTT subscription to the messagepipeline consumer
// contract so the ingestion pipeline can be fed from the device fleet's
// broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// SubscribeQoS is the quality-of-service level for the ingestion
// subscription. QoS 1 gives at-least-once delivery from the broker.
const SubscribeQoS byte = 1

// ConsumerConfig holds the subscription settings.
type ConsumerConfig struct {
	// TopicFilter is the wildcard filter covering the device topic space,
	// e.g. "feeder/#".
	TopicFilter string
	// BufferSize is the capacity of the channel between the broker callback
	// and the pipeline workers.
	BufferSize int
}

// NewConsumerDefaults returns the standard subscription settings for a topic
// filter.
func NewConsumerDefaults(topicFilter string) ConsumerConfig {
	return ConsumerConfig{
		TopicFilter: topicFilter,
		BufferSize:  64,
	}
}

// Consumer implements messagepipeline.MessageConsumer on top of a paho MQTT
// client. Each broker delivery is wrapped into a feeder.InboundMessage
// envelope carrying the raw topic and body, so the transformer stage can
// parse it without knowing the transport.
type Consumer struct {
	client     pahomqtt.Client
	cfg        ConsumerConfig
	logger     zerolog.Logger
	outputChan chan messagepipeline.Message
	doneChan   chan struct{}
	stopOnce   sync.Once
	inflight   sync.WaitGroup
}

var _ messagepipeline.MessageConsumer = (*Consumer)(nil)

// NewConsumer creates a consumer over an already-configured (but not yet
// connected) MQTT client.
func NewConsumer(client pahomqtt.Client, cfg ConsumerConfig, logger zerolog.Logger) (*Consumer, error) {
	if client == nil {
		return nil, fmt.Errorf("mqtt client cannot be nil")
	}
	if cfg.TopicFilter == "" {
		return nil, fmt.Errorf("topic filter cannot be empty")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	return &Consumer{
		client:     client,
		cfg:        cfg,
		logger:     logger.With().Str("component", "MQTTConsumer").Logger(),
		outputChan: make(chan messagepipeline.Message, cfg.BufferSize),
		doneChan:   make(chan struct{}),
	}, nil
}

// Messages returns the channel the pipeline workers read from.
func (c *Consumer) Messages() <-chan messagepipeline.Message {
	return c.outputChan
}

// Start connects to the broker and subscribes to the topic filter. The paho
// client dispatches the handler concurrently for interleaved messages;
// per-message ordering within the pipeline is the processor's concern.
func (c *Consumer) Start(ctx context.Context) error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	c.logger.Info().Str("filter", c.cfg.TopicFilter).Msg("Connected to MQTT broker, subscribing.")

	token := c.client.Subscribe(c.cfg.TopicFilter, SubscribeQoS, c.handleMessage)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %q: %w", c.cfg.TopicFilter, token.Error())
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// handleMessage wraps one broker delivery into a pipeline message.
func (c *Consumer) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	c.inflight.Add(1)
	defer c.inflight.Done()

	select {
	case <-c.doneChan:
		return
	default:
	}

	inbound := feeder.InboundMessage{
		Topic:   msg.Topic(),
		Payload: msg.Payload(),
	}
	payload, err := json.Marshal(inbound)
	if err != nil {
		c.logger.Error().Err(err).Str("topic", msg.Topic()).Msg("Failed to encode inbound message, dropping.")
		return
	}

	select {
	case c.outputChan <- messagepipeline.Message{
		MessageData: messagepipeline.MessageData{
			ID:      uuid.NewString(),
			Payload: payload,
		},
	}:
	case <-c.doneChan:
		c.logger.Debug().Str("topic", msg.Topic()).Msg("Consumer stopped, dropping message.")
	}
}

// Stop unsubscribes, disconnects from the broker and closes the message
// channel. Safe to call more than once.
func (c *Consumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		if c.client.IsConnected() {
			if token := c.client.Unsubscribe(c.cfg.TopicFilter); token.Wait() && token.Error() != nil {
				c.logger.Warn().Err(token.Error()).Msg("MQTT unsubscribe failed.")
			}
			c.client.Disconnect(250)
		}
		// Broker callbacks still in flight must finish before the output
		// channel can be closed.
		c.inflight.Wait()
		close(c.outputChan)
		c.logger.Info().Msg("MQTT consumer stopped.")
	})
	return nil
}

// Done is closed once the consumer has shut down.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneChan
}
