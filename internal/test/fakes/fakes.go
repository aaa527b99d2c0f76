// Package fakes provides in-memory test doubles for the service's
// dependencies. These are used in service-level tests that exercise the full
// pipeline without a broker, a database, or the FCM gateway.
package fakes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/rs/zerolog"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// --- Consumer ---

type InMemoryConsumer struct {
	outputChan chan messagepipeline.Message
	logger     zerolog.Logger
	stopOnce   sync.Once
	doneChan   chan struct{}
}

func NewInMemoryConsumer(bufferSize int, logger zerolog.Logger) *InMemoryConsumer {
	return &InMemoryConsumer{
		outputChan: make(chan messagepipeline.Message, bufferSize),
		logger:     logger.With().Str("component", "InMemoryConsumer").Logger(),
		doneChan:   make(chan struct{}),
	}
}
func (c *InMemoryConsumer) Publish(msg messagepipeline.Message) {
	select {
	case c.outputChan <- msg:
	case <-c.doneChan:
	}
}
func (c *InMemoryConsumer) Messages() <-chan messagepipeline.Message { return c.outputChan }
func (c *InMemoryConsumer) Start(_ context.Context) error            { return nil }
func (c *InMemoryConsumer) Stop(_ context.Context) error {
	c.stopOnce.Do(func() {
		close(c.doneChan)
		close(c.outputChan)
	})
	return nil
}
func (c *InMemoryConsumer) Done() <-chan struct{} { return c.doneChan }

// --- Event Log ---

// EventLog appends records to memory and hands out sequential IDs.
type EventLog struct {
	mu      sync.Mutex
	nextID  int64
	Records []*feeder.LogRecord
}

func NewEventLog() *EventLog { return &EventLog{nextID: 1} }

func (l *EventLog) Append(_ context.Context, deviceID, topic string, payload *string) (*feeder.LogRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := &feeder.LogRecord{
		ID:         l.nextID,
		ReceivedAt: time.Now().UTC(),
		DeviceID:   deviceID,
		Topic:      topic,
		Payload:    payload,
	}
	l.nextID++
	l.Records = append(l.Records, rec)
	return rec, nil
}

// --- Token Fetcher ---

// TokenFetcher returns the same token set for every device.
type TokenFetcher struct{ Tokens []string }

func NewTokenFetcher(tokens ...string) *TokenFetcher { return &TokenFetcher{Tokens: tokens} }
func (f *TokenFetcher) Fetch(_ context.Context, _ string) ([]string, error) {
	return f.Tokens, nil
}

// --- Push Notifier ---

// Notification captures one delivered push for assertions.
type Notification struct {
	Tokens []string
	Policy feeder.Policy
	Record *feeder.LogRecord
}

type PushNotifier struct {
	logger  zerolog.Logger
	Handled chan Notification
}

func NewPushNotifier(logger zerolog.Logger) *PushNotifier {
	return &PushNotifier{logger: logger, Handled: make(chan Notification, 16)}
}

func (n *PushNotifier) Notify(_ context.Context, tokens []string, policy feeder.Policy, rec *feeder.LogRecord) error {
	n.logger.Info().Str("type", policy.NotificationType()).Msg("[FAKES-NOTIFIER] Notify called.")
	n.Handled <- Notification{Tokens: tokens, Policy: policy, Record: rec}
	return nil
}

// --- Account Store ---

// AccountStore is a minimal in-memory stand-in for the Postgres store.
type AccountStore struct {
	mu      sync.Mutex
	nextPK  atomic.Int64
	users   map[string]*feeder.User
	devices map[string]*feeder.Device
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		users:   make(map[string]*feeder.User),
		devices: make(map[string]*feeder.Device),
	}
}

func (s *AccountStore) UpsertUser(_ context.Context, provider, providerUserID string, nickname, profileImageURL *string) (*feeder.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + "/" + providerUserID
	u, ok := s.users[key]
	if !ok {
		u = &feeder.User{ID: s.nextPK.Add(1), Provider: provider, ProviderUserID: providerUserID}
		s.users[key] = u
	}
	u.Nickname = nickname
	u.ProfileImageURL = profileImageURL
	return u, nil
}

func (s *AccountStore) UserByProviderID(_ context.Context, provider, providerUserID string) (*feeder.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[provider+"/"+providerUserID]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

func (s *AccountStore) RegisterDevice(_ context.Context, userPK int64, deviceID string, deviceName, location *string) (*feeder.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := &feeder.Device{ID: s.nextPK.Add(1), DeviceID: deviceID, DeviceName: deviceName, Location: location}
	s.devices[deviceID] = d
	return d, nil
}

func (s *AccountStore) RegisterPushToken(_ context.Context, userPK int64, token, platform string) (*feeder.PushToken, error) {
	return &feeder.PushToken{ID: s.nextPK.Add(1), UserPK: userPK, Token: token, Platform: platform, Enabled: true}, nil
}

func (s *AccountStore) LogsForUser(_ context.Context, _ int64) ([]*feeder.LogRecord, error) {
	return nil, nil
}
