package services_test

import (
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/skyforge/telemetry-relay/internal/models"
	"github.com/skyforge/telemetry-relay/internal/scheduler"
	"github.com/skyforge/telemetry-relay/pkg/identity"
	"github.com/stretchr/testify/mock"
)

// MockMQTTClient is a mock implementation of the MQTTClient interface
type MockMQTTClient struct {
	mock.Mock
}

func (m *MockMQTTClient) Connect() mqtt.Token {
	args := m.Called()
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	args := m.Called(topic, qos, callback)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Unsubscribe(topics ...string) mqtt.Token {
	args := m.Called(topics)
	return args.Get(0).(mqtt.Token)
}

func (m *MockMQTTClient) Disconnect(quiesce uint) {
	m.Called(quiesce)
}

// MockToken is a mock implementation of the mqtt.Token interface
type MockToken struct {
	mock.Mock
}

func (m *MockToken) Error() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockToken) Wait() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockToken) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(<-chan struct{})
}

func (m *MockToken) WaitTimeout(timeout time.Duration) bool {
	args := m.Called(timeout)
	return args.Bool(0)
}

// newOkToken returns a token that always reports success.
func newOkToken() *MockToken {
	token := new(MockToken)
	token.On("Wait").Return(true)
	token.On("Error").Return(nil)
	return token
}

// MockMessage implements mqtt.Message for testing
type MockMessage struct {
	payload []byte
	topic   string
}

func NewMockMessage(topic string, payload []byte) *MockMessage {
	return &MockMessage{
		payload: payload,
		topic:   topic,
	}
}

func (m *MockMessage) Payload() []byte   { return m.payload }
func (m *MockMessage) Topic() string     { return m.topic }
func (m *MockMessage) Duplicate() bool   { return false }
func (m *MockMessage) Qos() byte         { return 1 }
func (m *MockMessage) Retained() bool    { return false }
func (m *MockMessage) MessageID() uint16 { return 1 }
func (m *MockMessage) Ack()              {}

// MockRelayInfo is a mock implementation of the RelayInfoInterface
type MockRelayInfo struct {
	mock.Mock
}

func (m *MockRelayInfo) LoadRelayInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRelayInfo) SaveRelayID(relayID string) error {
	args := m.Called(relayID)
	return args.Error(0)
}

func (m *MockRelayInfo) GetRelayID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRelayInfo) GetRelayIdentity() *identity.Identity {
	args := m.Called()
	return args.Get(0).(*identity.Identity)
}

// fakeScheduler records scheduled watchdogs and lets tests fire them
// deterministically.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	mu        sync.Mutex
	d         time.Duration
	fn        func()
	cancelled bool
}

func (s *fakeScheduler) Schedule(d time.Duration, fn func()) scheduler.Handle {
	t := &fakeTimer{d: d, fn: fn}
	s.mu.Lock()
	s.timers = append(s.timers, t)
	s.mu.Unlock()
	return t
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *fakeScheduler) timer(i int) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[i]
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

func (t *fakeTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

func (t *fakeTimer) isCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// invoke runs the callback regardless of cancellation, the way a timer
// already in flight when cancelled would.
func (t *fakeTimer) invoke() {
	t.fn()
}

// recordingSink collects heartbeat messages handed to it.
type recordingSink struct {
	messages chan models.HeartbeatMessage
}

func newRecordingSink() *recordingSink {
	return &recordingSink{messages: make(chan models.HeartbeatMessage, 16)}
}

func (r *recordingSink) HandleMessage(msg models.HeartbeatMessage) {
	r.messages <- msg
}

// recvEvent waits for one event on a bus subscription.
func recvEvent(t *testing.T, ch <-chan interface{}) interface{} {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// expectNoEvent asserts that no event arrives within a short window.
func expectNoEvent(t *testing.T, ch <-chan interface{}) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %#v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}
