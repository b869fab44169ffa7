package mqtt

import (
	"sync"

	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/wire"
)

// FakePublisher records published notifications and lifecycle events for test
// assertions and lets tests inject inbound messages.
type FakePublisher struct {
	mu sync.Mutex

	// Notifications contains every notification that was published.
	Notifications []logic.Notification

	// Payloads contains the encoded notification payloads.
	Payloads [][]byte

	// SystemEvents contains all lifecycle events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for lifecycle events.
	SystemPayloads [][]byte

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	handler Handler
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Notify records the notification.
func (f *FakePublisher) Notify(n logic.Notification) {
	payload, _ := wire.Encode(n)
	f.mu.Lock()
	f.Notifications = append(f.Notifications, n)
	f.Payloads = append(f.Payloads, payload)
	f.mu.Unlock()
}

// Names returns the names of the recorded notifications in order.
func (f *FakePublisher) Names() []logic.NotificationName {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]logic.NotificationName, 0, len(f.Notifications))
	for _, n := range f.Notifications {
		names = append(names, n.Name)
	}
	return names
}

// Last returns the most recent notification with the given name.
func (f *FakePublisher) Last(name logic.NotificationName) (logic.Notification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.Notifications) - 1; i >= 0; i-- {
		if f.Notifications[i].Name == name {
			return f.Notifications[i], true
		}
	}
	return logic.Notification{}, false
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	f.mu.Unlock()
	return nil
}

// Subscribe stores h so Deliver can call it.
func (f *FakePublisher) Subscribe(h Handler) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
	return nil
}

// Deliver simulates an inbound message. It reports whether a handler was registered.
func (f *FakePublisher) Deliver(name string, payload []byte) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(name, payload)
	return true
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded messages.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notifications = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishSystemError = nil
	f.SubscribeError = nil
	f.Connected = false
}
