package publish

import (
	"context"
	"sync"

	"github.com/KyleBrandon/thermostat-server/internal/thermostat"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	events []thermostat.Event

	// PublishError, if set, will be returned by Publish.
	PublishError error

	Closed bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) Publish(ctx context.Context, event thermostat.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}

	f.events = append(f.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (f *FakePublisher) Events() []thermostat.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]thermostat.Event(nil), f.events...)
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closed = true
	return nil
}
