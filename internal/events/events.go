// Package events is the typed notification channel between the install and
// offline subsystems and whoever observes them.
package events

import (
	"context"
	"sync"
	"time"
)

type Kind string

const (
	KindInstallable         Kind = "installable"
	KindInstalled           Kind = "installed"
	KindControllerInstalled Kind = "controller.installed"
	KindControllerActivated Kind = "controller.activated"
	KindControllerRedundant Kind = "controller.redundant"
	KindCacheCleared        Kind = "cache.cleared"
)

// Event is a single lifecycle or installability notification.
type Event struct {
	Kind       Kind              `json:"kind"`
	Source     string            `json:"source"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Time       time.Time         `json:"time"`
}

// New builds an event stamped with the current time.
func New(kind Kind, source string, attrs map[string]string) Event {
	return Event{Kind: kind, Source: source, Attributes: attrs, Time: time.Now().UTC()}
}

// Observer receives published events.
type Observer interface {
	Notify(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Notify(ctx context.Context, e Event) { f(ctx, e) }

// Bus fans events out to its subscribers in subscription order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	observers map[int]Observer
	order     []int
}

func NewBus() *Bus {
	return &Bus{observers: make(map[int]Observer)}
}

// Subscribe registers o and returns a function that removes it.
func (b *Bus) Subscribe(o Observer) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.observers[id] = o
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.observers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers e synchronously. A nil Bus drops the event.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	targets := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		targets = append(targets, b.observers[id])
	}
	b.mu.RUnlock()

	for _, o := range targets {
		o.Notify(ctx, e)
	}
}
