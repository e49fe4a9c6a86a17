package events

import (
	"context"
	"testing"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(ObserverFunc(func(_ context.Context, e Event) { got = append(got, "a:"+string(e.Kind)) }))
	unsub := bus.Subscribe(ObserverFunc(func(_ context.Context, e Event) { got = append(got, "b:"+string(e.Kind)) }))

	bus.Publish(context.Background(), New(KindInstallable, "test", nil))
	unsub()
	unsub()
	bus.Publish(context.Background(), New(KindInstalled, "test", nil))

	want := []string{"a:installable", "b:installable", "a:installed"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNilBusPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(context.Background(), New(KindCacheCleared, "test", nil))
}
