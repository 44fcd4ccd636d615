package events

import "testing"

func TestBus_PublishFanOut(t *testing.T) {
	b := NewBus()
	a := b.Subscribe(4)
	c := b.Subscribe(4)

	b.Publish(Event{Kind: InstanceSelectionChanged, Instance: "Survival"})

	for _, ch := range []<-chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Kind != InstanceSelectionChanged || e.Instance != "Survival" {
				t.Errorf("unexpected event %+v", e)
			}
		default:
			t.Error("subscriber missed event")
		}
	}
}

func TestBus_FullSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)

	b.Publish(Event{Kind: InstancesChanged})
	b.Publish(Event{Kind: InstancesChanged}) // dropped

	if len(ch) != 1 {
		t.Errorf("Expected 1 buffered event, got %d", len(ch))
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)

	b.Publish(Event{Kind: Notice})
	if _, ok := <-ch; ok {
		t.Error("Expected closed channel")
	}
}

func TestBus_NilSafe(t *testing.T) {
	var b *Bus
	b.Publish(Event{Kind: Notice})
	b.Notify(LevelInfo, "hello %s", "world")
}

func TestBus_Notify(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe(1)
	b.Notify(LevelWarn, "Account %s refreshed", "Steve")

	e := <-ch
	if e.Kind != Notice || e.Level != LevelWarn || e.Text != "Account Steve refreshed" {
		t.Errorf("unexpected notice %+v", e)
	}
}
