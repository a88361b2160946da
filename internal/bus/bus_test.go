package bus

import (
	"context"
	"testing"
	"time"
)

func TestPublishAndConsumeInbound(t *testing.T) {
	b := New(4)
	msg := InboundMessage{Channel: "telegram", ChatID: "c1", Content: "hi"}
	b.PublishInbound(msg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, ok := b.ConsumeInbound(ctx)
	if !ok {
		t.Fatalf("expected a message to be consumed")
	}
	if got.ChatID != "c1" || got.Content != "hi" {
		t.Fatalf("got %+v", got)
	}
}

func TestConsumeInboundRespectsCancellation(t *testing.T) {
	b := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := b.ConsumeInbound(ctx)
	if ok {
		t.Fatalf("expected consume to fail on cancelled context with nothing published")
	}
}

func TestPublishInboundDropsWhenFull(t *testing.T) {
	b := New(1)
	b.PublishInbound(InboundMessage{ChatID: "first"})
	b.PublishInbound(InboundMessage{ChatID: "second"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, ok := b.ConsumeInbound(ctx)
	if !ok || got.ChatID != "first" {
		t.Fatalf("expected the first published message to survive, got %+v ok=%v", got, ok)
	}
}

func TestPublishAndSubscribeOutbound(t *testing.T) {
	b := New(4)
	b.PublishOutbound(OutboundMessage{Channel: "telegram", ChatID: "c1", Content: "reply"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, ok := b.SubscribeOutbound(ctx)
	if !ok || got.Content != "reply" {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}
