// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

func newGoChannel(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, watermill.NopLogger{})
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, eventType, want string
	}{
		{"storypull.events", models.EventContentCreated, "storypull.events.content.created"},
		{"", models.EventContentPublished, "content.published"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.eventType); got != tt.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tt.prefix, tt.eventType, got, tt.want)
		}
	}
}

func TestPublisher_PublishContentEvent(t *testing.T) {
	ps := newGoChannel(t)
	pub := NewPublisher(ps, "storypull.events")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msgs, err := ps.Subscribe(ctx, "storypull.events.content.updated")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	event := models.ContentEvent{
		EventID:    "3f1c2a4e-8b55-4f6e-9d0a-6a1b2c3d4e5f",
		Type:       models.EventContentUpdated,
		ContentID:  "item-1",
		AuthorID:   "alice",
		Status:     models.StatusPublished,
		Version:    2,
		OccurredAt: time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC),
	}
	reqCtx := logging.ContextWithRequestID(ctx, "req-42")
	if err := pub.PublishContentEvent(reqCtx, event); err != nil {
		t.Fatalf("PublishContentEvent() error = %v", err)
	}

	select {
	case msg := <-msgs:
		msg.Ack()
		if msg.UUID != event.EventID {
			t.Errorf("UUID = %q, want event id", msg.UUID)
		}
		if msg.Metadata.Get(MetadataEventType) != models.EventContentUpdated ||
			msg.Metadata.Get(MetadataContentID) != "item-1" ||
			msg.Metadata.Get(MetadataRequestID) != "req-42" {
			t.Errorf("Metadata = %v", msg.Metadata)
		}
		got, err := DecodeContentEvent(msg)
		if err != nil {
			t.Fatalf("DecodeContentEvent() error = %v", err)
		}
		if got.ContentID != event.ContentID || got.Version != 2 || !got.OccurredAt.Equal(event.OccurredAt) {
			t.Errorf("decoded = %+v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(string, ...*message.Message) error {
	f.calls++
	return errors.New("nats: no servers available for connection")
}

func (f *failingPublisher) Close() error { return nil }

func TestPublisher_BreakerOpensAfterFailures(t *testing.T) {
	failing := &failingPublisher{}
	pub := NewPublisher(failing, "")
	event := models.ContentEvent{EventID: "e", Type: models.EventContentCreated}

	for i := 0; i < 8; i++ {
		if err := pub.PublishContentEvent(context.Background(), event); err == nil {
			t.Fatalf("publish %d succeeded against a failing broker", i)
		}
	}
	if failing.calls != 5 {
		t.Errorf("broker called %d times, want 5 before the breaker opened", failing.calls)
	}
}

func TestPublisher_Close(t *testing.T) {
	pub := NewPublisher(newGoChannel(t), "")
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	err := pub.PublishContentEvent(context.Background(), models.ContentEvent{EventID: "e", Type: models.EventContentCreated})
	if !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("error = %v, want ErrPublisherClosed", err)
	}
}
