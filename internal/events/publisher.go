// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package events publishes content lifecycle events through watermill.
//
// Production uses core NATS (no JetStream) via watermill-nats; tests use
// the in-process gochannel pub/sub. Events are fire-and-forget: a failed
// publish is reported to the caller, which logs it and moves on.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("event publisher is closed")

// Metadata keys set on every message.
const (
	MetadataEventType = "event_type"
	MetadataContentID = "content_id"
	MetadataRequestID = "request_id"
)

// Topic returns the topic an event type is published on.
func Topic(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

// Publisher wraps a watermill publisher with a circuit breaker so a dead
// broker costs one fast failure per write instead of a timeout.
type Publisher struct {
	publisher   message.Publisher
	topicPrefix string
	breaker     *gobreaker.CircuitBreaker[interface{}]

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps an existing watermill publisher.
func NewPublisher(pub message.Publisher, topicPrefix string) *Publisher {
	return &Publisher{
		publisher:   pub,
		topicPrefix: topicPrefix,
		breaker: gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
			Name:        "content-events",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("Event publisher circuit breaker state changed")
			},
		}),
	}
}

// NewNATSPublisher connects a watermill-nats publisher to url using core
// NATS subjects.
func NewNATSPublisher(url, topicPrefix string) (*Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	natsOpts := []natsgo.Option{
		natsgo.Name("story-pull-events"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return NewPublisher(pub, topicPrefix), nil
}

// PublishContentEvent encodes event as JSON and publishes it on the topic
// for its type. The event id doubles as the message UUID.
func (p *Publisher) PublishContentEvent(ctx context.Context, event models.ContentEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataEventType, event.Type)
	msg.Metadata.Set(MetadataContentID, event.ContentID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}
	msg.SetContext(ctx)

	topic := Topic(p.topicPrefix, event.Type)
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close closes the underlying publisher. It is safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// DecodeContentEvent parses a message published by PublishContentEvent.
func DecodeContentEvent(msg *message.Message) (models.ContentEvent, error) {
	var event models.ContentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return event, fmt.Errorf("deserialize event: %w", err)
	}
	return event, nil
}
