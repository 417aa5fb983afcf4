// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/Danny-Lenko/story-pull-backend/internal/config"
	"github.com/Danny-Lenko/story-pull-backend/internal/events"
	"github.com/Danny-Lenko/story-pull-backend/internal/logging"
	"github.com/Danny-Lenko/story-pull-backend/internal/rpc"
)

const flushTimeout = 2 * time.Second

// NATSComponents holds the NATS pieces that outlive the supervisor tree.
// The RPC server itself runs under the supervisor; these are closed after
// it stops.
type NATSComponents struct {
	embedded  *rpc.EmbeddedServer
	conn      *natsgo.Conn
	publisher *events.Publisher

	mu      sync.Mutex
	running bool
}

// initNATS starts the embedded server when configured, connects the RPC
// connection and, if events are enabled, the watermill publisher.
// It returns nil, nil when NATS is disabled.
func initNATS(cfg *config.Config) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled, RPC transport and content events are off")
		return nil, nil
	}

	c := &NATSComponents{}
	url := cfg.NATS.URL

	if cfg.NATS.EmbeddedServer {
		srv, err := rpc.NewEmbeddedServer(cfg.NATS.Host, cfg.NATS.Port)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.embedded = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Msg("Embedded NATS server started")
	}

	conn, err := rpc.Connect(url, "story-pull-rpc")
	if err != nil {
		c.shutdownEmbedded(context.Background())
		return nil, fmt.Errorf("connect NATS: %w", err)
	}
	c.conn = conn

	if cfg.Events.Enabled {
		pub, err := events.NewNATSPublisher(url, cfg.Events.TopicPrefix)
		if err != nil {
			conn.Close()
			c.shutdownEmbedded(context.Background())
			return nil, fmt.Errorf("create event publisher: %w", err)
		}
		c.publisher = pub
		logging.Info().Str("prefix", cfg.Events.TopicPrefix).Msg("Content event publisher ready")
	}

	c.running = true
	return c, nil
}

// IsRunning reports whether the components are live.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Conn returns the RPC connection.
func (c *NATSComponents) Conn() *natsgo.Conn {
	if c == nil {
		return nil
	}
	return c.conn
}

// Publisher returns the event publisher, or nil when events are disabled.
func (c *NATSComponents) Publisher() *events.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Shutdown closes the publisher and the connection, then stops the
// embedded server. Safe on nil and safe to call twice.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false

	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event publisher")
		}
	}
	if c.conn != nil {
		if err := c.conn.FlushTimeout(flushTimeout); err != nil {
			logging.Warn().Err(err).Msg("Error flushing NATS connection")
		}
		c.conn.Close()
	}
	c.shutdownEmbedded(ctx)
	logging.Info().Msg("NATS components stopped")
}

func (c *NATSComponents) shutdownEmbedded(ctx context.Context) {
	if c.embedded == nil {
		return
	}
	if err := c.embedded.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server did not stop cleanly")
	}
}
