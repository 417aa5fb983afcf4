// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package main

import (
	"context"
	"testing"
	"time"

	"github.com/Danny-Lenko/story-pull-backend/internal/config"
)

func TestNATSComponents_NilSafe(t *testing.T) {
	var c *NATSComponents
	if c.IsRunning() {
		t.Error("IsRunning() should return false for nil components")
	}
	if c.Conn() != nil || c.Publisher() != nil {
		t.Error("nil components should expose no connection or publisher")
	}
	// Should not panic
	c.Shutdown(context.Background())

	(&NATSComponents{}).Shutdown(context.Background())
}

func TestInitNATS_Disabled(t *testing.T) {
	c, err := initNATS(&config.Config{})
	if err != nil {
		t.Fatalf("initNATS() error = %v", err)
	}
	if c != nil {
		t.Errorf("initNATS() = %+v, want nil when disabled", c)
	}
}

func TestInitNATS_EmbeddedLifecycle(t *testing.T) {
	tests := []struct {
		name          string
		events        bool
		wantPublisher bool
	}{
		{"rpc only", false, false},
		{"rpc and events", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				NATS: config.NATSConfig{
					Enabled:        true,
					EmbeddedServer: true,
					Host:           "127.0.0.1",
					Port:           -1,
				},
				Events: config.EventsConfig{Enabled: tt.events, TopicPrefix: "storypull.events"},
			}

			c, err := initNATS(cfg)
			if err != nil {
				t.Fatalf("initNATS() error = %v", err)
			}
			if !c.IsRunning() {
				t.Fatal("components should be running")
			}
			if !c.Conn().IsConnected() {
				t.Error("RPC connection is not connected")
			}
			if got := c.Publisher() != nil; got != tt.wantPublisher {
				t.Errorf("publisher present = %v, want %v", got, tt.wantPublisher)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			c.Shutdown(ctx)

			if c.IsRunning() {
				t.Error("should not be running after shutdown")
			}
			if !c.Conn().IsClosed() {
				t.Error("connection should be closed after shutdown")
			}
			if c.embedded.IsRunning() {
				t.Error("embedded server should be stopped")
			}

			// Second call is a no-op.
			c.Shutdown(ctx)
		})
	}
}
