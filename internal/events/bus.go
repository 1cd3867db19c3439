// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

/*
bus.go - Watermill Event Bus

The Bus wraps a Watermill gochannel pub/sub and a message.Router. Payloads
are JSON encoded; the publisher's correlation ID travels in message metadata
and is restored into the handler's context.

Router middleware (outer to inner):
  - Recoverer: handler panics become errors
  - Retry: failed handlers are retried with exponential backoff

Publish blocks until the router is running so that events emitted during
startup are not dropped by the non-persistent gochannel.
*/

//nolint:staticcheck // File documentation, not package doc
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/metrics"
)

const correlationIDKey = "correlation_id"

// Config configures the bus.
type Config struct {
	BufferSize   int64
	CloseTimeout time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		BufferSize:   256,
		CloseTimeout: 10 * time.Second,
		MaxRetries:   3,
		RetryDelay:   100 * time.Millisecond,
	}
}

// Publisher publishes a JSON payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// HandlerFunc handles one decoded message body.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Bus is the in-process event bus.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter

	mu       sync.Mutex
	handlers map[string]*message.Handler
	closed   bool
}

// NewBus creates a bus. Handlers must be registered with Subscribe before
// Serve is called.
func NewBus(cfg Config) (*Bus, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.BufferSize,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.RetryDelay,
		MaxInterval:     10 * cfg.RetryDelay,
		Multiplier:      2.0,
		Logger:          logger,
	}.Middleware)

	return &Bus{
		pubsub:   pubsub,
		router:   router,
		logger:   logger,
		handlers: map[string]*message.Handler{},
	}, nil
}

// Subscribe registers fn under a unique handler name for topic.
func (b *Bus) Subscribe(name, topic string, fn HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[name]; exists {
		return fmt.Errorf("handler %q already registered", name)
	}
	b.handlers[name] = b.router.AddConsumerHandler(name, topic, b.pubsub, func(msg *message.Message) error {
		ctx := msg.Context()
		if id := msg.Metadata.Get(correlationIDKey); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		return fn(ctx, msg.Payload)
	})
	return nil
}

// Publish encodes payload as JSON and publishes it to topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	select {
	case <-b.router.Running():
	case <-ctx.Done():
		return ctx.Err()
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(correlationIDKey, id)
	}
	if err := b.pubsub.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
	return nil
}

// Serve runs the router until ctx is canceled. It implements suture.Service.
func (b *Bus) Serve(ctx context.Context) error {
	b.mu.Lock()
	n := len(b.handlers)
	b.mu.Unlock()
	logging.Info().Int("handlers", n).Msg("Event bus started")
	err := b.router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Running returns a channel closed once the router is processing messages.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the pub/sub.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if err := b.router.Close(); err != nil {
		return fmt.Errorf("close router: %w", err)
	}
	return b.pubsub.Close()
}

// String implements fmt.Stringer for suture logging.
func (b *Bus) String() string {
	return "event-bus"
}

// Decode unmarshals an event payload.
func Decode[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("decode event: %w", err)
	}
	return v, nil
}
