// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/bggsync/internal/logging"
	"github.com/tomtom215/bggsync/internal/models"
)

func startBus(t *testing.T, register func(b *Bus)) *Bus {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	b, err := NewBus(cfg)
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	register(b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = b.Close()
		<-done
	})

	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	return b
}

func TestBus_PublishSubscribe(t *testing.T) {
	received := make(chan SnapshotUpdated, 1)
	var correlation atomic.Value

	b := startBus(t, func(b *Bus) {
		err := b.Subscribe("test", TopicSnapshotUpdated, func(ctx context.Context, payload []byte) error {
			ev, err := Decode[SnapshotUpdated](payload)
			if err != nil {
				return err
			}
			correlation.Store(logging.CorrelationIDFromContext(ctx))
			received <- ev
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	})

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	if err := b.Publish(ctx, TopicSnapshotUpdated, SnapshotUpdated{Username: "alice", State: models.StateReady}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case ev := <-received:
		if ev.Username != "alice" || ev.State != models.StateReady {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}
	if got, _ := correlation.Load().(string); got != "corr-1" {
		t.Errorf("correlation id = %q, want corr-1", got)
	}
}

func TestBus_RetriesFailedHandler(t *testing.T) {
	var attempts atomic.Int32
	done := make(chan struct{})

	b := startBus(t, func(b *Bus) {
		_ = b.Subscribe("flaky", TopicPlayRecorded, func(ctx context.Context, payload []byte) error {
			if attempts.Add(1) < 2 {
				return errors.New("temporary")
			}
			close(done)
			return nil
		})
	})

	if err := b.Publish(context.Background(), TopicPlayRecorded, PlayRecorded{Username: "alice", GameID: 13}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("handler not retried, attempts = %d", attempts.Load())
	}
}

func TestBus_DuplicateHandlerName(t *testing.T) {
	b, err := NewBus(DefaultConfig())
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer b.Close()

	noop := func(context.Context, []byte) error { return nil }
	if err := b.Subscribe("h", TopicEntityChanged, noop); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if err := b.Subscribe("h", TopicEntityChanged, noop); err == nil {
		t.Error("expected error for duplicate handler name")
	}
}

func TestBus_PublishHonoursContextBeforeStart(t *testing.T) {
	b, err := NewBus(DefaultConfig())
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Publish(ctx, TopicEntityChanged, EntityChanged{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
