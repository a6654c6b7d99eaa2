package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg := Message{
		Source:     "qr",
		RollNumber: "231210066",
		CourseCode: "CSBB 251",
		Date:       "2024-03-15",
		At:         time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	select {
	case got := <-out:
		if got != msg {
			t.Fatalf("got %+v, want %+v", got, msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishFullBufferDoesNotBlock(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Source: "qr"}); err != nil {
		t.Fatalf("first Publish: %v", err)
	}

	// No consumer exists; a second publish must fail fast, not wedge the
	// submitting handler.
	done := make(chan error, 1)
	go func() { done <- q.Publish(ctx, Message{Source: "qr"}) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrFull) {
			t.Fatalf("want ErrFull, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer with no consumer")
	}
}

func TestInMemoryPublishRespectsCancel(t *testing.T) {
	q := NewInMemory(1)
	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Publish(ctx, Message{Source: "manual"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	cancel()
	// Buffer is full and the context is done; Publish must not block.
	if err := q.Publish(ctx, Message{Source: "manual"}); err == nil {
		t.Fatal("want context error on full queue with cancelled context")
	}
}
