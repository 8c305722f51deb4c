package stream

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	if b.ListenerCount() != 0 {
		t.Errorf("Initial ListenerCount = %d, want 0", b.ListenerCount())
	}

	l1 := b.Subscribe()
	l2 := b.Subscribe()
	if b.ListenerCount() != 2 {
		t.Errorf("After 2 subscribes: ListenerCount = %d, want 2", b.ListenerCount())
	}

	b.Unsubscribe(l1)
	b.Unsubscribe(l1)
	if b.ListenerCount() != 1 {
		t.Errorf("After unsubscribing l1 twice: ListenerCount = %d, want 1", b.ListenerCount())
	}
	select {
	case <-l1.Done():
	default:
		t.Error("Done() not closed after unsubscribe")
	}

	b.Unsubscribe(l2)
	if b.ListenerCount() != 0 {
		t.Errorf("After all unsubscribed: ListenerCount = %d, want 0", b.ListenerCount())
	}
}

func TestBroadcastMultipleListeners(t *testing.T) {
	b := NewBroadcaster()
	listeners := make([]*Listener, 5)
	for i := range listeners {
		listeners[i] = b.Subscribe()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan []float32, 10)
	go b.Run(ctx, source)

	source <- []float32{0.25, -0.25}

	for i, l := range listeners {
		select {
		case got := <-l.C:
			if len(got) != 2 || got[0] != 0.25 || got[1] != -0.25 {
				t.Errorf("Listener %d got %v, want [0.25 -0.25]", i, got)
			}
		case <-time.After(time.Second):
			t.Errorf("Listener %d timed out", i)
		}
	}
}

func TestBroadcastDropsForSlowListener(t *testing.T) {
	b := NewBroadcaster()
	slow := b.Subscribe()
	fast := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan []float32)
	go b.Run(ctx, source)

	fastCount := make(chan int)
	go func() {
		n := 0
		for {
			select {
			case <-fast.C:
				n++
			case <-time.After(200 * time.Millisecond):
				fastCount <- n
				return
			}
		}
	}()

	// Unbuffered source: every send completes only after the previous block
	// was fanned out, so the slow listener cannot stall the broadcast.
	for i := 0; i < ListenerBuffer+50; i++ {
		select {
		case source <- []float32{float32(i)}:
		case <-time.After(time.Second):
			t.Fatalf("broadcast stalled at block %d", i)
		}
	}

	if got := len(slow.C); got != ListenerBuffer {
		t.Errorf("slow listener holds %d blocks, want %d", got, ListenerBuffer)
	}
	// The final block may still be fanning out.
	if got := slow.Dropped(); got < 49 || got > 50 {
		t.Errorf("slow listener dropped %d blocks, want 49 or 50", got)
	}
	if got := <-fastCount; got < ListenerBuffer {
		t.Errorf("fast listener got %d blocks, want at least %d", got, ListenerBuffer)
	}
}

func TestBroadcastStops(t *testing.T) {
	tests := []struct {
		name string
		stop func(cancel context.CancelFunc, source chan []float32)
	}{
		{"context cancel", func(cancel context.CancelFunc, _ chan []float32) { cancel() }},
		{"source close", func(_ context.CancelFunc, source chan []float32) { close(source) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBroadcaster()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			source := make(chan []float32)

			done := make(chan struct{})
			go func() {
				b.Run(ctx, source)
				close(done)
			}()
			tt.stop(cancel, source)

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("Broadcaster did not stop")
			}
		})
	}
}
