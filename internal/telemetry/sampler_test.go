package telemetry

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func TestSamplerRun_StopsOnCancel(t *testing.T) {
	s := NewSampler(slog.Default())
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Sample, 16)
	go s.Run(ctx, out)

	// Drain at least one reading, then cancel.
	select {
	case <-out:
	case <-time.After(2 * time.Second):
		t.Fatal("no sample produced")
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("sampler did not stop after cancel")
		}
	}
}

func TestSamplerRun_NonBlockingSend(t *testing.T) {
	s := NewSampler(slog.Default())
	s.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unbuffered channel with no reader: sends must be dropped, not
	// block the loop.
	out := make(chan Sample)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, out)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sampler blocked on a full channel")
	}
}
