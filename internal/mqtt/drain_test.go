package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Lalufu/water-mqtt/internal/buffer"
	"github.com/Lalufu/water-mqtt/internal/meter"
)

func runDrainer(t *testing.T, d *Drainer, stop func(*FakePublisher) bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	pub := d.Pub.(*FakePublisher)
	deadline := time.After(5 * time.Second)
	for {
		if stop(pub) {
			break
		}
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatal("drainer did not reach expected state in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drainer did not stop after cancel")
	}
}

func TestDrainerPublishesInOrder(t *testing.T) {
	buf := buffer.New(10)
	for i := uint64(1); i <= 3; i++ {
		buf.TryEnqueue(meter.Snapshot{Counter: i, Serial: "ABC123"})
	}

	pub := NewFakePublisher()
	d := &Drainer{Buffer: buf, Pub: pub, Log: zap.NewNop()}
	runDrainer(t, d, func(p *FakePublisher) bool { return p.PayloadCount() == 3 })

	for i, payload := range pub.Payloads {
		var s meter.Snapshot
		if err := json.Unmarshal(payload, &s); err != nil {
			t.Fatalf("payload %d: invalid JSON: %v", i, err)
		}
		if s.Counter != uint64(i+1) {
			t.Errorf("payload %d: counter %d, want %d (FIFO order)", i, s.Counter, i+1)
		}
	}
}

func TestDrainerRetriesFailedPublish(t *testing.T) {
	buf := buffer.New(10)
	buf.TryEnqueue(meter.Snapshot{Counter: 1})

	pub := NewFakePublisher()
	pub.FailFirst = 2

	d := &Drainer{
		Buffer:        buf,
		Pub:           pub,
		Log:           zap.NewNop(),
		RetryInterval: time.Millisecond,
	}
	runDrainer(t, d, func(p *FakePublisher) bool { return p.PayloadCount() == 1 })

	if pub.Attempts() != 3 {
		t.Errorf("attempts: got %d, want 3 (two failures, one success)", pub.Attempts())
	}
}

func TestDrainerStopsDuringRetryWait(t *testing.T) {
	buf := buffer.New(10)
	buf.TryEnqueue(meter.Snapshot{Counter: 1})

	pub := NewFakePublisher()
	pub.PublishError = errPublishFailed

	d := &Drainer{
		Buffer:        buf,
		Pub:           pub,
		Log:           zap.NewNop(),
		RetryInterval: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// Let it hit the failing publish and enter the retry wait.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: got %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("drainer stuck in retry wait after cancel")
	}
}
