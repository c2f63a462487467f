package mot

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGate(t *testing.T) {
	var gate Gate
	if gate.Busy() {
		t.Fatal("Zero gate should be open")
	}
	if !gate.TryAcquire() {
		t.Fatal("First acquire should succeed")
	}
	if gate.TryAcquire() {
		t.Error("Second acquire should fail while busy")
	}
	if !gate.Busy() {
		t.Error("Gate should be busy")
	}
	gate.Release()
	if !gate.TryAcquire() {
		t.Error("Acquire after release should succeed")
	}
}

func TestGateSingleCycleInFlight(t *testing.T) {
	var gate Gate
	tracker := DefaultTracker()
	var inFlight, maxInFlight, started atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !gate.TryAcquire() {
				// Frame dropped
				return
			}
			defer gate.Release()
			started.Add(1)
			n := inFlight.Add(1)
			if n > maxInFlight.Load() {
				maxInFlight.Store(n)
			}
			_, err := tracker.Update([]Detection{{Class: "car", Score: 0.9, BBox: Rectangle{X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1}}})
			if err != nil {
				t.Error(err)
			}
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if maxInFlight.Load() != 1 {
		t.Errorf("Expected at most one cycle in flight, got %d", maxInFlight.Load())
	}
	if started.Load() < 1 {
		t.Error("Expected at least one cycle to run")
	}
	if uint64(started.Load()) != tracker.Stats().Frame {
		t.Errorf("Expected %d frames processed, got %d", started.Load(), tracker.Stats().Frame)
	}
}
