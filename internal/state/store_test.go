// v1
// internal/state/store_test.go

package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/vpp-edge/metersim/internal/telemetry"
)

func payloadFor(idx int) telemetry.Payload {
	var p telemetry.Payload
	p.Header.AssetID = "node-01"
	p.GridState.VoltageV = float64(idx)
	return p
}

func TestConnectionLifecycle(t *testing.T) {
	s := New(3)

	if s.Connected() {
		t.Fatal("new store reports connected")
	}

	s.RecordError(errors.New("connect refused"))
	snap := s.Snapshot()
	if snap.LastError != "connect refused" || snap.MQTTConnected {
		t.Fatalf("after RecordError: %+v", snap)
	}

	s.MarkConnected()
	snap = s.Snapshot()
	if !snap.MQTTConnected || snap.LastError != "" {
		t.Fatalf("MarkConnected must set flag and clear error: %+v", snap)
	}

	s.MarkDisconnected()
	if s.Connected() {
		t.Fatal("MarkDisconnected did not clear flag")
	}
	if got := s.Snapshot().LastError; got != "" {
		t.Fatalf("disconnect must not touch last error, got %q", got)
	}
}

func TestPublishCounter(t *testing.T) {
	s := New(1)
	for i := 0; i < 5; i++ {
		s.IncPublished()
	}
	if got := s.Snapshot().PublishCount; got != 5 {
		t.Fatalf("PublishCount=%d want 5", got)
	}
}

func TestSnapshotReturnsCopy(t *testing.T) {
	s := New(3)
	s.SetProgress(payloadFor(1), 1)

	snap := s.Snapshot()
	snap.LastPayload.GridState.VoltageV = 999

	if got := s.Snapshot().LastPayload.GridState.VoltageV; got != 1 {
		t.Fatalf("snapshot leaked a live reference: voltage=%v", got)
	}
}

// TestSnapshotCoherence checks that a reader never observes a payload from
// one tick paired with the row index of another. The writer always stores
// a payload whose voltage equals the row index it writes.
func TestSnapshotCoherence(t *testing.T) {
	s := New(100)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			idx := i % 100
			s.SetProgress(payloadFor(idx), idx)
		}
	}()

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 5000; i++ {
				snap := s.Snapshot()
				if snap.LastPayload == nil {
					continue
				}
				if got := int(snap.LastPayload.GridState.VoltageV); got != snap.RowIndex {
					t.Errorf("torn read: payload tick %d, row_index %d", got, snap.RowIndex)
					return
				}
			}
		}()
	}

	<-done
	wg.Wait()
}
