// v1
// internal/replay/loop_test.go

package replay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vpp-edge/metersim/internal/dataset"
	"github.com/vpp-edge/metersim/internal/state"
	"github.com/vpp-edge/metersim/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// threeRowDataset writes a 3-row CSV whose voltage encodes the row number
// (1, 2, 3) so published payloads are distinguishable.
func threeRowDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.csv")
	csv := "Timestamp,Voltage (V)\n" +
		"2024-03-01T00:00:00Z,1\n" +
		"2024-03-01T01:00:00Z,2\n" +
		"2024-03-01T02:00:00Z,3\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	ds, err := dataset.Load(path, testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ds
}

// fakePublisher stands in for the broker manager. Like the real one it
// bumps the shared publish counter per acknowledged send.
type fakePublisher struct {
	store     *state.Store
	connected bool
	err       error

	mu       sync.Mutex
	attempts int
	payloads [][]byte
}

func (f *fakePublisher) Publish(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.err != nil {
		return f.err
	}
	cp := append([]byte(nil), p...)
	f.payloads = append(f.payloads, cp)
	f.store.IncPublished()
	return nil
}

func (f *fakePublisher) Connected() bool { return f.connected }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakePublisher) payload(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[i]
}

func runLoop(t *testing.T, l *Loop, stopWhen func() bool) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !stopWhen() {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("loop did not reach the expected state in time")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestLoopPublishesAndWraps(t *testing.T) {
	ds := threeRowDataset(t)
	store := state.New(ds.Len())
	pub := &fakePublisher{store: store, connected: true}
	builder := telemetry.NewBuilder("node-01", 50.0)

	l := NewLoop(ds, builder, pub, nil, store, nil, time.Millisecond, testLogger())
	runLoop(t, l, func() bool { return pub.count() >= 10 })

	if pub.count() < 10 {
		t.Fatalf("published %d payloads, want >= 10", pub.count())
	}

	// rows replay in order and wrap: voltages 1,2,3,1,2,3,...
	for i := 0; i < 9; i++ {
		var p telemetry.Payload
		if err := json.Unmarshal(pub.payload(i), &p); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
		want := float64(i%3 + 1)
		if p.GridState.VoltageV != want {
			t.Fatalf("payload %d voltage=%v want %v", i, p.GridState.VoltageV, want)
		}
	}

	// snapshot pair is coherent: row_index is the cursor after the stored
	// payload's row, i.e. voltage mod 3
	snap := store.Snapshot()
	if snap.LastPayload == nil {
		t.Fatal("snapshot has no payload")
	}
	v := int(snap.LastPayload.GridState.VoltageV)
	if snap.RowIndex != v%3 {
		t.Fatalf("incoherent snapshot: voltage=%d row_index=%d", v, snap.RowIndex)
	}
	if snap.PublishCount < 10 {
		t.Fatalf("PublishCount=%d want >= 10", snap.PublishCount)
	}
}

func TestLoopAdvancesWhileDisconnected(t *testing.T) {
	ds := threeRowDataset(t)
	store := state.New(ds.Len())
	pub := &fakePublisher{store: store, connected: false}
	builder := telemetry.NewBuilder("node-01", 50.0)

	l := NewLoop(ds, builder, pub, nil, store, nil, time.Millisecond, testLogger())
	runLoop(t, l, func() bool {
		snap := store.Snapshot()
		return snap.LastPayload != nil && snap.RowIndex == 2
	})

	snap := store.Snapshot()
	if snap.PublishCount != 0 || pub.count() != 0 {
		t.Fatalf("published while disconnected: store=%d fake=%d", snap.PublishCount, pub.count())
	}
	if snap.LastPayload == nil {
		t.Fatal("state must advance even when offline")
	}
}

func TestLoopSurvivesPublishFailures(t *testing.T) {
	ds := threeRowDataset(t)
	store := state.New(ds.Len())
	pub := &fakePublisher{store: store, connected: true, err: errors.New("broken pipe")}
	builder := telemetry.NewBuilder("node-01", 50.0)

	l := NewLoop(ds, builder, pub, nil, store, nil, time.Millisecond, testLogger())
	runLoop(t, l, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return pub.attempts >= 5
	})

	snap := store.Snapshot()
	if snap.PublishCount != 0 {
		t.Fatalf("PublishCount=%d want 0 after transport failures", snap.PublishCount)
	}
	if snap.LastPayload == nil {
		t.Fatal("loop stopped advancing after a publish failure")
	}
}

// mirrorRecorder captures mirrored payloads.
type mirrorRecorder struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (m *mirrorRecorder) Publish(_ context.Context, _ string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, append([]byte(nil), payload...))
	return nil
}

func (m *mirrorRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func TestLoopMirrorsPayloads(t *testing.T) {
	ds := threeRowDataset(t)
	store := state.New(ds.Len())
	pub := &fakePublisher{store: store, connected: true}
	rec := &mirrorRecorder{}
	builder := telemetry.NewBuilder("node-01", 50.0)

	l := NewLoop(ds, builder, pub, rec, store, nil, time.Millisecond, testLogger())
	runLoop(t, l, func() bool { return rec.count() >= 3 })

	if rec.count() < 3 {
		t.Fatalf("mirrored %d payloads, want >= 3", rec.count())
	}
}
