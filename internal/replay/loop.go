// v2
// internal/replay/loop.go

package replay

import (
	"context"
	"log/slog"
	"time"

	"github.com/vpp-edge/metersim/internal/dataset"
	"github.com/vpp-edge/metersim/internal/observability"
	"github.com/vpp-edge/metersim/internal/state"
	"github.com/vpp-edge/metersim/internal/telemetry"
)

// Publisher delivers one encoded payload to the broker topic.
type Publisher interface {
	Publish(payload []byte) error
	Connected() bool
}

// PayloadMirror copies encoded payloads to a secondary sink.
type PayloadMirror interface {
	Publish(ctx context.Context, assetID string, payload []byte) error
}

// Loop is the single long-running task replaying the dataset at a fixed
// cadence. It runs for the process lifetime; only ctx cancellation stops
// it.
type Loop struct {
	log      *slog.Logger
	ds       *dataset.Dataset
	builder  telemetry.Builder
	pub      Publisher
	mirror   PayloadMirror
	store    *state.Store
	metrics  *observability.Metrics
	interval time.Duration
}

// NewLoop assembles the replay loop. mirror and metrics may be nil.
func NewLoop(ds *dataset.Dataset, builder telemetry.Builder, pub Publisher, mirror PayloadMirror,
	store *state.Store, metrics *observability.Metrics, interval time.Duration, log *slog.Logger) *Loop {
	return &Loop{
		log:      log.With(slog.String("component", "replay")),
		ds:       ds,
		builder:  builder,
		pub:      pub,
		mirror:   mirror,
		store:    store,
		metrics:  metrics,
		interval: interval,
	}
}

// Run replays rows until ctx is cancelled. Each tick builds the payload for
// the current cursor, publishes it when connected (a publish failure never
// aborts the loop), updates the shared snapshot and advances the cursor
// modulo the dataset length. The stored row index is the cursor after the
// advance: a 3-row dataset cycles 1, 2, 0, 1, 2, 0.
func (l *Loop) Run(ctx context.Context) {
	total := l.ds.Len()
	idx := 0

	t := time.NewTicker(l.interval)
	defer t.Stop()
	l.log.Info("replay loop started", "rows", total, "interval", l.interval.String())

	for {
		l.tick(ctx, idx, total)
		idx = (idx + 1) % total

		select {
		case <-ctx.Done():
			l.log.Info("replay loop stopped")
			return
		case <-t.C:
		}
	}
}

func (l *Loop) tick(ctx context.Context, idx, total int) {
	row := l.ds.At(idx)
	payload := l.builder.Build(row)

	b, err := payload.Encode()
	if err != nil {
		l.log.Error("payload encode failed", "row", idx, "err", err)
		return
	}

	if l.pub.Connected() {
		if err := l.pub.Publish(b); err != nil {
			l.log.Warn("publish failed", "row", idx, "err", err)
		} else {
			l.log.Info("published row", "row", idx+1, "total", total)
		}
	} else {
		l.log.Warn("broker not connected, skipping publish", "row", idx)
		l.metrics.Skipped()
	}

	if l.mirror != nil {
		// best effort; the mirror logs its own failures
		_ = l.mirror.Publish(ctx, l.builder.AssetID, b)
	}

	l.store.SetProgress(payload, (idx+1)%total)
	l.metrics.Tick()
}
