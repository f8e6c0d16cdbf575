package db

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/banshee-data/racecar/internal/monitoring"
	"github.com/banshee-data/racecar/internal/timeutil"
	"github.com/banshee-data/racecar/internal/vehicle"
)

const (
	DefaultRecorderBuffer = 4096
	DefaultFlushInterval  = 250 * time.Millisecond
	maxBatch              = 256
)

type record struct {
	tick       *Tick
	transition *Transition
}

// TelemetryRecorder implements vehicle.Recorder. Records are queued without
// blocking and written in batches by Run; when the queue is full new
// records are dropped and counted.
type TelemetryRecorder struct {
	db            *DB
	clock         timeutil.Clock
	flushInterval time.Duration
	records       chan record
	dropped       atomic.Int64
	written       atomic.Int64
}

var _ vehicle.Recorder = (*TelemetryRecorder)(nil)

// NewTelemetryRecorder returns a recorder writing to db. Zero values select
// DefaultRecorderBuffer and DefaultFlushInterval.
func NewTelemetryRecorder(db *DB, clock timeutil.Clock, buffer int, flushInterval time.Duration) *TelemetryRecorder {
	if buffer <= 0 {
		buffer = DefaultRecorderBuffer
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &TelemetryRecorder{
		db:            db,
		clock:         clock,
		flushInterval: flushInterval,
		records:       make(chan record, buffer),
	}
}

func (r *TelemetryRecorder) enqueue(rec record) {
	select {
	case r.records <- rec:
	default:
		r.dropped.Add(1)
	}
}

func (r *TelemetryRecorder) RecordTick(t vehicle.TickRecord) {
	row := TickFromRecord(t)
	r.enqueue(record{tick: &row})
}

func (r *TelemetryRecorder) RecordTransition(t vehicle.TransitionRecord) {
	row := TransitionFromRecord(t)
	r.enqueue(record{transition: &row})
}

// Dropped returns how many records were discarded because the queue was full.
func (r *TelemetryRecorder) Dropped() int64 { return r.dropped.Load() }

// Written returns how many records have been committed.
func (r *TelemetryRecorder) Written() int64 { return r.written.Load() }

// Run writes queued records until ctx is done, then drains the queue with a
// final flush. It always returns nil; write errors are logged.
func (r *TelemetryRecorder) Run(ctx context.Context) error {
	ticker := r.clock.NewTicker(r.flushInterval)
	defer ticker.Stop()

	var (
		ticks       []Tick
		transitions []Transition
	)
	add := func(rec record) {
		if rec.tick != nil {
			ticks = append(ticks, *rec.tick)
		}
		if rec.transition != nil {
			transitions = append(transitions, *rec.transition)
		}
	}
	flush := func(ctx context.Context) {
		n := int64(len(ticks) + len(transitions))
		if n == 0 {
			return
		}
		if err := r.db.InsertTelemetry(ctx, ticks, transitions); err != nil {
			monitoring.Logf("telemetry: dropping %d records: %v", n, err)
		} else {
			r.written.Add(n)
		}
		ticks = ticks[:0]
		transitions = transitions[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rec := <-r.records:
					add(rec)
				default:
					flush(context.Background())
					return nil
				}
			}
		case rec := <-r.records:
			add(rec)
			if len(ticks)+len(transitions) >= maxBatch {
				flush(ctx)
			}
		case <-ticker.C():
			flush(ctx)
		}
	}
}
