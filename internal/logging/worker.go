package logging

import (
	"context"
	"log/slog"
	"time"
)

const (
	sinkChanSize  = 1000
	sinkDrainTime = 10 * time.Second
)

// Worker is a background task run until context cancellation.
type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

// sinkWorker delivers records to one sink from a buffered channel.
// Enqueue never blocks; records are dropped when the channel is full
// (back-pressure on a slow sink must not stall request handling).
type sinkWorker struct {
	sink   Sink
	ch     chan Record
	onDrop func(sink string)
}

func newSinkWorker(s Sink, onDrop func(string)) *sinkWorker {
	return &sinkWorker{sink: s, ch: make(chan Record, sinkChanSize), onDrop: onDrop}
}

// Name returns the worker identifier.
func (w *sinkWorker) Name() string { return "log_sink_" + w.sink.Name() }

// enqueue hands a record to the worker. It never blocks; drops on full channel.
func (w *sinkWorker) enqueue(rec Record) {
	select {
	case w.ch <- rec:
	default:
		if w.onDrop != nil {
			w.onDrop(w.sink.Name())
		}
		slog.Warn("log record dropped, sink channel full", "sink", w.sink.Name())
	}
}

// Run delivers records until ctx is cancelled, then drains the channel.
func (w *sinkWorker) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-w.ch:
			w.emit(rec)
		case <-ctx.Done():
			w.drain(sinkDrainTime)
			return nil
		}
	}
}

func (w *sinkWorker) emit(rec Record) {
	if err := w.sink.Emit(rec); err != nil {
		slog.Warn("log sink emit failed", "sink", w.sink.Name(), "error", err.Error())
	}
}

// drain delivers the records still buffered when shutdown begins. It returns
// once the channel is empty or the limit elapses, so a slow sink cannot hold
// shutdown indefinitely.
func (w *sinkWorker) drain(limit time.Duration) {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	for {
		select {
		case <-deadline.C:
			return
		default:
		}
		select {
		case rec := <-w.ch:
			w.emit(rec)
		default:
			return
		}
	}
}
