// Package logging implements the structured gateway logger: level filtering,
// secret masking, console output, and asynchronous fan-out to log sinks.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eugener/radagast/internal/config"
)

// InstallConsole installs the process slog handler backing console output.
// The handler passes DEBUG through; Logger.Log is the only level gate, so
// toggling verbose logging at runtime takes effect without reconfiguration.
func InstallConsole(w io.Writer) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
}

// Level is the severity of a log record.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Record is one structured log entry as shipped to sinks.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Sink receives log records. Implementations must tolerate being called
// from a single worker goroutine.
type Sink interface {
	Name() string
	Emit(Record) error
}

// Options resolve runtime-settable logging state per record.
// Both funcs must be safe for concurrent use.
type Options struct {
	// Verbose reports whether DEBUG records pass the level filter.
	Verbose func() bool
	// SinkConfig returns the current sink enable flags.
	SinkConfig func() config.LoggingConfig
	// OnDrop, if set, is called with the sink name whenever a record is
	// dropped because the sink queue was full.
	OnDrop func(sink string)
}

// Logger emits masked, leveled records to the process console and fans them
// out to enabled sinks without blocking the request path.
type Logger struct {
	opts    Options
	workers map[string]*sinkWorker
}

// New creates a Logger fanning out to the given sinks. Workers are started
// by Run; records enqueued before Run are buffered up to the worker depth.
func New(opts Options, sinks ...Sink) *Logger {
	l := &Logger{opts: opts, workers: make(map[string]*sinkWorker, len(sinks))}
	for _, s := range sinks {
		l.workers[s.Name()] = newSinkWorker(s, opts.OnDrop)
	}
	return l
}

// Log emits one record. DEBUG records are dropped unless verbose logging is
// enabled. Metadata is cloned and any key containing "apikey"
// (case-insensitive) has its value masked before the record leaves the core.
func (l *Logger) Log(level Level, component, message string, metadata map[string]any) {
	if level == LevelDebug && (l.opts.Verbose == nil || !l.opts.Verbose()) {
		return
	}

	rec := Record{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Component: component,
		Message:   message,
		Metadata:  maskSecrets(metadata),
	}

	// Console always.
	attrs := make([]slog.Attr, 0, len(rec.Metadata)+1)
	attrs = append(attrs, slog.String("component", component))
	for k, v := range rec.Metadata {
		attrs = append(attrs, slog.Any(k, v))
	}
	slog.LogAttrs(context.Background(), level.slogLevel(), message, attrs...)

	// Fire-and-forget fan-out to enabled sinks.
	if l.opts.SinkConfig == nil {
		return
	}
	cfg := l.opts.SinkConfig()
	for _, name := range enabledSinks(cfg) {
		if w, ok := l.workers[name]; ok {
			w.enqueue(rec)
		}
	}
}

// Debug emits a DEBUG record.
func (l *Logger) Debug(component, message string, metadata map[string]any) {
	l.Log(LevelDebug, component, message, metadata)
}

// Info emits an INFO record.
func (l *Logger) Info(component, message string, metadata map[string]any) {
	l.Log(LevelInfo, component, message, metadata)
}

// Warn emits a WARN record.
func (l *Logger) Warn(component, message string, metadata map[string]any) {
	l.Log(LevelWarn, component, message, metadata)
}

// Error emits an ERROR record.
func (l *Logger) Error(component, message string, metadata map[string]any) {
	l.Log(LevelError, component, message, metadata)
}

// Workers returns the sink workers for the caller to run under its errgroup.
func (l *Logger) Workers() []Worker {
	out := make([]Worker, 0, len(l.workers))
	for _, w := range l.workers {
		out = append(out, w)
	}
	return out
}

const maskedValue = "********"

// maskSecrets clones metadata, replacing values whose key contains "apikey".
func maskSecrets(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if strings.Contains(strings.ToLower(k), "apikey") {
			out[k] = maskedValue
			continue
		}
		out[k] = v
	}
	return out
}

func enabledSinks(cfg config.LoggingConfig) []string {
	var names []string
	if cfg.SplunkEnabled {
		names = append(names, SinkSplunk)
	}
	if cfg.DatadogEnabled {
		names = append(names, SinkDatadog)
	}
	if cfg.ElasticsearchEnabled {
		names = append(names, SinkElasticsearch)
	}
	return names
}
