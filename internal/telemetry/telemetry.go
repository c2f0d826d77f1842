// Package telemetry appends structured JSONL events describing session turns.
//
// Emission is gated by BOTSH_OBSERVE_JSON=1. Events never carry raw message
// text; callers pass sizes from the metrics package instead.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var encoderConfig = zapcore.EncoderConfig{
	MessageKey: "event",
	TimeKey:    "time",
	EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339Nano))
	},
	LineEnding: zapcore.DefaultLineEnding,
}

// EventsPath returns the JSONL file events are appended to.
func EventsPath() string {
	return filepath.Join(ArtifactsDir(), "events.jsonl")
}

// Emit writes a single JSON line named name to EventsPath when observation is on.
// The line carries "event", "time" (RFC3339Nano, UTC) and the given fields.
// Failures are reported on stderr and never returned.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	dir := ArtifactsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", dir, err)
		return
	}

	path := EventsPath()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(f), zapcore.DebugLevel)
	logger := zap.New(core, zap.ErrorOutput(zapcore.AddSync(os.Stderr)))
	logger.Info(name, toFields(fields)...)
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", path, err)
	}
}

// toFields converts fields in key order so lines are stable across runs.
func toFields(fields map[string]any) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
