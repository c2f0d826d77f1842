package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/petasbytes/botsh/internal/metrics"
	"github.com/petasbytes/botsh/internal/provider"
	"github.com/petasbytes/botsh/internal/telemetry"
	"github.com/petasbytes/botsh/memory"
)

type Runner struct {
	Completer provider.Completer
	Model     string
	// Out receives fragments as they arrive, then a trailing newline.
	Out io.Writer
	Log *zap.Logger
}

func New(c provider.Completer, model string, out io.Writer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Completer: c, Model: model, Out: out, Log: log}
}

// RunTurn submits conv and streams the reply to Out. On failure nothing
// already printed is retracted, but the returned reply is empty.
func (r *Runner) RunTurn(ctx context.Context, conv []memory.Message) (string, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	start := time.Now()

	stream := r.Completer.Stream(ctx, provider.Request{Model: r.Model, Messages: conv})
	defer stream.Close()

	var (
		reply     strings.Builder
		fragments int
	)
	for stream.Next() {
		f := stream.Fragment()
		fmt.Fprint(r.Out, f)
		reply.WriteString(f)
		fragments++
	}
	if fragments > 0 {
		fmt.Fprintln(r.Out)
	}

	var turnErr *TurnError
	switch err := stream.Err(); {
	case err != nil:
		turnErr = classify(err, ctx.Err() != nil)
	case reply.Len() == 0:
		turnErr = &TurnError{Kind: KindEmpty, Err: ErrEmptyReply}
	}

	text := reply.String()
	fields := map[string]any{
		"turn_id":     turnID,
		"model":       r.Model,
		"messages":    len(conv),
		"fragments":   fragments,
		"duration_ms": time.Since(start).Milliseconds(),
		"reply":       metrics.Measure(text).Fields(),
		"error":       nil,
	}
	if turnErr != nil {
		turnErr.Fragments = fragments
		fields["error"] = string(turnErr.Kind)
	}
	telemetry.Emit("chat_turn", fields)

	if turnErr != nil {
		r.Log.Debug("chat turn failed",
			zap.String("turn_id", turnID),
			zap.String("kind", string(turnErr.Kind)),
			zap.Error(turnErr.Err))
		return "", turnErr
	}
	r.Log.Debug("chat turn done",
		zap.String("turn_id", turnID),
		zap.Int("fragments", fragments),
		zap.Int("reply_bytes", len(text)))
	return text, nil
}
