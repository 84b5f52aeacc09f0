package commands

import (
	"context"
	"time"

	command "github.com/goliatone/go-command"

	"github.com/simonmcc/md2quip/internal/logging"
	"github.com/simonmcc/md2quip/internal/quip"
	"github.com/simonmcc/md2quip/pkg/interfaces"
)

// TelemetryStatus is the outcome category of a command run.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo describes a finished command run.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// Telemetry is invoked once after every command run.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs the outcome and duration of each run. The handler's
// field-scoped logger wins over logger when present.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	if logger == nil {
		logger = logging.NoOp()
	}
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := info.Logger
		if entry == nil {
			entry = logging.WithFields(logger, info.Fields)
		}
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("command.execute.success", args...)
		case TelemetryStatusContextError:
			entry.Warn("command.execute.context_error", append(args, "error", info.Error)...)
		default:
			entry.Error("command.execute.failed", append(args, errorArgs(info.Error)...)...)
		}
	}
}

// errorArgs adds the text code and store status carried by err.
func errorArgs(err error) []any {
	args := []any{"error", err}
	if code := quip.ErrorCode(err); code != "" {
		args = append(args, "error_code", code)
	}
	if status := quip.StatusCode(err); status != 0 {
		args = append(args, "status_code", status)
	}
	return args
}
