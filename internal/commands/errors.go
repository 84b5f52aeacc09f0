package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by errors the Handler categorises itself. Errors that
// already carry a category keep their own code.
const (
	TextCodeInvalidMessage = "SYNC_COMMAND_INVALID"
	TextCodeCanceled       = "SYNC_COMMAND_CANCELED"
	TextCodeTimedOut       = "SYNC_COMMAND_TIMED_OUT"
	TextCodeFailed         = "SYNC_COMMAND_FAILED"
)

// messageError converts a failed message validation, keeping the per-field
// messages of ozzo errors.
func messageError(err error) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.FromOzzoValidation(err, "invalid command message").
		WithTextCode(TextCodeInvalidMessage)
}

// outcome classifies a run. ctxErr is used when the run reported success but
// its context ended underneath it.
func outcome(operation string, err, ctxErr error) (TelemetryStatus, error) {
	if err == nil {
		err = ctxErr
	}
	switch {
	case err == nil:
		return TelemetryStatusSuccess, nil
	case isContextError(err):
		code := TextCodeCanceled
		if errors.Is(err, context.DeadlineExceeded) {
			code = TextCodeTimedOut
		}
		return TelemetryStatusContextError, categorised(operation, err, code, "command interrupted")
	default:
		return TelemetryStatusFailed, categorised(operation, err, TextCodeFailed, "command failed")
	}
}

func categorised(operation string, err error, code, message string) error {
	if goerrors.IsWrapped(err) {
		return err
	}
	wrapped := goerrors.Wrap(err, goerrors.CategoryCommand, message).WithTextCode(code)
	if operation != "" {
		wrapped = wrapped.WithMetadata(map[string]any{"operation": operation})
	}
	return wrapped
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
