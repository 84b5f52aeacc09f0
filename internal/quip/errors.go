package quip

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeAccessDenied  = "QUIP_ACCESS_DENIED"
	TextCodeRemoteFailure = "QUIP_REMOTE_FAILURE"
)

// AccessDenied reports a permission failure on a single resource.
func AccessDenied(resource, id string, status int, description string) *goerrors.Error {
	if status == 0 {
		status = http.StatusForbidden
	}
	msg := fmt.Sprintf("access denied to %s %s", resource, id)
	if description != "" {
		msg += ": " + description
	}
	return goerrors.New(msg, goerrors.CategoryAuthz).
		WithCode(status).
		WithTextCode(TextCodeAccessDenied).
		WithMetadata(map[string]any{"resource": resource, "id": id})
}

// RemoteFailure reports any other store or transport failure. status is zero
// when no response was received.
func RemoteFailure(resource, id string, status int, cause error, description string) *goerrors.Error {
	msg := fmt.Sprintf("%s %s request failed", resource, id)
	if status != 0 {
		msg = fmt.Sprintf("%s %s request failed with status %d", resource, id, status)
	}
	if description != "" {
		msg += ": " + description
	}

	var err *goerrors.Error
	if cause != nil {
		err = goerrors.Wrap(cause, goerrors.CategoryExternal, msg)
	} else {
		err = goerrors.New(msg, goerrors.CategoryExternal)
	}
	if status != 0 {
		err = err.WithCode(status)
	}
	return err.
		WithTextCode(TextCodeRemoteFailure).
		WithMetadata(map[string]any{"resource": resource, "id": id})
}

// IsAccessDenied reports whether err is an access-denied failure.
func IsAccessDenied(err error) bool {
	return hasTextCode(err, TextCodeAccessDenied)
}

// IsRemoteFailure reports whether err is a generic store failure.
func IsRemoteFailure(err error) bool {
	return hasTextCode(err, TextCodeRemoteFailure)
}

// StatusCode returns the first HTTP-like status found in the error chain, or
// zero.
func StatusCode(err error) int {
	for e := nextError(err); e != nil; e = nextError(e.Source) {
		if e.Code != 0 {
			return e.Code
		}
	}
	return 0
}

// ErrorCode returns the first text code found in the error chain.
func ErrorCode(err error) string {
	for e := nextError(err); e != nil; e = nextError(e.Source) {
		if e.TextCode != "" {
			return e.TextCode
		}
	}
	return ""
}

func hasTextCode(err error, code string) bool {
	for e := nextError(err); e != nil; e = nextError(e.Source) {
		if e.TextCode == code {
			return true
		}
	}
	return false
}

func nextError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e
	}
	return nil
}
