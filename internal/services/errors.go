package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap formats "<marker>: <stage>: <operation>: <message>: <err>" and keeps
// both marker and err reachable through errors.Is. A nil marker means
// ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorHint maps a classified error to the operator hint attached to failure logs.
func ErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "check tunecache config and external tool installation"
	case errors.Is(err, ErrNotFound):
		return "the requested content could not be found upstream"
	case errors.Is(err, ErrTimeout):
		return "external tool timed out; retry or raise the configured timeout"
	case errors.Is(err, ErrValidation):
		return "the request or tool output was malformed"
	case errors.Is(err, ErrExternalTool):
		return "inspect the tool output in error_detail; the next request retries"
	default:
		return "transient failure; the next request retries"
	}
}

func buildDetail(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return "service failure"
	}
	return strings.Join(kept, ": ")
}
