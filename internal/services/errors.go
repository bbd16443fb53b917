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
	ErrStoreIO       = errors.New("store i/o error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above; nil defaults to ErrExternalTool.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ErrorKind maps an error to the short classification logged alongside job
// failures.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStoreIO):
		return "store_io"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unclassified"
	}
}

// Details returns the classification of err and its message with the leading
// marker text removed, suitable for storing on a failed job record.
func Details(err error) (kind, message string) {
	if err == nil {
		return "", ""
	}
	message = err.Error()
	for _, marker := range markers {
		if errors.Is(err, marker) {
			message = strings.TrimPrefix(message, marker.Error()+": ")
			break
		}
	}
	return ErrorKind(err), message
}

var markers = []error{ErrValidation, ErrConfiguration, ErrNotFound, ErrStoreIO, ErrExternalTool}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
