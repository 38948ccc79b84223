package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrRecordNotFound is returned by a RecordStore when no record exists for a commit.
var ErrRecordNotFound = errors.New("test record not found")

// MissingFieldError represents a required input field that was not provided.
type MissingFieldError struct {
	// Field is the name of the missing field.
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing reference: %s is required", e.Field)
}

// InvalidFieldValueError represents an input field holding a value outside
// the set it accepts.
type InvalidFieldValueError struct {
	Field    string
	Value    string
	Expected []string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf(
		"wrong value: %s %q not recognized, expected one of [%s]",
		e.Field,
		e.Value,
		strings.Join(e.Expected, ", "),
	)
}

// TimeoutExceededError is reported when a test run is killed for exceeding
// its deadline.
type TimeoutExceededError struct {
	SHA     string
	Timeout time.Duration
}

func (e *TimeoutExceededError) Error() string {
	return fmt.Sprintf("test run for %s exceeded timeout of %s", e.SHA, e.Timeout)
}
