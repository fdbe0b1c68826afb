package services

import (
	"errors"
	"fmt"
)

var (
	ErrAutomationNotFound = errors.New("automation not found")
	ErrStepNotFound       = errors.New("automation step not found")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError rejects a bad write synchronously, before anything is
// persisted or enqueued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TemplateError indicates a template that cannot be compiled or rendered.
type TemplateError struct {
	Detail string
}

func (e *TemplateError) Error() string {
	if e == nil {
		return ""
	}
	return "template error: " + e.Detail
}

// TransportError wraps a mail transport failure so the queue retry policy
// can distinguish it from data problems.
type TransportError struct {
	Recipient string
	Err       error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("mail transport failed for %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
