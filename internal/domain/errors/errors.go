package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("concurrent modification")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMalformedPayload   = errors.New("malformed payload")
)

// ValidationError rejects checkout input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// GatewayError reports a failed or malformed payment request.
type GatewayError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	msg := "payment gateway error"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error { return e.Err }

// UnmatchedCallbackError means no order could be correlated with a webhook.
type UnmatchedCallbackError struct {
	MerchantRequestID string
	CheckoutRequestID string
	AccountReference  string
	PhoneNumber       string
	Reason            string
}

func (e *UnmatchedCallbackError) Error() string {
	msg := fmt.Sprintf("unmatched payment callback (merchant=%q checkout=%q reference=%q phone=%q)",
		e.MerchantRequestID, e.CheckoutRequestID, e.AccountReference, e.PhoneNumber)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ReconciliationWriteError is raised when a matched payment could not be persisted or verified.
type ReconciliationWriteError struct {
	OrderID string
	Reason  string
	Err     error
}

func (e *ReconciliationWriteError) Error() string {
	msg := fmt.Sprintf("reconcile order %s: %s", e.OrderID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReconciliationWriteError) Unwrap() error { return e.Err }

// RecoveryExhaustedError is surfaced once a recovery job runs out of attempts.
type RecoveryExhaustedError struct {
	JobID     string
	OrderID   string
	Attempts  int
	LastError string
}

func (e *RecoveryExhaustedError) Error() string {
	return fmt.Sprintf("recovery job %s for order %s exhausted after %d attempts: %s",
		e.JobID, e.OrderID, e.Attempts, e.LastError)
}
