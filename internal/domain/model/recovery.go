package model

import (
	"encoding/json"
	"time"
)

// RecoveryReason explains why a reconciliation was deferred.
type RecoveryReason string

const (
	RecoveryReasonWriteFailed  RecoveryReason = "write_failed"
	RecoveryReasonVerifyFailed RecoveryReason = "verify_failed"
)

// RecoveryStatus tracks a job through the queue.
type RecoveryStatus string

const (
	RecoveryStatusPending   RecoveryStatus = "pending"
	RecoveryStatusResolved  RecoveryStatus = "resolved"
	RecoveryStatusExhausted RecoveryStatus = "exhausted"
)

// Valid reports whether status is a known job status.
func (s RecoveryStatus) Valid() bool {
	switch s {
	case RecoveryStatusPending, RecoveryStatusResolved, RecoveryStatusExhausted:
		return true
	}
	return false
}

// RecoveryJob is a durable request to redrive a payment settlement.
type RecoveryJob struct {
	ID            string
	OrderID       string
	Payload       json.RawMessage
	Reason        RecoveryReason
	Status        RecoveryStatus
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	LockedUntil   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// DrainSummary counts what one drain pass did.
type DrainSummary struct {
	Claimed     int `json:"claimed"`
	Resolved    int `json:"resolved"`
	Rescheduled int `json:"rescheduled"`
	Exhausted   int `json:"exhausted"`
	Errors      int `json:"errors"`
}
