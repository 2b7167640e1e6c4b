package models

import "time"

// RunState is the orchestrator state of one scheduled property.
type RunState string

// Run states.
const (
	StatePending   RunState = "PENDING"
	StateRunning   RunState = "RUNNING"
	StateSucceeded RunState = "SUCCEEDED"
	StateFailed    RunState = "FAILED"
	StateTimedOut  RunState = "TIMED_OUT"
)

// Terminal reports whether no further transition is possible.
func (s RunState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateTimedOut
}

// DeliveryStatus is the callback outcome of one record.
type DeliveryStatus string

// Delivery statuses.
const (
	DeliverySkipped   DeliveryStatus = "skipped"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryUnknown   DeliveryStatus = "unknown"
)

// Outcome is the result of processing one property in a run.
type Outcome struct {
	Record        *TaxRecord     `json:"record,omitempty"`
	Property      Property       `json:"property"`
	State         RunState       `json:"state"`
	Delivery      DeliveryStatus `json:"delivery"`
	DeliveryError string         `json:"delivery_error,omitempty"`
	Command       string         `json:"command,omitempty"`
	Duration      time.Duration  `json:"duration"`
}

// SyncRun aggregates one orchestrator invocation.
type SyncRun struct {
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
	ID          string     `json:"id"`
	CallbackURL string     `json:"callback_url,omitempty"`
	Outcomes    []*Outcome `json:"properties"`
	Attempted   int        `json:"total"`
	Succeeded   int        `json:"successful"`
	DryRun      bool       `json:"dry_run"`
}

// Count returns the number of outcomes in the given state.
func (r *SyncRun) Count(state RunState) int {
	n := 0

	for _, o := range r.Outcomes {
		if o.State == state {
			n++
		}
	}

	return n
}
