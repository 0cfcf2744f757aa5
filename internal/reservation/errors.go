package reservation

import (
	"fmt"
	"time"
)

// ValidationError reports malformed or out-of-bounds input. Nothing was
// persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NotFoundError reports an unresolved reservation, restaurant, floor plan
// or table reference.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports an interval overlap or an exceeded capacity. It
// carries the colliding reservation so callers can surface it.
type ConflictError struct {
	Reason         string
	Number         string
	CustomerName   string
	Start          time.Time
	End            time.Time
	RequestedSeats int
	Capacity       int
}

func (e *ConflictError) Error() string {
	if e.Number != "" {
		return fmt.Sprintf("%s: conflicts with reservation %s (%s, %s - %s)",
			e.Reason, e.Number, e.CustomerName,
			e.Start.Format("15:04"), e.End.Format("15:04"))
	}
	return fmt.Sprintf("%s: %d seats requested, capacity %d", e.Reason, e.RequestedSeats, e.Capacity)
}

// TransitionError reports a disallowed status change or an unmet
// transition precondition. The record is left unmodified.
type TransitionError struct {
	From    string
	To      string
	Message string
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cannot transition from %s to %s: %s", e.From, e.To, e.Message)
	}
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}
