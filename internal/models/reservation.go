package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reservation statuses. Transitions between them are governed by the
// state machine in internal/reservation; nothing else should mutate Status.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusSeated    = "seated"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// IsTerminalStatus reports whether a reservation can no longer move.
func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled || status == StatusNoShow
}

// IsBlockingStatus reports whether a reservation counts against tables and
// restaurant capacity. Pending reservations deliberately do not block.
func IsBlockingStatus(status string) bool {
	return status == StatusConfirmed || status == StatusSeated
}

type Reservation struct {
	bun.BaseModel `bun:"table:reservations"`

	ID           string `bun:"id,pk" json:"id"`
	Number       string `bun:"number,unique,notnull" json:"number"`
	RestaurantID string `bun:"restaurant_id,notnull" json:"restaurant_id"`

	// Customer snapshot, captured at creation. Not a live reference.
	CustomerName   string `bun:"customer_name,notnull" json:"customer_name"`
	CustomerEmail  string `bun:"customer_email,notnull" json:"customer_email"`
	CustomerPhone  string `bun:"customer_phone" json:"customer_phone"`
	SpecialRequest string `bun:"special_request" json:"special_request,omitempty"`

	StartTime   time.Time `bun:"start_time,notnull" json:"start_time"`
	DurationMin int       `bun:"duration_min,notnull" json:"duration_min"`
	PartySize   int       `bun:"party_size,notnull" json:"party_size"`

	Status string `bun:"status,notnull" json:"status"`

	// Optional table assignment. TableNumber is a denormalized snapshot so
	// the reservation stays readable even if the floor plan changes later.
	FloorPlanID *string    `bun:"floor_plan_id" json:"floor_plan_id,omitempty"`
	TableID     *string    `bun:"table_id" json:"table_id,omitempty"`
	TableNumber *string    `bun:"table_number" json:"table_number,omitempty"`
	AssignedAt  *time.Time `bun:"assigned_at" json:"assigned_at,omitempty"`
	AssignedBy  *string    `bun:"assigned_by" json:"assigned_by,omitempty"`

	// Advisory seating preferences, never mechanically enforced.
	SeatingArea string `bun:"seating_area" json:"seating_area,omitempty"`
	TableShape  string `bun:"table_shape" json:"table_shape,omitempty"`
	Accessible  bool   `bun:"accessible" json:"accessible"`
	Quiet       bool   `bun:"quiet" json:"quiet"`

	ConfirmationSent bool `bun:"confirmation_sent" json:"confirmation_sent"`
	ReminderSent     bool `bun:"reminder_sent" json:"reminder_sent"`

	CreatedBy string `bun:"created_by,notnull" json:"created_by"`

	ConfirmedAt *time.Time `bun:"confirmed_at" json:"confirmed_at,omitempty"`
	SeatedAt    *time.Time `bun:"seated_at" json:"seated_at,omitempty"`
	CompletedAt *time.Time `bun:"completed_at" json:"completed_at,omitempty"`
	// CancelledAt records when the slot was vacated; no_show reuses it.
	CancelledAt *time.Time `bun:"cancelled_at" json:"cancelled_at,omitempty"`

	IsDeleted bool      `bun:"is_deleted" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// EndTime is the derived end of the reserved window: start + duration.
func (r *Reservation) EndTime() time.Time {
	return r.StartTime.Add(time.Duration(r.DurationMin) * time.Minute)
}

// Overlaps reports whether the half-open windows [start, end) of the two
// reservations intersect.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && start.Before(r.EndTime())
}

// ReservationEvent is one append-only lifecycle history entry. Rows are
// insert-only; there is no update or delete path.
type ReservationEvent struct {
	bun.BaseModel `bun:"table:reservation_events"`

	ID            string    `bun:"id,pk" json:"id"`
	ReservationID string    `bun:"reservation_id,notnull" json:"reservation_id"`
	Action        string    `bun:"action,notnull" json:"action"`
	Actor         string    `bun:"actor,notnull" json:"actor"`
	Detail        string    `bun:"detail" json:"detail,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Notification types recorded in the delivery ledger.
const (
	NotificationConfirmation = "confirmation"
	NotificationReminder     = "reminder"
	NotificationCancellation = "cancellation"
)

// NotificationAttempt is one append-only delivery ledger entry. Every send,
// success or failure, produces exactly one row.
type NotificationAttempt struct {
	bun.BaseModel `bun:"table:notification_attempts"`

	ID                string    `bun:"id,pk" json:"id"`
	ReservationID     string    `bun:"reservation_id,notnull" json:"reservation_id"`
	Type              string    `bun:"type,notnull" json:"type"`
	Success           bool      `bun:"success" json:"success"`
	ProviderMessageID string    `bun:"provider_message_id" json:"provider_message_id,omitempty"`
	Error             string    `bun:"error" json:"error,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
}
