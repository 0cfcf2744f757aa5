package models

import "time"

// Creation source channels. Staff-created reservations are auto-confirmed.
const (
	SourceCustomer = "customer"
	SourceStaff    = "staff"
)

type CreateReservationRequest struct {
	RestaurantID   string    `json:"restaurant_id"`
	CustomerName   string    `json:"customer_name"`
	CustomerEmail  string    `json:"customer_email"`
	CustomerPhone  string    `json:"customer_phone"`
	SpecialRequest string    `json:"special_request"`
	StartTime      time.Time `json:"start_time"`
	DurationMin    int       `json:"duration_min"`
	PartySize      int       `json:"party_size"`
	SeatingArea    string    `json:"seating_area"`
	TableShape     string    `json:"table_shape"`
	Accessible     bool      `json:"accessible"`
	Quiet          bool      `json:"quiet"`
	Source         string    `json:"source"`
}

// UpdateReservationRequest carries partial changes; nil fields are left alone.
type UpdateReservationRequest struct {
	CustomerName   *string    `json:"customer_name,omitempty"`
	CustomerEmail  *string    `json:"customer_email,omitempty"`
	CustomerPhone  *string    `json:"customer_phone,omitempty"`
	SpecialRequest *string    `json:"special_request,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	DurationMin    *int       `json:"duration_min,omitempty"`
	PartySize      *int       `json:"party_size,omitempty"`
	SeatingArea    *string    `json:"seating_area,omitempty"`
	TableShape     *string    `json:"table_shape,omitempty"`
	Accessible     *bool      `json:"accessible,omitempty"`
	Quiet          *bool      `json:"quiet,omitempty"`
}

type ChangeStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type AssignTableRequest struct {
	FloorPlanID string `json:"floor_plan_id"`
	TableID     string `json:"table_id"`
}

// ReservationFilter narrows list queries. Zero values mean "no filter".
type ReservationFilter struct {
	RestaurantID string
	Status       string
	TableID      string
	From         time.Time
	To           time.Time
	Page         int
	Limit        int
}

type ReservationPage struct {
	Items      []Reservation `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// NotificationResult is the structured outcome of a single send. Delivery
// failure is reported here, never as an error from the orchestrator.
type NotificationResult struct {
	ReservationID     string `json:"reservation_id"`
	Type              string `json:"type"`
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	Error             string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch reminder run.
type BatchSummary struct {
	Selected  int                  `json:"selected"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Results   []NotificationResult `json:"results"`
}

// JobSummary is the structured outcome of one scheduler job run.
type JobSummary struct {
	Job       string    `json:"job"`
	RanAt     time.Time `json:"ran_at"`
	Processed int       `json:"processed"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped"`
	Errors    []string  `json:"errors,omitempty"`
}
