package reservation

import (
	"time"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
)

// Effect is a side effect attached to a transition. Effects run after the
// reservation row is persisted and are best-effort: a failed effect is
// logged, never rolled back into the transition.
type Effect string

const (
	EffectSendConfirmation Effect = "send_confirmation"
	EffectSendCancellation Effect = "send_cancellation"
	EffectOccupyTable      Effect = "occupy_table"
	EffectCleanTable       Effect = "clean_table"
	EffectReleaseTable     Effect = "release_table"
)

// Transition is one legal edge of the reservation state machine. The whole
// machine is this slice: legality checks, timestamp slots and side effects
// are all data, so the table can be tested without touching persistence.
type Transition struct {
	From         string
	To           string
	Precondition func(r *models.Reservation) error
	Stamp        func(r *models.Reservation, now time.Time)
	Effects      []Effect
}

func requireAssignedTable(r *models.Reservation) error {
	if r.TableID == nil {
		return &TransitionError{
			From:    r.Status,
			To:      models.StatusSeated,
			Message: "a table must be assigned before seating",
		}
	}
	return nil
}

func stampConfirmed(r *models.Reservation, now time.Time) { r.ConfirmedAt = &now }
func stampSeated(r *models.Reservation, now time.Time)    { r.SeatedAt = &now }
func stampCompleted(r *models.Reservation, now time.Time) { r.CompletedAt = &now }

// stampVacated fills the cancelled slot; no_show shares it because both
// record the moment the slot was given back.
func stampVacated(r *models.Reservation, now time.Time) { r.CancelledAt = &now }

var transitions = []Transition{
	{From: models.StatusPending, To: models.StatusConfirmed, Stamp: stampConfirmed,
		Effects: []Effect{EffectSendConfirmation}},
	{From: models.StatusPending, To: models.StatusCancelled, Stamp: stampVacated,
		Effects: []Effect{EffectSendCancellation, EffectReleaseTable}},
	{From: models.StatusConfirmed, To: models.StatusSeated, Precondition: requireAssignedTable,
		Stamp: stampSeated, Effects: []Effect{EffectOccupyTable}},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Stamp: stampVacated,
		Effects: []Effect{EffectSendCancellation, EffectReleaseTable}},
	{From: models.StatusConfirmed, To: models.StatusNoShow, Stamp: stampVacated,
		Effects: []Effect{EffectSendCancellation, EffectReleaseTable}},
	{From: models.StatusSeated, To: models.StatusCompleted, Stamp: stampCompleted,
		Effects: []Effect{EffectCleanTable}},
	{From: models.StatusSeated, To: models.StatusCancelled, Stamp: stampVacated,
		Effects: []Effect{EffectSendCancellation, EffectReleaseTable}},
}

func findTransition(from, to string) (*Transition, bool) {
	for i := range transitions {
		if transitions[i].From == from && transitions[i].To == to {
			return &transitions[i], true
		}
	}
	return nil, false
}

// CanTransition reports whether (from, to) is a legal edge, ignoring
// preconditions.
func CanTransition(from, to string) bool {
	_, ok := findTransition(from, to)
	return ok
}

// ApplyTransition validates and applies a status change in memory: it checks
// legality and preconditions, stamps the timestamp slot, and sets the new
// status. The caller persists the record and then executes the returned
// transition's effects. On error the reservation is left untouched.
func ApplyTransition(r *models.Reservation, to string, now time.Time) (*Transition, error) {
	t, ok := findTransition(r.Status, to)
	if !ok {
		return nil, &TransitionError{From: r.Status, To: to}
	}
	if t.Precondition != nil {
		if err := t.Precondition(r); err != nil {
			return nil, err
		}
	}
	if t.Stamp != nil {
		t.Stamp(r, now)
	}
	r.Status = to
	r.UpdatedAt = now
	return t, nil
}
