package reservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

// fakeBlockingSource returns a fixed reservation set regardless of the
// requested window, matching the contract that sources may over-fetch.
type fakeBlockingSource struct {
	reservations []models.Reservation
}

func (f *fakeBlockingSource) ListBlockingByTable(ctx context.Context, tableID string, from, to time.Time) ([]models.Reservation, error) {
	return f.reservations, nil
}

func (f *fakeBlockingSource) ListBlockingByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error) {
	return f.reservations, nil
}

func makeReservation(id, number, status string, start time.Time, durationMin, party int) models.Reservation {
	return models.Reservation{
		ID:           id,
		Number:       number,
		RestaurantID: "rest-1",
		CustomerName: "Alice",
		Status:       status,
		StartTime:    start,
		DurationMin:  durationMin,
		PartySize:    party,
	}
}

func TestCheckTable_RejectsOverlap(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 4),
	}}
	resolver := reservation.NewResolver(source)

	// A window starting halfway through the existing one collides.
	err := resolver.CheckTable(context.Background(), "table-1", base.Add(time.Hour), 120, "")
	require.Error(t, err)

	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "RES-20260901-0001", conflict.Number)
	assert.Equal(t, "Alice", conflict.CustomerName)
}

func TestCheckTable_OverlapIsSymmetric(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 4),
	}}
	resolver := reservation.NewResolver(source)

	// Starting earlier and running into the existing window also collides.
	err := resolver.CheckTable(context.Background(), "table-1", base.Add(-time.Hour), 120, "")
	require.Error(t, err)

	// A window fully contained inside the existing one collides too.
	err = resolver.CheckTable(context.Background(), "table-1", base.Add(30*time.Minute), 60, "")
	require.Error(t, err)
}

func TestCheckTable_BackToBackWindowsDoNotCollide(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 4),
	}}
	resolver := reservation.NewResolver(source)

	// [19:00, 21:00) then [21:00, 23:00): the boundary instant belongs to
	// the later reservation only.
	err := resolver.CheckTable(context.Background(), "table-1", base.Add(2*time.Hour), 120, "")
	assert.NoError(t, err)

	// And the slot just before the existing one is free as well.
	err = resolver.CheckTable(context.Background(), "table-1", base.Add(-2*time.Hour), 120, "")
	assert.NoError(t, err)
}

func TestCheckTable_PendingDoesNotBlock(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusPending, base, 120, 4),
		makeReservation("r2", "RES-20260901-0002", models.StatusCancelled, base, 120, 4),
	}}
	resolver := reservation.NewResolver(source)

	err := resolver.CheckTable(context.Background(), "table-1", base, 120, "")
	assert.NoError(t, err, "pending and terminal reservations must not block the table")
}

func TestCheckTable_ExcludeSkipsSelf(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 4),
	}}
	resolver := reservation.NewResolver(source)

	// Re-validating r1 against its own table slot must not self-collide.
	err := resolver.CheckTable(context.Background(), "table-1", base.Add(30*time.Minute), 120, "r1")
	assert.NoError(t, err)
}

func TestCheckCapacity_SumsOverlappingParties(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 20),
		makeReservation("r2", "RES-20260901-0002", models.StatusSeated, base.Add(time.Hour), 120, 20),
		// Outside the proposed window, must not count.
		makeReservation("r3", "RES-20260901-0003", models.StatusConfirmed, base.Add(5*time.Hour), 120, 30),
	}}
	resolver := reservation.NewResolver(source)

	// 20 + 20 seated guests; a party of 11 overflows a 50-seat room.
	err := resolver.CheckCapacity(context.Background(), "rest-1", base, 180, 11, 50, "")
	require.Error(t, err)

	var conflict *reservation.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 51, conflict.RequestedSeats)
	assert.Equal(t, 50, conflict.Capacity)

	// A party of 10 exactly fills the room and is accepted.
	err = resolver.CheckCapacity(context.Background(), "rest-1", base, 180, 10, 50, "")
	assert.NoError(t, err)
}

func TestCheckCapacity_PendingDoesNotCount(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusPending, base, 120, 45),
	}}
	resolver := reservation.NewResolver(source)

	err := resolver.CheckCapacity(context.Background(), "rest-1", base, 120, 10, 50, "")
	assert.NoError(t, err, "pending reservations must not consume capacity")
}

func TestCheckCapacity_ExcludeSkipsSelf(t *testing.T) {
	base := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeBlockingSource{reservations: []models.Reservation{
		makeReservation("r1", "RES-20260901-0001", models.StatusConfirmed, base, 120, 40),
	}}
	resolver := reservation.NewResolver(source)

	// Growing r1 from 40 to 48 guests re-validates without double counting.
	err := resolver.CheckCapacity(context.Background(), "rest-1", base, 120, 48, 50, "r1")
	assert.NoError(t, err)
}
