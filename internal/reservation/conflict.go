package reservation

import (
	"context"
	"time"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
)

// BlockingSource supplies the reservations that count against tables and
// capacity: active (not soft-deleted) rows in a blocking status whose window
// may overlap [from, to). Implementations may over-fetch; the resolver
// re-tests every pair.
type BlockingSource interface {
	ListBlockingByTable(ctx context.Context, tableID string, from, to time.Time) ([]models.Reservation, error)
	ListBlockingByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error)
}

// Resolver decides whether a proposed table/time/party-size combination can
// be accepted against existing reservations. Reads are best-effort
// consistent; the caller may hold a slot lock to narrow the race window.
type Resolver struct {
	store BlockingSource
}

func NewResolver(store BlockingSource) *Resolver {
	return &Resolver{store: store}
}

// CheckTable rejects the proposed window if any confirmed or seated
// reservation on the same table overlaps it. The colliding reservation is
// returned inside the ConflictError. excludeID skips one reservation so an
// existing record can be re-validated against all others.
func (c *Resolver) CheckTable(ctx context.Context, tableID string, start time.Time, durationMin int, excludeID string) error {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	existing, err := c.store.ListBlockingByTable(ctx, tableID, start, end)
	if err != nil {
		return err
	}
	for i := range existing {
		other := &existing[i]
		if other.ID == excludeID {
			continue
		}
		if !models.IsBlockingStatus(other.Status) || other.IsDeleted {
			continue
		}
		if other.Overlaps(start, end) {
			return &ConflictError{
				Reason:       "table already booked",
				Number:       other.Number,
				CustomerName: other.CustomerName,
				Start:        other.StartTime,
				End:          other.EndTime(),
			}
		}
	}
	return nil
}

// CheckCapacity sums the party sizes of all confirmed/seated reservations
// overlapping the proposed window and rejects when adding partySize would
// exceed the restaurant's seating capacity.
func (c *Resolver) CheckCapacity(ctx context.Context, restaurantID string, start time.Time, durationMin, partySize, capacity int, excludeID string) error {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	existing, err := c.store.ListBlockingByRestaurant(ctx, restaurantID, start, end)
	if err != nil {
		return err
	}
	seated := 0
	for i := range existing {
		other := &existing[i]
		if other.ID == excludeID || !models.IsBlockingStatus(other.Status) || other.IsDeleted {
			continue
		}
		if other.Overlaps(start, end) {
			seated += other.PartySize
		}
	}
	if seated+partySize > capacity {
		return &ConflictError{
			Reason:         "restaurant capacity exceeded",
			RequestedSeats: seated + partySize,
			Capacity:       capacity,
		}
	}
	return nil
}
