package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const numberGenerationRetries = 5

// NumberSource provides the two store queries number generation needs: how
// many reservations a restaurant already has on a given day (to seed the
// sequence) and whether a candidate number is already taken (the
// authoritative guard).
type NumberSource interface {
	CountByRestaurantAndDay(ctx context.Context, restaurantID string, day time.Time) (int, error)
	NumberExists(ctx context.Context, number string) (bool, error)
}

// GenerateNumber produces a RES-YYYYMMDD-NNNN reservation number. The daily
// count only seeds the sequence; uniqueness is re-checked and the sequence
// bumped on collision. After the bounded retries it falls back to a
// randomized suffix instead of failing the booking.
func GenerateNumber(ctx context.Context, store NumberSource, restaurantID string, day time.Time) (string, error) {
	datePart := day.Format("20060102")

	count, err := store.CountByRestaurantAndDay(ctx, restaurantID, day)
	if err != nil {
		return "", err
	}

	seq := count + 1
	for attempt := 0; attempt < numberGenerationRetries; attempt++ {
		candidate := fmt.Sprintf("RES-%s-%04d", datePart, seq+attempt)
		exists, err := store.NumberExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}

	// Collisions exhausted the sequential retries; use a random suffix.
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("RES-%s-%s", datePart, suffix), nil
}
