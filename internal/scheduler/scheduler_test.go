package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
)

// failingStore errors on every call, simulating a store outage.
type failingStore struct{}

func (failingStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	return nil, assert.AnError
}

func (failingStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return nil, assert.AnError
}

func (failingStore) AppendNotificationAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	return assert.AnError
}

func (failingStore) ListAttemptsByReservation(ctx context.Context, reservationID string) ([]models.NotificationAttempt, error) {
	return nil, assert.AnError
}

func (failingStore) SetConfirmationSent(ctx context.Context, reservationID string) error {
	return assert.AnError
}

func (failingStore) SetReminderSent(ctx context.Context, reservationID string) error {
	return assert.AnError
}

func (failingStore) ListReminderCandidates(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error) {
	return nil, assert.AnError
}

func TestRunJob_UnknownName(t *testing.T) {
	s := New(nil, nil, nil, logger.NewLogger())

	_, err := s.RunJob(context.Background(), "defrag")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestRunJob_JobFailureIsNotUnknownJob(t *testing.T) {
	notif := notification.NewService(failingStore{}, nil, logger.NewLogger(), 0, 0)
	s := New(nil, notif, nil, logger.NewLogger())

	_, err := s.RunJob(context.Background(), JobDailyReminders)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownJob), "a store failure must not look like a bad job name")
}
