package reservation_api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation/reservation_api"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/scheduler"
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

func jobRouter(h *reservation_api.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/jobs/{name}/run", h.RunJob)
	return r
}

func TestRunJob_UnknownNameIsBadRequest(t *testing.T) {
	h := reservation_api.NewHandler(nil, nil, nil, scheduler.New(nil, nil, nil, logger.NewLogger()))
	router := jobRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/defrag/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunJob_JobFailureIsServerError(t *testing.T) {
	notif := notification.NewService(failingStore{}, nil, logger.NewLogger(), 0, 0)
	h := reservation_api.NewHandler(nil, notif, nil, scheduler.New(nil, notif, nil, logger.NewLogger()))
	router := jobRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/daily_reminders/run", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
