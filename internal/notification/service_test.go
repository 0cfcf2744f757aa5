package notification_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/notification"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockStore) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Restaurant), args.Error(1)
}

func (m *MockStore) AppendNotificationAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockStore) ListAttemptsByReservation(ctx context.Context, reservationID string) ([]models.NotificationAttempt, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.NotificationAttempt), args.Error(1)
}

func (m *MockStore) SetConfirmationSent(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockStore) SetReminderSent(ctx context.Context, reservationID string) error {
	args := m.Called(ctx, reservationID)
	return args.Error(0)
}

func (m *MockStore) ListReminderCandidates(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, restaurantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, msg notification.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestService() (*notification.Service, *MockStore, *MockTransport) {
	store := new(MockStore)
	transport := new(MockTransport)
	svc := notification.NewService(store, transport, logger.NewLogger(), 48*time.Hour, 0)
	return svc, store, transport
}

func confirmedReservation(start time.Time) *models.Reservation {
	return &models.Reservation{
		ID:            "res-1",
		Number:        "RES-20260901-0001",
		RestaurantID:  "rest-1",
		CustomerName:  "Alice Martin",
		CustomerEmail: "alice@example.com",
		StartTime:     start,
		DurationMin:   120,
		PartySize:     4,
		Status:        models.StatusConfirmed,
	}
}

func TestSendConfirmation_AttachesQRAndSetsFlag(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)
	store.On("GetRestaurant", mock.Anything, "rest-1").
		Return(&models.Restaurant{ID: "rest-1", Name: "Le Zengest"}, nil)
	transport.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
		return msg.To == "alice@example.com" &&
			msg.Template == models.NotificationConfirmation &&
			len(msg.Attachment) > 0 &&
			msg.AttachmentName == "checkin-RES-20260901-0001.png"
	})).Return("provider-msg-1", nil)
	store.On("AppendNotificationAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationAttempt) bool {
		return a.ReservationID == "res-1" && a.Type == models.NotificationConfirmation && a.Success
	})).Return(nil)
	store.On("SetConfirmationSent", mock.Anything, "res-1").Return(nil)

	result, err := svc.SendConfirmation(context.Background(), "res-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "provider-msg-1", result.ProviderMessageID)

	store.AssertExpectations(t)
	transport.AssertExpectations(t)
}

func TestSendConfirmation_RequiresConfirmedStatus(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	r.Status = models.StatusPending
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)

	_, err := svc.SendConfirmation(context.Background(), "res-1")
	require.Error(t, err)
	var validationErr *reservation.ValidationError
	require.ErrorAs(t, err, &validationErr)
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendConfirmation_DeliveryFailureIsRecordedNotReturned(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)
	store.On("GetRestaurant", mock.Anything, "rest-1").
		Return(&models.Restaurant{ID: "rest-1", Name: "Le Zengest"}, nil)
	transport.On("Send", mock.Anything, mock.Anything).Return("", assert.AnError)
	store.On("AppendNotificationAttempt", mock.Anything, mock.MatchedBy(func(a *models.NotificationAttempt) bool {
		return !a.Success && a.Error != ""
	})).Return(nil)

	result, err := svc.SendConfirmation(context.Background(), "res-1")
	require.NoError(t, err, "delivery failure is a result, not an error")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)

	store.AssertNotCalled(t, "SetConfirmationSent", mock.Anything, mock.Anything)
}

func TestSendReminder_WindowChecks(t *testing.T) {
	svc, store, _ := newTestService()

	pastDue := confirmedReservation(time.Now().Add(-time.Hour))
	store.On("GetReservationByID", mock.Anything, "past").Return(pastDue, nil)

	_, err := svc.SendReminder(context.Background(), "past")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past due")

	tooFar := confirmedReservation(time.Now().Add(100 * time.Hour))
	store.On("GetReservationByID", mock.Anything, "far").Return(tooFar, nil)

	_, err = svc.SendReminder(context.Background(), "far")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than")
}

func TestSendReminder_AlreadySentRejected(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	r.ReminderSent = true
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)

	_, err := svc.SendReminder(context.Background(), "res-1")
	require.Error(t, err)
	var validationErr *reservation.ValidationError
	require.ErrorAs(t, err, &validationErr)
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendReminder_SuccessSetsFlag(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)
	store.On("GetRestaurant", mock.Anything, "rest-1").
		Return(&models.Restaurant{ID: "rest-1", Name: "Le Zengest"}, nil)
	transport.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
		return msg.Template == models.NotificationReminder
	})).Return("provider-msg-2", nil)
	store.On("AppendNotificationAttempt", mock.Anything, mock.Anything).Return(nil)
	store.On("SetReminderSent", mock.Anything, "res-1").Return(nil)

	result, err := svc.SendReminder(context.Background(), "res-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	store.AssertCalled(t, "SetReminderSent", mock.Anything, "res-1")
}

func TestSendCancellation_RequiresCancelledOrNoShow(t *testing.T) {
	svc, store, _ := newTestService()

	seated := confirmedReservation(time.Now().Add(time.Hour))
	seated.Status = models.StatusSeated
	store.On("GetReservationByID", mock.Anything, "res-1").Return(seated, nil)

	_, err := svc.SendCancellation(context.Background(), "res-1", "because")
	require.Error(t, err)
	var validationErr *reservation.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSendBatchReminders_IsolatesFailures(t *testing.T) {
	svc, store, transport := newTestService()

	ok := *confirmedReservation(time.Now().Add(20 * time.Hour))
	ok.ID = "res-ok"
	alreadySent := *confirmedReservation(time.Now().Add(20 * time.Hour))
	alreadySent.ID = "res-dup"
	alreadySent.ReminderSent = true

	store.On("ListReminderCandidates", mock.Anything, "", mock.Anything, mock.Anything).
		Return([]models.Reservation{ok, alreadySent}, nil)
	store.On("GetReservationByID", mock.Anything, "res-ok").Return(&ok, nil)
	store.On("GetReservationByID", mock.Anything, "res-dup").Return(&alreadySent, nil)
	store.On("GetRestaurant", mock.Anything, "rest-1").
		Return(&models.Restaurant{ID: "rest-1", Name: "Le Zengest"}, nil)
	transport.On("Send", mock.Anything, mock.Anything).Return("provider-msg-3", nil)
	store.On("AppendNotificationAttempt", mock.Anything, mock.Anything).Return(nil)
	store.On("SetReminderSent", mock.Anything, "res-ok").Return(nil)

	summary, err := svc.SendBatchReminders(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 2)
}

func TestRetryFailed_ReinvokesMatchingSend(t *testing.T) {
	svc, store, transport := newTestService()

	r := confirmedReservation(time.Now().Add(24 * time.Hour))
	store.On("ListAttemptsByReservation", mock.Anything, "res-1").
		Return([]models.NotificationAttempt{
			{ID: "a2", ReservationID: "res-1", Type: models.NotificationConfirmation, Success: false, Error: "smtp timeout"},
			{ID: "a1", ReservationID: "res-1", Type: models.NotificationConfirmation, Success: true},
		}, nil)
	store.On("GetReservationByID", mock.Anything, "res-1").Return(r, nil)
	store.On("GetRestaurant", mock.Anything, "rest-1").
		Return(&models.Restaurant{ID: "rest-1", Name: "Le Zengest"}, nil)
	transport.On("Send", mock.Anything, mock.Anything).Return("provider-msg-4", nil)
	store.On("AppendNotificationAttempt", mock.Anything, mock.Anything).Return(nil)
	store.On("SetConfirmationSent", mock.Anything, "res-1").Return(nil)

	result, err := svc.RetryFailed(context.Background(), "res-1", models.NotificationConfirmation)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestRetryFailed_NoFailedAttempt(t *testing.T) {
	svc, store, transport := newTestService()

	store.On("ListAttemptsByReservation", mock.Anything, "res-1").
		Return([]models.NotificationAttempt{
			{ID: "a1", ReservationID: "res-1", Type: models.NotificationConfirmation, Success: true},
		}, nil)

	_, err := svc.RetryFailed(context.Background(), "res-1", models.NotificationConfirmation)
	require.Error(t, err)
	var notFound *reservation.NotFoundError
	require.ErrorAs(t, err, &notFound)
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}
