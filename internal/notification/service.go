package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

// Store is the persistence surface the orchestrator needs: the reservation,
// its restaurant, the append-only delivery ledger and the two sent flags.
type Store interface {
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	AppendNotificationAttempt(ctx context.Context, attempt *models.NotificationAttempt) error
	ListAttemptsByReservation(ctx context.Context, reservationID string) ([]models.NotificationAttempt, error)
	SetConfirmationSent(ctx context.Context, reservationID string) error
	SetReminderSent(ctx context.Context, reservationID string) error
	ListReminderCandidates(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error)
}

// Service decides notification eligibility, delegates delivery to the
// transport and records every attempt. Delivery failure is recorded in the
// result, never returned as an error: state transitions are already
// persisted by the time a notification is requested.
type Service struct {
	Store          Store
	Transport      Transport
	Logger         *logger.Logger
	ReminderWindow time.Duration
	BatchPause     time.Duration
}

func NewService(store Store, transport Transport, log *logger.Logger, reminderWindow, batchPause time.Duration) *Service {
	if reminderWindow <= 0 {
		reminderWindow = 48 * time.Hour
	}
	return &Service{
		Store:          store,
		Transport:      transport,
		Logger:         log,
		ReminderWindow: reminderWindow,
		BatchPause:     batchPause,
	}
}

// SendConfirmation sends the booking confirmation with a check-in QR code.
// The reservation must be confirmed. The "confirmation sent" flag is set on
// success; repeats are allowed and simply append further ledger entries.
func (s *Service) SendConfirmation(ctx context.Context, reservationID string) (*models.NotificationResult, error) {
	r, err := s.Store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusConfirmed {
		return nil, &reservation.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("confirmation requires a confirmed reservation, got %s", r.Status),
		}
	}

	msg, err := s.buildMessage(ctx, r, models.NotificationConfirmation, "")
	if err != nil {
		return nil, err
	}
	if png, err := qrcode.Encode(r.Number, qrcode.Medium, 256); err == nil {
		msg.Attachment = png
		msg.AttachmentName = fmt.Sprintf("checkin-%s.png", r.Number)
	} else {
		s.Logger.Warn("NOTIFY", fmt.Sprintf("QR generation for %s: %v", r.Number, err))
	}

	result := s.deliver(ctx, r, models.NotificationConfirmation, msg)
	if result.Success {
		if err := s.Store.SetConfirmationSent(ctx, r.ID); err != nil {
			s.Logger.Error("NOTIFY", fmt.Sprintf("set confirmation_sent for %s: %v", r.Number, err))
		}
	}
	return result, nil
}

// SendReminder sends the pre-visit reminder. Eligibility: confirmed, not
// yet reminded, and starting within the reminder window from now. Past-due
// and too-far-out reservations are rejected distinctly.
func (s *Service) SendReminder(ctx context.Context, reservationID string) (*models.NotificationResult, error) {
	r, err := s.Store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusConfirmed {
		return nil, &reservation.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("reminder requires a confirmed reservation, got %s", r.Status),
		}
	}
	if r.ReminderSent {
		return nil, &reservation.ValidationError{Field: "reminder", Message: "reminder already sent"}
	}
	until := time.Until(r.StartTime)
	if until < 0 {
		return nil, &reservation.ValidationError{Field: "start_time", Message: "reservation is already past due"}
	}
	if until > s.ReminderWindow {
		return nil, &reservation.ValidationError{
			Field:   "start_time",
			Message: fmt.Sprintf("reservation starts more than %s from now", s.ReminderWindow),
		}
	}

	msg, err := s.buildMessage(ctx, r, models.NotificationReminder, "")
	if err != nil {
		return nil, err
	}
	result := s.deliver(ctx, r, models.NotificationReminder, msg)
	if result.Success {
		if err := s.Store.SetReminderSent(ctx, r.ID); err != nil {
			s.Logger.Error("NOTIFY", fmt.Sprintf("set reminder_sent for %s: %v", r.Number, err))
		}
	}
	return result, nil
}

// SendCancellation notifies the customer after a cancellation or no-show.
// There is no idempotency flag: cancellations may legitimately be re-sent.
func (s *Service) SendCancellation(ctx context.Context, reservationID, reason string) (*models.NotificationResult, error) {
	r, err := s.Store.GetReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusCancelled && r.Status != models.StatusNoShow {
		return nil, &reservation.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cancellation notice requires a cancelled or no-show reservation, got %s", r.Status),
		}
	}

	msg, err := s.buildMessage(ctx, r, models.NotificationCancellation, reason)
	if err != nil {
		return nil, err
	}
	return s.deliver(ctx, r, models.NotificationCancellation, msg), nil
}

// SendBatchReminders sends reminders for every eligible reservation starting
// tomorrow, serialized with a pause between sends to respect transport rate
// limits. One failure never halts the batch.
func (s *Service) SendBatchReminders(ctx context.Context, restaurantID string) (*models.BatchSummary, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	candidates, err := s.Store.ListReminderCandidates(ctx, restaurantID, from, to)
	if err != nil {
		return nil, err
	}

	summary := &models.BatchSummary{Selected: len(candidates)}
	for i := range candidates {
		result, err := s.SendReminder(ctx, candidates[i].ID)
		if err != nil {
			// Eligibility changed between selection and send; record and move on.
			summary.Failed++
			summary.Results = append(summary.Results, models.NotificationResult{
				ReservationID: candidates[i].ID,
				Type:          models.NotificationReminder,
				Error:         err.Error(),
			})
		} else {
			if result.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			summary.Results = append(summary.Results, *result)
		}
		if i < len(candidates)-1 && s.BatchPause > 0 {
			time.Sleep(s.BatchPause)
		}
	}
	s.Logger.Info("NOTIFY", fmt.Sprintf("batch reminders: %d selected, %d sent, %d failed",
		summary.Selected, summary.Succeeded, summary.Failed))
	return summary, nil
}

// RetryFailed re-invokes the send matching the most recent failed ledger
// entry of the given type.
func (s *Service) RetryFailed(ctx context.Context, reservationID, notificationType string) (*models.NotificationResult, error) {
	attempts, err := s.Store.ListAttemptsByReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	var failed *models.NotificationAttempt
	for i := range attempts { // newest first
		if attempts[i].Type == notificationType && !attempts[i].Success {
			failed = &attempts[i]
			break
		}
	}
	if failed == nil {
		return nil, &reservation.NotFoundError{
			Resource: "failed " + notificationType + " attempt for reservation",
			ID:       reservationID,
		}
	}

	switch notificationType {
	case models.NotificationConfirmation:
		return s.SendConfirmation(ctx, reservationID)
	case models.NotificationReminder:
		return s.SendReminder(ctx, reservationID)
	case models.NotificationCancellation:
		return s.SendCancellation(ctx, reservationID, "resend")
	default:
		return nil, &reservation.ValidationError{Field: "type", Message: "unknown notification type " + notificationType}
	}
}

// RequestConfirmation implements reservation.Notifier for the state
// machine's side effects.
func (s *Service) RequestConfirmation(ctx context.Context, reservationID string) error {
	_, err := s.SendConfirmation(ctx, reservationID)
	return err
}

// RequestCancellation implements reservation.Notifier.
func (s *Service) RequestCancellation(ctx context.Context, reservationID, reason string) error {
	_, err := s.SendCancellation(ctx, reservationID, reason)
	return err
}

func (s *Service) buildMessage(ctx context.Context, r *models.Reservation, notificationType, reason string) (Message, error) {
	restaurant, err := s.Store.GetRestaurant(ctx, r.RestaurantID)
	if err != nil {
		return Message{}, err
	}

	var subject string
	switch notificationType {
	case models.NotificationConfirmation:
		subject = fmt.Sprintf("Reservation %s confirmed at %s", r.Number, restaurant.Name)
	case models.NotificationReminder:
		subject = fmt.Sprintf("Reminder: your reservation %s at %s", r.Number, restaurant.Name)
	case models.NotificationCancellation:
		subject = fmt.Sprintf("Reservation %s at %s was cancelled", r.Number, restaurant.Name)
	}

	return Message{
		To:       r.CustomerEmail,
		Subject:  subject,
		Template: notificationType,
		Data: map[string]interface{}{
			"number":          r.Number,
			"customer_name":   r.CustomerName,
			"restaurant_name": restaurant.Name,
			"start_time":      r.StartTime.Format(time.RFC1123),
			"party_size":      r.PartySize,
			"reason":          reason,
		},
	}, nil
}

// deliver sends the message and appends exactly one ledger entry, success or
// failure.
func (s *Service) deliver(ctx context.Context, r *models.Reservation, notificationType string, msg Message) *models.NotificationResult {
	result := &models.NotificationResult{ReservationID: r.ID, Type: notificationType}

	providerID, err := s.Transport.Send(ctx, msg)
	attempt := &models.NotificationAttempt{
		ID:                uuid.NewString(),
		ReservationID:     r.ID,
		Type:              notificationType,
		CreatedAt:         time.Now(),
		ProviderMessageID: providerID,
	}
	if err != nil {
		attempt.Error = err.Error()
		result.Error = err.Error()
		s.Logger.Error("NOTIFY", fmt.Sprintf("%s delivery for %s failed: %v", notificationType, r.Number, err))
	} else {
		attempt.Success = true
		result.Success = true
		result.ProviderMessageID = providerID
		s.Logger.Info("NOTIFY", fmt.Sprintf("%s sent for %s (provider id %s)", notificationType, r.Number, providerID))
	}

	if err := s.Store.AppendNotificationAttempt(ctx, attempt); err != nil {
		s.Logger.Error("NOTIFY", fmt.Sprintf("append ledger entry for %s: %v", r.Number, err))
	}
	return result
}
