package reservation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/config"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/logger"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
)

// DBLayer is the persistence surface the service depends on. The bun
// implementation lives in internal/reservation/db; tests substitute mocks.
type DBLayer interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	SoftDeleteReservation(ctx context.Context, id string, now time.Time) error
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)
	ListByDate(ctx context.Context, restaurantID string, day time.Time) ([]models.Reservation, error)

	ListBlockingByTable(ctx context.Context, tableID string, from, to time.Time) ([]models.Reservation, error)
	ListBlockingByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error)

	CountByRestaurantAndDay(ctx context.Context, restaurantID string, day time.Time) (int, error)
	NumberExists(ctx context.Context, number string) (bool, error)

	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	AppendEvent(ctx context.Context, event *models.ReservationEvent) error

	ListConfirmedStartedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error)
	ListSeatedStartedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error)
	ListTerminalUpdatedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error)
}

// TableGateway is the narrow interface to the floor-plan subsystem: find a
// table inside a restaurant's floor plan and flip its operational status.
type TableGateway interface {
	FindTable(ctx context.Context, restaurantID, floorPlanID, tableID string) (*models.Table, error)
	SetTableStatus(ctx context.Context, tableID, status string) error
}

// Notifier requests customer notifications for lifecycle events. Delivery is
// fully decoupled: errors are logged by the caller and never fail a mutation.
type Notifier interface {
	RequestConfirmation(ctx context.Context, reservationID string) error
	RequestCancellation(ctx context.Context, reservationID, reason string) error
}

// SlotLock narrows the booking race: a short-TTL lock over the table's time
// buckets held across the conflict check and the assignment write.
type SlotLock interface {
	LockTableSlot(ctx context.Context, tableID string, start, end time.Time, ownerID string) (bool, error)
	UnlockTableSlot(ctx context.Context, tableID string, start, end time.Time, ownerID string) error
}

// KafkaPublisher streams reservation lifecycle events to the broker.
type KafkaPublisher interface {
	PublishReservationCreated(r models.Reservation) error
	PublishReservationUpdated(r models.Reservation) error
	PublishStatusChanged(r models.Reservation, oldStatus string) error
}

type Service struct {
	DB       DBLayer
	Tables   TableGateway
	Notifier Notifier
	Locks    SlotLock
	Kafka    KafkaPublisher
	Logger   *logger.Logger
	Cfg      config.ReservationConfig
	Sched    config.SchedulerConfig

	resolver *Resolver
}

func NewService(db DBLayer, tables TableGateway, notifier Notifier, locks SlotLock, kafka KafkaPublisher, log *logger.Logger, cfg config.ReservationConfig, sched config.SchedulerConfig) *Service {
	return &Service{
		DB:       db,
		Tables:   tables,
		Notifier: notifier,
		Locks:    locks,
		Kafka:    kafka,
		Logger:   log,
		Cfg:      cfg,
		Sched:    sched,
		resolver: NewResolver(db),
	}
}

// Resolver exposes the conflict resolver bound to this service's store.
func (s *Service) Resolver() *Resolver { return s.resolver }

// ---------------- CREATE / READ / UPDATE ----------------

func (s *Service) Create(ctx context.Context, req models.CreateReservationRequest, actor string) (*models.Reservation, error) {
	now := time.Now()

	if req.DurationMin == 0 {
		req.DurationMin = s.Cfg.DefaultDurationMin
	}
	if err := s.validateSchedule(req.StartTime, req.DurationMin, req.PartySize, now); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, &ValidationError{Field: "customer_name", Message: "must not be empty"}
	}
	if !strings.Contains(req.CustomerEmail, "@") {
		return nil, &ValidationError{Field: "customer_email", Message: "must be a valid email address"}
	}

	restaurant, err := s.DB.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !restaurant.IsActive {
		return nil, &ValidationError{Field: "restaurant_id", Message: "restaurant is not accepting reservations"}
	}

	if err := s.resolver.CheckCapacity(ctx, req.RestaurantID, req.StartTime, req.DurationMin, req.PartySize, restaurant.Capacity, ""); err != nil {
		return nil, err
	}

	number, err := GenerateNumber(ctx, s.DB, req.RestaurantID, req.StartTime)
	if err != nil {
		return nil, err
	}

	r := &models.Reservation{
		ID:             uuid.NewString(),
		Number:         number,
		RestaurantID:   req.RestaurantID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
		SpecialRequest: req.SpecialRequest,
		StartTime:      req.StartTime,
		DurationMin:    req.DurationMin,
		PartySize:      req.PartySize,
		Status:         models.StatusPending,
		SeatingArea:    req.SeatingArea,
		TableShape:     req.TableShape,
		Accessible:     req.Accessible,
		Quiet:          req.Quiet,
		CreatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.DB.CreateReservation(ctx, r); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, r.ID, "created", actor, fmt.Sprintf("party of %d at %s", r.PartySize, r.StartTime.Format(time.RFC3339)))
	s.Logger.LogReservation("CREATE", r.Number, fmt.Sprintf("party of %d for restaurant %s", r.PartySize, r.RestaurantID))

	if err := s.Kafka.PublishReservationCreated(*r); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish created event for %s: %v", r.Number, err))
	}

	// Staff-created reservations are confirmed immediately, through the
	// normal state machine so the confirmation side effects still fire.
	if req.Source == models.SourceStaff {
		confirmed, err := s.ChangeStatus(ctx, r.ID, models.StatusConfirmed, "staff booking", actor)
		if err != nil {
			s.Logger.Error("SERVICE", fmt.Sprintf("auto-confirm %s: %v", r.Number, err))
			return r, nil
		}
		return confirmed, nil
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.DB.GetReservationByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter models.ReservationFilter) (*models.ReservationPage, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	items, total, err := s.DB.ListReservations(ctx, filter)
	if err != nil {
		return nil, err
	}
	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &models.ReservationPage{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

func (s *Service) ListByDate(ctx context.Context, restaurantID string, day time.Time) ([]models.Reservation, error) {
	return s.DB.ListByDate(ctx, restaurantID, day)
}

// Update applies partial changes. Only pending and confirmed reservations are
// modifiable; schedule or party changes are re-validated against all other
// reservations before anything is written.
func (s *Service) Update(ctx context.Context, id string, req models.UpdateReservationRequest, actor string) (*models.Reservation, error) {
	r, err := s.DB.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending && r.Status != models.StatusConfirmed {
		return nil, &TransitionError{From: r.Status, To: r.Status, Message: "reservation is no longer modifiable"}
	}

	now := time.Now()
	start := r.StartTime
	duration := r.DurationMin
	party := r.PartySize
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.DurationMin != nil {
		duration = *req.DurationMin
	}
	if req.PartySize != nil {
		party = *req.PartySize
	}

	scheduleChanged := !start.Equal(r.StartTime) || duration != r.DurationMin || party != r.PartySize
	if scheduleChanged {
		if err := s.validateSchedule(start, duration, party, now); err != nil {
			return nil, err
		}
		restaurant, err := s.DB.GetRestaurant(ctx, r.RestaurantID)
		if err != nil {
			return nil, err
		}
		if err := s.resolver.CheckCapacity(ctx, r.RestaurantID, start, duration, party, restaurant.Capacity, r.ID); err != nil {
			return nil, err
		}
		if r.TableID != nil {
			// A grown party must still fit the table it was assigned.
			if r.FloorPlanID != nil {
				table, err := s.Tables.FindTable(ctx, r.RestaurantID, *r.FloorPlanID, *r.TableID)
				if err != nil {
					return nil, err
				}
				if party > table.Capacity {
					return nil, &ConflictError{
						Reason:         "table capacity insufficient",
						RequestedSeats: party,
						Capacity:       table.Capacity,
					}
				}
			}
			if err := s.resolver.CheckTable(ctx, *r.TableID, start, duration, r.ID); err != nil {
				return nil, err
			}
		}
	}

	r.StartTime = start
	r.DurationMin = duration
	r.PartySize = party
	if req.CustomerName != nil {
		r.CustomerName = *req.CustomerName
	}
	if req.CustomerEmail != nil {
		if !strings.Contains(*req.CustomerEmail, "@") {
			return nil, &ValidationError{Field: "customer_email", Message: "must be a valid email address"}
		}
		r.CustomerEmail = *req.CustomerEmail
	}
	if req.CustomerPhone != nil {
		r.CustomerPhone = *req.CustomerPhone
	}
	if req.SpecialRequest != nil {
		r.SpecialRequest = *req.SpecialRequest
	}
	if req.SeatingArea != nil {
		r.SeatingArea = *req.SeatingArea
	}
	if req.TableShape != nil {
		r.TableShape = *req.TableShape
	}
	if req.Accessible != nil {
		r.Accessible = *req.Accessible
	}
	if req.Quiet != nil {
		r.Quiet = *req.Quiet
	}
	r.UpdatedAt = now

	if err := s.DB.UpdateReservation(ctx, r); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, r.ID, "updated", actor, "")
	s.Logger.LogReservation("UPDATE", r.Number, "reservation updated")

	if err := s.Kafka.PublishReservationUpdated(*r); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish updated event for %s: %v", r.Number, err))
	}
	return r, nil
}

func (s *Service) validateSchedule(start time.Time, durationMin, partySize int, now time.Time) error {
	if !start.After(now) {
		return &ValidationError{Field: "start_time", Message: "must be in the future"}
	}
	if durationMin < s.Cfg.MinDurationMin || durationMin > s.Cfg.MaxDurationMin {
		return &ValidationError{
			Field:   "duration_min",
			Message: fmt.Sprintf("must be between %d and %d minutes", s.Cfg.MinDurationMin, s.Cfg.MaxDurationMin),
		}
	}
	if partySize < s.Cfg.MinPartySize || partySize > s.Cfg.MaxPartySize {
		return &ValidationError{
			Field:   "party_size",
			Message: fmt.Sprintf("must be between %d and %d guests", s.Cfg.MinPartySize, s.Cfg.MaxPartySize),
		}
	}
	return nil
}

// ---------------- STATUS TRANSITIONS ----------------

// ChangeStatus moves a reservation along the state machine. The row is
// persisted first; table status changes and notification requests run after
// and are best-effort.
func (s *Service) ChangeStatus(ctx context.Context, id, target, reason, actor string) (*models.Reservation, error) {
	r, err := s.DB.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := r.Status

	t, err := ApplyTransition(r, target, time.Now())
	if err != nil {
		return nil, err
	}

	if err := s.DB.UpdateReservation(ctx, r); err != nil {
		return nil, err
	}
	detail := reason
	if detail == "" {
		detail = fmt.Sprintf("%s -> %s", oldStatus, target)
	}
	s.appendEvent(ctx, r.ID, "status_"+target, actor, detail)
	s.Logger.LogReservation("STATUS", r.Number, fmt.Sprintf("%s -> %s (%s)", oldStatus, target, actor))

	s.runEffects(ctx, t, r, reason)

	if err := s.Kafka.PublishStatusChanged(*r, oldStatus); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish status event for %s: %v", r.Number, err))
	}
	return r, nil
}

func (s *Service) runEffects(ctx context.Context, t *Transition, r *models.Reservation, reason string) {
	for _, effect := range t.Effects {
		switch effect {
		case EffectSendConfirmation:
			if err := s.Notifier.RequestConfirmation(ctx, r.ID); err != nil {
				s.Logger.Error("NOTIFY", fmt.Sprintf("confirmation for %s: %v", r.Number, err))
			}
		case EffectSendCancellation:
			if err := s.Notifier.RequestCancellation(ctx, r.ID, reason); err != nil {
				s.Logger.Error("NOTIFY", fmt.Sprintf("cancellation for %s: %v", r.Number, err))
			}
		case EffectOccupyTable:
			s.setAssignedTableStatus(ctx, r, models.TableOccupied, "")
		case EffectCleanTable:
			s.setAssignedTableStatus(ctx, r, models.TableCleaning, "")
		case EffectReleaseTable:
			// Only a table still parked in "reserved" goes back to
			// available; occupied or cleaning tables keep their state.
			s.setAssignedTableStatus(ctx, r, models.TableAvailable, models.TableReserved)
		}
	}
}

// setAssignedTableStatus flips the assigned table's operational status. When
// onlyIf is non-empty the change applies only if the table is currently in
// that status. The reservation row is already persisted at this point; a
// failure here leaves an inconsistency the periodic jobs reconcile.
func (s *Service) setAssignedTableStatus(ctx context.Context, r *models.Reservation, status, onlyIf string) {
	if r.TableID == nil || r.FloorPlanID == nil {
		return
	}
	table, err := s.Tables.FindTable(ctx, r.RestaurantID, *r.FloorPlanID, *r.TableID)
	if err != nil {
		s.Logger.Error("TABLES", fmt.Sprintf("find table %s for %s: %v", *r.TableID, r.Number, err))
		return
	}
	if onlyIf != "" && table.Status != onlyIf {
		return
	}
	if err := s.Tables.SetTableStatus(ctx, table.ID, status); err != nil {
		s.Logger.Error("TABLES", fmt.Sprintf("set table %s to %s for %s: %v", table.ID, status, r.Number, err))
		return
	}
	s.Logger.Info("TABLES", fmt.Sprintf("table %s -> %s (reservation %s)", table.Number, status, r.Number))
}

// ---------------- TABLE ASSIGNMENT ----------------

// AssignTable validates the floor plan, the table capacity and the schedule
// conflict, then records the assignment. A short-TTL slot lock is held across
// the check and the write to narrow the booking race.
func (s *Service) AssignTable(ctx context.Context, id string, req models.AssignTableRequest, actor string) (*models.Reservation, error) {
	r, err := s.DB.GetReservationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.IsTerminalStatus(r.Status) {
		return nil, &TransitionError{From: r.Status, To: r.Status, Message: "cannot assign a table to a terminal reservation"}
	}

	table, err := s.Tables.FindTable(ctx, r.RestaurantID, req.FloorPlanID, req.TableID)
	if err != nil {
		return nil, err
	}
	if r.PartySize > table.Capacity {
		return nil, &ConflictError{
			Reason:         "table capacity insufficient",
			RequestedSeats: r.PartySize,
			Capacity:       table.Capacity,
		}
	}

	start := r.StartTime
	end := r.EndTime()
	locked, err := s.Locks.LockTableSlot(ctx, table.ID, start, end, r.ID)
	if err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("slot lock for table %s unavailable: %v", table.ID, err))
	} else if !locked {
		return nil, &ConflictError{Reason: "table slot is being booked by another request"}
	} else {
		defer func() {
			if err := s.Locks.UnlockTableSlot(ctx, table.ID, start, end, r.ID); err != nil {
				s.Logger.Warn("REDIS", fmt.Sprintf("slot unlock for table %s: %v", table.ID, err))
			}
		}()
	}

	if err := s.resolver.CheckTable(ctx, table.ID, r.StartTime, r.DurationMin, r.ID); err != nil {
		return nil, err
	}

	// Re-assignment releases the previous table if it was only reserved.
	if r.TableID != nil && *r.TableID != table.ID {
		s.setAssignedTableStatus(ctx, r, models.TableAvailable, models.TableReserved)
	}

	now := time.Now()
	r.FloorPlanID = &req.FloorPlanID
	r.TableID = &table.ID
	r.TableNumber = &table.Number
	r.AssignedAt = &now
	r.AssignedBy = &actor
	r.UpdatedAt = now

	if err := s.DB.UpdateReservation(ctx, r); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, r.ID, "table_assigned", actor, fmt.Sprintf("table %s", table.Number))
	s.Logger.LogReservation("ASSIGN", r.Number, fmt.Sprintf("table %s on floor plan %s", table.Number, req.FloorPlanID))

	if err := s.Tables.SetTableStatus(ctx, table.ID, models.TableReserved); err != nil {
		s.Logger.Error("TABLES", fmt.Sprintf("reserve table %s for %s: %v", table.ID, r.Number, err))
	}
	if err := s.Kafka.PublishReservationUpdated(*r); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("publish updated event for %s: %v", r.Number, err))
	}
	return r, nil
}

// ---------------- SCHEDULED JOBS ----------------

// SweepNoShows flips confirmed reservations past the no-show grace period to
// no_show. Idempotent: rows already moved out of confirmed are not selected
// on the next run.
func (s *Service) SweepNoShows(ctx context.Context, now time.Time) models.JobSummary {
	summary := models.JobSummary{Job: "no_show_sweep", RanAt: now}
	overdue, err := s.DB.ListConfirmedStartedBefore(ctx, now.Add(-s.Sched.NoShowGrace))
	if err != nil {
		summary.Failed++
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	for i := range overdue {
		summary.Processed++
		if _, err := s.ChangeStatus(ctx, overdue[i].ID, models.StatusNoShow, "no-show sweep", "system"); err != nil {
			// A reservation moved by a concurrent actor is skipped, not failed.
			if _, ok := err.(*TransitionError); ok {
				summary.Skipped++
				continue
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", overdue[i].Number, err))
			continue
		}
		summary.Succeeded++
	}
	return summary
}

// AutoRelease completes seated reservations whose window ended more than the
// configured delay ago, freeing their table for cleaning.
func (s *Service) AutoRelease(ctx context.Context, now time.Time) models.JobSummary {
	summary := models.JobSummary{Job: "auto_release", RanAt: now}
	candidates, err := s.DB.ListSeatedStartedBefore(ctx, now.Add(-s.Sched.AutoReleaseAfter))
	if err != nil {
		summary.Failed++
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	for i := range candidates {
		r := &candidates[i]
		if now.Sub(r.EndTime()) <= s.Sched.AutoReleaseAfter {
			continue
		}
		summary.Processed++
		if _, err := s.ChangeStatus(ctx, r.ID, models.StatusCompleted, "auto-release", "system"); err != nil {
			if _, ok := err.(*TransitionError); ok {
				summary.Skipped++
				continue
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", r.Number, err))
			continue
		}
		summary.Succeeded++
	}
	return summary
}

// Cleanup forces stale seated reservations to completed and soft-deletes
// terminal reservations past the retention window.
func (s *Service) Cleanup(ctx context.Context, now time.Time) models.JobSummary {
	summary := models.JobSummary{Job: "cleanup", RanAt: now}

	stale, err := s.DB.ListSeatedStartedBefore(ctx, now.Add(-s.Sched.StaleSeatedAfter))
	if err != nil {
		summary.Failed++
		summary.Errors = append(summary.Errors, err.Error())
	} else {
		for i := range stale {
			summary.Processed++
			if _, err := s.ChangeStatus(ctx, stale[i].ID, models.StatusCompleted, "cleanup of stale seated reservation", "system"); err != nil {
				if _, ok := err.(*TransitionError); ok {
					summary.Skipped++
					continue
				}
				summary.Failed++
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", stale[i].Number, err))
				continue
			}
			summary.Succeeded++
		}
	}

	retention := time.Duration(s.Sched.RetentionDays) * 24 * time.Hour
	old, err := s.DB.ListTerminalUpdatedBefore(ctx, now.Add(-retention))
	if err != nil {
		summary.Failed++
		summary.Errors = append(summary.Errors, err.Error())
		return summary
	}
	for i := range old {
		summary.Processed++
		if err := s.DB.SoftDeleteReservation(ctx, old[i].ID, now); err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", old[i].Number, err))
			continue
		}
		s.appendEvent(ctx, old[i].ID, "archived", "system", "retention cleanup")
		summary.Succeeded++
	}
	return summary
}

func (s *Service) appendEvent(ctx context.Context, reservationID, action, actor, detail string) {
	event := &models.ReservationEvent{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		Action:        action,
		Actor:         actor,
		Detail:        detail,
		CreatedAt:     time.Now(),
	}
	if err := s.DB.AppendEvent(ctx, event); err != nil {
		s.Logger.Error("SERVICE", fmt.Sprintf("append event %s for %s: %v", action, reservationID, err))
	}
}
