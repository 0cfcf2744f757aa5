package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

// defaultMaxSpan bounds the window-narrowing applied to blocking queries
// when no span is configured; any reservation starting earlier than this
// before the window cannot reach into it.
const defaultMaxSpan = 6 * time.Hour

type DB struct {
	Bun *bun.DB

	// MaxSpan is the longest duration a reservation can have, so the
	// blocking queries never narrow past one that still reaches into the
	// window. Wired from the configured duration cap; zero falls back to
	// defaultMaxSpan.
	MaxSpan time.Duration
}

func (d *DB) maxSpan() time.Duration {
	if d.MaxSpan > 0 {
		return d.MaxSpan
	}
	return defaultMaxSpan
}

// ---------------- RESERVATIONS ----------------

func (d *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := d.Bun.NewInsert().Model(r).Exec(ctx)
	return err
}

func (d *DB) GetReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := d.Bun.NewSelect().
		Model(&r).
		Where("id = ?", id).
		Where("is_deleted = ?", false).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &reservation.NotFoundError{Resource: "reservation", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	_, err := d.Bun.NewUpdate().
		Model(r).
		Column("customer_name", "customer_email", "customer_phone", "special_request",
			"start_time", "duration_min", "party_size", "status",
			"floor_plan_id", "table_id", "table_number", "assigned_at", "assigned_by",
			"seating_area", "table_shape", "accessible", "quiet",
			"confirmation_sent", "reminder_sent",
			"confirmed_at", "seated_at", "completed_at", "cancelled_at",
			"updated_at").
		Where("id = ?", r.ID).
		Exec(ctx)
	return err
}

// SoftDeleteReservation hides the row from normal queries without physical
// deletion. There is no hard-delete path.
func (d *DB) SoftDeleteReservation(ctx context.Context, id string, now time.Time) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("is_deleted = ?", true).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	items := make([]models.Reservation, 0)
	q := d.Bun.NewSelect().
		Model(&items).
		Where("is_deleted = ?", false)

	if filter.RestaurantID != "" {
		q = q.Where("restaurant_id = ?", filter.RestaurantID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.TableID != "" {
		q = q.Where("table_id = ?", filter.TableID)
	}
	if !filter.From.IsZero() {
		q = q.Where("start_time >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("start_time < ?", filter.To)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	err = q.Order("start_time ASC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (d *DB) ListByDate(ctx context.Context, restaurantID string, day time.Time) ([]models.Reservation, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	items := make([]models.Reservation, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("restaurant_id = ?", restaurantID).
		Where("is_deleted = ?", false).
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayEnd).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------- BLOCKING QUERIES (conflict resolver) ----------------

// ListBlockingByTable returns the confirmed/seated reservations on a table
// that may overlap [from, to). The resolver re-tests every interval; the SQL
// window only narrows the fetch.
func (d *DB) ListBlockingByTable(ctx context.Context, tableID string, from, to time.Time) ([]models.Reservation, error) {
	items := make([]models.Reservation, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("table_id = ?", tableID).
		Where("is_deleted = ?", false).
		Where("status IN (?)", bun.In([]string{models.StatusConfirmed, models.StatusSeated})).
		Where("start_time < ?", to).
		Where("start_time > ?", from.Add(-d.maxSpan())).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) ListBlockingByRestaurant(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error) {
	items := make([]models.Reservation, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("restaurant_id = ?", restaurantID).
		Where("is_deleted = ?", false).
		Where("status IN (?)", bun.In([]string{models.StatusConfirmed, models.StatusSeated})).
		Where("start_time < ?", to).
		Where("start_time > ?", from.Add(-d.maxSpan())).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------- NUMBER GENERATION ----------------

func (d *DB) CountByRestaurantAndDay(ctx context.Context, restaurantID string, day time.Time) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return d.Bun.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("restaurant_id = ?", restaurantID).
		Where("start_time >= ?", dayStart).
		Where("start_time < ?", dayStart.Add(24*time.Hour)).
		Count(ctx)
}

func (d *DB) NumberExists(ctx context.Context, number string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Reservation)(nil)).
		Where("number = ?", number).
		Exists(ctx)
}

// ---------------- RESTAURANTS ----------------

func (d *DB) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	err := d.Bun.NewSelect().
		Model(&r).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &reservation.NotFoundError{Resource: "restaurant", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	items := make([]models.Restaurant, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("is_active = ?", true).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------- APPEND-ONLY LOGS ----------------

func (d *DB) AppendEvent(ctx context.Context, event *models.ReservationEvent) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

func (d *DB) ListEventsByReservation(ctx context.Context, reservationID string) ([]models.ReservationEvent, error) {
	items := make([]models.ReservationEvent, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) AppendNotificationAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	_, err := d.Bun.NewInsert().Model(attempt).Exec(ctx)
	return err
}

func (d *DB) ListAttemptsByReservation(ctx context.Context, reservationID string) ([]models.NotificationAttempt, error) {
	items := make([]models.NotificationAttempt, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("reservation_id = ?", reservationID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) SetConfirmationSent(ctx context.Context, reservationID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("confirmation_sent = ?", true).
		Where("id = ?", reservationID).
		Exec(ctx)
	return err
}

func (d *DB) SetReminderSent(ctx context.Context, reservationID string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Reservation)(nil)).
		Set("reminder_sent = ?", true).
		Where("id = ?", reservationID).
		Exec(ctx)
	return err
}

// ListReminderCandidates selects confirmed, active, not-yet-reminded
// reservations starting inside [from, to). An empty restaurantID selects
// across all restaurants.
func (d *DB) ListReminderCandidates(ctx context.Context, restaurantID string, from, to time.Time) ([]models.Reservation, error) {
	items := make([]models.Reservation, 0)
	q := d.Bun.NewSelect().
		Model(&items).
		Where("status = ?", models.StatusConfirmed).
		Where("is_deleted = ?", false).
		Where("reminder_sent = ?", false).
		Where("start_time >= ?", from).
		Where("start_time < ?", to)
	if restaurantID != "" {
		q = q.Where("restaurant_id = ?", restaurantID)
	}
	err := q.Order("start_time ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ---------------- SCHEDULER QUERIES ----------------

func (d *DB) ListConfirmedStartedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error) {
	return d.listByStatusStartedBefore(ctx, models.StatusConfirmed, before)
}

func (d *DB) ListSeatedStartedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error) {
	return d.listByStatusStartedBefore(ctx, models.StatusSeated, before)
}

func (d *DB) listByStatusStartedBefore(ctx context.Context, status string, before time.Time) ([]models.Reservation, error) {
	items := make([]models.Reservation, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("status = ?", status).
		Where("is_deleted = ?", false).
		Where("start_time < ?", before).
		Order("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (d *DB) ListTerminalUpdatedBefore(ctx context.Context, before time.Time) ([]models.Reservation, error) {
	items := make([]models.Reservation, 0)
	err := d.Bun.NewSelect().
		Model(&items).
		Where("status IN (?)", bun.In([]string{models.StatusCompleted, models.StatusCancelled, models.StatusNoShow})).
		Where("is_deleted = ?", false).
		Where("updated_at < ?", before).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return items, nil
}
