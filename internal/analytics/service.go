package analytics

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
)

// Service computes read-only reservation statistics. It never mutates
// anything; the weekly stats job and the stats endpoint both go through it.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// RestaurantStats aggregates one restaurant's trailing-window activity.
type RestaurantStats struct {
	RestaurantID      string         `json:"restaurant_id"`
	From              time.Time      `json:"from"`
	To                time.Time      `json:"to"`
	TotalReservations int            `json:"total_reservations"`
	ByStatus          map[string]int `json:"by_status"`
	GuestsServed      int            `json:"guests_served"`
	AveragePartySize  float64        `json:"average_party_size"`
	NoShowRate        float64        `json:"no_show_rate"`
}

type statusCount struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
	Guests int    `bun:"guests"`
}

// WeeklyStats aggregates the trailing seven days for a restaurant.
func (s *Service) WeeklyStats(ctx context.Context, restaurantID string, now time.Time) (*RestaurantStats, error) {
	from := now.Add(-7 * 24 * time.Hour)

	var rows []statusCount
	err := s.db.NewSelect().
		Model((*models.Reservation)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("SUM(party_size) AS guests").
		Where("restaurant_id = ?", restaurantID).
		Where("is_deleted = ?", false).
		Where("start_time >= ?", from).
		Where("start_time < ?", now).
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	stats := &RestaurantStats{
		RestaurantID: restaurantID,
		From:         from,
		To:           now,
		ByStatus:     make(map[string]int),
	}
	totalGuests := 0
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
		stats.TotalReservations += row.Count
		totalGuests += row.Guests
		if row.Status == models.StatusCompleted || row.Status == models.StatusSeated {
			stats.GuestsServed += row.Guests
		}
	}
	if stats.TotalReservations > 0 {
		stats.AveragePartySize = float64(totalGuests) / float64(stats.TotalReservations)
		stats.NoShowRate = float64(stats.ByStatus[models.StatusNoShow]) / float64(stats.TotalReservations)
	}
	return stats, nil
}

// WeeklyStatsAll computes the weekly aggregate for every active restaurant.
func (s *Service) WeeklyStatsAll(ctx context.Context, now time.Time) ([]RestaurantStats, error) {
	var restaurants []models.Restaurant
	err := s.db.NewSelect().
		Model(&restaurants).
		Where("is_active = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RestaurantStats, 0, len(restaurants))
	for _, restaurant := range restaurants {
		stats, err := s.WeeklyStats(ctx, restaurant.ID, now)
		if err != nil {
			return nil, err
		}
		out = append(out, *stats)
	}
	return out, nil
}
