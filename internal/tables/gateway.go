package tables

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

// Gateway is the reservation side of the floor-plan subsystem: it can locate
// a table inside a restaurant's floor plan and flip its operational status.
// Geometry and layout editing belong to the floor-plan service.
type Gateway struct {
	Bun *bun.DB
}

func NewGateway(bunDB *bun.DB) *Gateway {
	return &Gateway{Bun: bunDB}
}

// FindTable resolves a table by id within a floor plan, scoped to the given
// restaurant. A floor plan belonging to another restaurant is reported as
// not found rather than leaked.
func (g *Gateway) FindTable(ctx context.Context, restaurantID, floorPlanID, tableID string) (*models.Table, error) {
	var plan models.FloorPlan
	err := g.Bun.NewSelect().
		Model(&plan).
		Where("id = ?", floorPlanID).
		Where("restaurant_id = ?", restaurantID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &reservation.NotFoundError{Resource: "floor plan", ID: floorPlanID}
	}
	if err != nil {
		return nil, err
	}

	var table models.Table
	err = g.Bun.NewSelect().
		Model(&table).
		Where("id = ?", tableID).
		Where("floor_plan_id = ?", floorPlanID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &reservation.NotFoundError{Resource: "table", ID: tableID}
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// SetTableStatus flips a table's operational status.
func (g *Gateway) SetTableStatus(ctx context.Context, tableID, status string) error {
	res, err := g.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", tableID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return &reservation.NotFoundError{Resource: "table", ID: tableID}
	}
	return nil
}
