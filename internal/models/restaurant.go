package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Restaurant struct {
	bun.BaseModel `bun:"table:restaurants"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	Capacity  int       `bun:"capacity,notnull" json:"capacity"`
	IsActive  bool      `bun:"is_active" json:"is_active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

type FloorPlan struct {
	bun.BaseModel `bun:"table:floor_plans"`

	ID           string    `bun:"id,pk" json:"id"`
	RestaurantID string    `bun:"restaurant_id,notnull" json:"restaurant_id"`
	Name         string    `bun:"name,notnull" json:"name"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Operational table statuses. Geometry editing lives in the floor-plan
// subsystem; this service only flips the status field.
const (
	TableAvailable    = "available"
	TableReserved     = "reserved"
	TableOccupied     = "occupied"
	TableCleaning     = "cleaning"
	TableOutOfService = "out_of_service"
)

type Table struct {
	bun.BaseModel `bun:"table:restaurant_tables"`

	ID          string    `bun:"id,pk" json:"id"`
	FloorPlanID string    `bun:"floor_plan_id,notnull" json:"floor_plan_id"`
	Number      string    `bun:"number,notnull" json:"number"`
	Capacity    int       `bun:"capacity,notnull" json:"capacity"`
	Status      string    `bun:"status,notnull" json:"status"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,notnull" json:"updated_at"`
}
