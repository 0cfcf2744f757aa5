package tables_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/models"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/tables"
)

func setupGateway(t *testing.T) *tables.Gateway {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.FloorPlan)(nil),
		(*models.Table)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
	}

	now := time.Now()
	plans := []models.FloorPlan{
		{ID: "plan-1", RestaurantID: "rest-1", Name: "Main room", CreatedAt: now},
		{ID: "plan-2", RestaurantID: "rest-2", Name: "Terrace", CreatedAt: now},
	}
	if _, err := bunDB.NewInsert().Model(&plans).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed floor plans: %v", err)
	}
	tbls := []models.Table{
		{ID: "table-1", FloorPlanID: "plan-1", Number: "T1", Capacity: 4, Status: models.TableAvailable, CreatedAt: now, UpdatedAt: now},
		{ID: "table-2", FloorPlanID: "plan-2", Number: "T2", Capacity: 2, Status: models.TableAvailable, CreatedAt: now, UpdatedAt: now},
	}
	if _, err := bunDB.NewInsert().Model(&tbls).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed tables: %v", err)
	}

	t.Cleanup(func() { bunDB.Close() })
	return tables.NewGateway(bunDB)
}

func TestFindTable(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	table, err := gw.FindTable(ctx, "rest-1", "plan-1", "table-1")
	require.NoError(t, err)
	assert.Equal(t, "T1", table.Number)
	assert.Equal(t, 4, table.Capacity)
}

func TestFindTable_ForeignFloorPlanNotLeaked(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	// plan-2 belongs to rest-2: asking for it under rest-1 is a not-found,
	// even though the plan and its table exist.
	_, err := gw.FindTable(ctx, "rest-1", "plan-2", "table-2")
	require.Error(t, err)
	var notFound *reservation.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "floor plan", notFound.Resource)
}

func TestFindTable_TableOutsidePlan(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	_, err := gw.FindTable(ctx, "rest-1", "plan-1", "table-2")
	require.Error(t, err)
	var notFound *reservation.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "table", notFound.Resource)
}

func TestSetTableStatus(t *testing.T) {
	gw := setupGateway(t)
	ctx := context.Background()

	require.NoError(t, gw.SetTableStatus(ctx, "table-1", models.TableOccupied))

	table, err := gw.FindTable(ctx, "rest-1", "plan-1", "table-1")
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)

	err = gw.SetTableStatus(ctx, "missing", models.TableCleaning)
	var notFound *reservation.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
