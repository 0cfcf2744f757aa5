package reservation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DucSonNguyen1987/Zengest-backend-sub000/internal/reservation"
)

type fakeNumberSource struct {
	count int
	taken map[string]bool
}

func (f *fakeNumberSource) CountByRestaurantAndDay(ctx context.Context, restaurantID string, day time.Time) (int, error) {
	return f.count, nil
}

func (f *fakeNumberSource) NumberExists(ctx context.Context, number string) (bool, error) {
	return f.taken[number], nil
}

func TestGenerateNumber_SequencesFromDailyCount(t *testing.T) {
	day := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeNumberSource{count: 41, taken: map[string]bool{}}

	number, err := reservation.GenerateNumber(context.Background(), source, "rest-1", day)
	require.NoError(t, err)
	assert.Equal(t, "RES-20260901-0042", number)
}

func TestGenerateNumber_BumpsOnCollision(t *testing.T) {
	day := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	source := &fakeNumberSource{count: 0, taken: map[string]bool{
		"RES-20260901-0001": true,
		"RES-20260901-0002": true,
	}}

	number, err := reservation.GenerateNumber(context.Background(), source, "rest-1", day)
	require.NoError(t, err)
	assert.Equal(t, "RES-20260901-0003", number)
}

func TestGenerateNumber_FallsBackToRandomSuffix(t *testing.T) {
	day := time.Date(2026, 9, 1, 19, 0, 0, 0, time.UTC)
	taken := map[string]bool{}
	for _, n := range []string{"0001", "0002", "0003", "0004", "0005"} {
		taken["RES-20260901-"+n] = true
	}
	source := &fakeNumberSource{count: 0, taken: taken}

	number, err := reservation.GenerateNumber(context.Background(), source, "rest-1", day)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(number, "RES-20260901-"), "got %s", number)

	suffix := strings.TrimPrefix(number, "RES-20260901-")
	assert.Len(t, suffix, 6)
	assert.Equal(t, strings.ToUpper(suffix), suffix)
}
