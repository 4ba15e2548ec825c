package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/testsupport/seeds"
)

func TestMemberRepository_GetByID(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewMemberRepository(testDB.Tx())
	seeder := seeds.New(testDB.Tx())
	ctx := context.Background()

	t.Run("returns seeded member", func(t *testing.T) {
		registered := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		seeded, err := seeder.Member().
			WithRegisteredAt(registered).
			WithGender("M").
			WithHomeBranch(7).
			Insert()
		require.NoError(t, err)

		m, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, seeded.ID, m.ID)
		assert.True(t, registered.Equal(m.RegisteredAt))
		assert.Equal(t, "M", m.Gender)
		assert.Equal(t, int64(7), m.HomeBranchID)
		require.NotNil(t, m.BirthDate)
	})

	t.Run("keeps missing birth date nil", func(t *testing.T) {
		seeded, err := seeder.Member().WithoutBirthDate().Insert()
		require.NoError(t, err)

		m, err := repo.GetByID(ctx, seeded.ID)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Nil(t, m.BirthDate)
	})

	t.Run("returns nil without error for unknown member", func(t *testing.T) {
		m, err := repo.GetByID(ctx, testsupport.UniqueMemberID())
		require.NoError(t, err)
		assert.Nil(t, m)
	})
}

func TestMemberRepository_ListActiveIDs(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewMemberRepository(testDB.Tx())
	seeder := seeds.New(testDB.Tx())
	ctx := context.Background()

	onDate := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	active, err := seeder.Member().Insert()
	require.NoError(t, err)
	_, err = seeder.Contract().
		WithMemberID(active.ID).
		WithDates(onDate.AddDate(0, -3, 0), onDate.AddDate(0, 3, 0)).
		Insert()
	require.NoError(t, err)

	lapsed, err := seeder.Member().Insert()
	require.NoError(t, err)
	_, err = seeder.Contract().
		WithMemberID(lapsed.ID).
		WithDates(onDate.AddDate(0, -8, 0), onDate.AddDate(0, -2, 0)).
		Insert()
	require.NoError(t, err)

	ids, err := repo.ListActiveIDs(ctx, onDate)
	require.NoError(t, err)

	assert.Contains(t, ids, active.ID)
	assert.NotContains(t, ids, lapsed.ID)
}
