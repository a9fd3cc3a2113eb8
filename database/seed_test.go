package database

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seeded, err := Seed(ctx, db)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = Seed(ctx, db)
	require.NoError(t, err)
	assert.False(t, seeded, "seeding twice must not duplicate rows")

	var users []User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", *users[0].Username)
	assert.Equal(t, uint64(12345), *users[0].Fid)

	list, err := ListFundraisers(ctx, db, FundraiserFilter{Category: "Medical"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Medical aid for local clinic", list[0].Title)
	assert.Equal(t, "/icons/icon.png", list[0].CoverImageURL)

	totals := map[string]string{
		"Medical aid for local clinic": "1.25",
		"Community Garden Project":     "0.5",
	}
	all, err := ListFundraisers(ctx, db, FundraiserFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, f := range all {
		assert.Equal(t, users[0].ID, *f.CreatorUserID)
		assert.True(t, decimal.RequireFromString(totals[f.Title]).Equal(f.TotalRaised.Decimal), "%s: %s", f.Title, f.TotalRaised)

		details, err := FetchFundraiserDetails(ctx, db, f.ID)
		require.NoError(t, err)
		require.Len(t, details.Donations, 1)
		assert.Equal(t, DonationConfirmed, details.Donations[0].Status)
		assert.NotNil(t, details.Donations[0].ConfirmedAt)
	}

	fixed, err := ReconcileTotals(ctx, db)
	require.NoError(t, err)
	assert.Zero(t, fixed, "seeded totals must match the ledger")
}

func TestConnectAndInitializeSeeds(t *testing.T) {
	cfg := TestDBConfig(t.Name())
	cfg.SeedAtStart = true

	db, err := ConnectAndInitialize(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	var count int64
	require.NoError(t, db.Model(&Donation{}).Where("status = ?", DonationConfirmed).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
