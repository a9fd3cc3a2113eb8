package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func CreateDonation(ctx context.Context, db *gorm.DB, d *Donation) error {
	return db.WithContext(ctx).Create(d).Error
}

func FetchDonation(ctx context.Context, db *gorm.DB, id uint64) (*Donation, error) {
	var d Donation
	err := db.WithContext(ctx).First(&d, id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func FetchDonationByTxHash(ctx context.Context, db *gorm.DB, txHash string) (*Donation, error) {
	var d Donation
	err := db.WithContext(ctx).Where("tx_hash = ?", txHash).First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// MarkDonationConfirmed moves a donation from PENDING to CONFIRMED. It returns
// false when the donation is missing or was not pending, which also covers a
// concurrent confirmation winning the race.
func MarkDonationConfirmed(ctx context.Context, db *gorm.DB, id uint64, confirmedAt time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&Donation{}).
		Where("id = ? AND status = ?", id, DonationPending).
		Updates(map[string]interface{}{
			"status":       DonationConfirmed,
			"confirmed_at": confirmedAt,
		})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "MarkDonationConfirmed")
	}

	return result.RowsAffected == 1, nil
}

// CountConfirmedDonations returns the number of confirmed donations for each
// of the given fundraisers. Fundraisers without donations are absent from the
// result.
func CountConfirmedDonations(ctx context.Context, db *gorm.DB, fundraiserIDs []uint64) (map[uint64]int64, error) {
	counts := make(map[uint64]int64, len(fundraiserIDs))
	if len(fundraiserIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		FundraiserID uint64
		Count        int64
	}
	err := db.WithContext(ctx).
		Model(&Donation{}).
		Select("fundraiser_id, COUNT(*) AS count").
		Where("fundraiser_id IN ? AND status = ?", fundraiserIDs, DonationConfirmed).
		Group("fundraiser_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "CountConfirmedDonations")
	}

	for _, row := range rows {
		counts[row.FundraiserID] = row.Count
	}

	return counts, nil
}

// SumConfirmedDonations returns the ledger total of confirmed donations per
// fundraiser.
func SumConfirmedDonations(ctx context.Context, db *gorm.DB) (map[uint64]decimal.Decimal, error) {
	if isSQLite(db) {
		return sumConfirmedDonationsInGo(ctx, db)
	}

	var rows []struct {
		FundraiserID uint64
		Total        decimal.Decimal
	}
	err := db.WithContext(ctx).
		Model(&Donation{}).
		Select("fundraiser_id, SUM(amount) AS total").
		Where("status = ?", DonationConfirmed).
		Group("fundraiser_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "SumConfirmedDonations")
	}

	totals := make(map[uint64]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.FundraiserID] = row.Total
	}

	return totals, nil
}

// sumConfirmedDonationsInGo adds up text-stored amounts exactly; SQLite's SUM
// would convert them to floating point.
func sumConfirmedDonationsInGo(ctx context.Context, db *gorm.DB) (map[uint64]decimal.Decimal, error) {
	var rows []struct {
		FundraiserID uint64
		Amount       Amount
	}
	err := db.WithContext(ctx).
		Model(&Donation{}).
		Select("fundraiser_id, amount").
		Where("status = ?", DonationConfirmed).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "SumConfirmedDonations")
	}

	totals := make(map[uint64]decimal.Decimal)
	for _, row := range rows {
		totals[row.FundraiserID] = totals[row.FundraiserID].Add(row.Amount.Decimal)
	}

	return totals, nil
}
