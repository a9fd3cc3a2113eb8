package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"raisefunds/logger"
)

// RunTotalsReconciler periodically rewrites cached fundraiser totals that have
// drifted from the donation ledger. It returns when ctx is cancelled.
func RunTotalsReconciler(ctx context.Context, db *gorm.DB, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		logger.Debug("starting ReconcileTotals iteration")

		startTime := time.Now()
		fixed, err := ReconcileTotals(ctx, db)
		if err == nil {
			logger.Debug("finished ReconcileTotals iteration in %v, %d totals corrected", time.Since(startTime), fixed)
		} else if ctx.Err() == nil {
			logger.Error("ReconcileTotals error: %s", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ReconcileTotals compares every fundraiser's cached total with the sum of its
// confirmed donations and overwrites the ones that differ. It returns the
// number of corrected fundraisers.
func ReconcileTotals(ctx context.Context, db *gorm.DB) (int, error) {
	ledger, err := SumConfirmedDonations(ctx, db)
	if err != nil {
		return 0, errors.Wrap(err, "Failed to sum the donation ledger")
	}

	var cached []struct {
		ID          uint64
		TotalRaised decimal.Decimal
	}
	err = db.WithContext(ctx).Model(&Fundraiser{}).Select("id, total_raised").Scan(&cached).Error
	if err != nil {
		return 0, errors.Wrap(err, "Failed to read cached totals")
	}

	fixed := 0
	for _, f := range cached {
		expected, ok := ledger[f.ID]
		if !ok {
			expected = decimal.Zero
		}
		if expected.Equal(f.TotalRaised) {
			continue
		}

		err = SetTotalRaised(ctx, db, f.ID, expected)
		if err != nil {
			return fixed, errors.Wrapf(err, "Failed to correct total of fundraiser %d", f.ID)
		}

		logger.Warn("Fundraiser %d cached total %s drifted from ledger %s, corrected", f.ID, f.TotalRaised, expected)
		fixed++
	}

	return fixed, nil
}
