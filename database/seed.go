package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"raisefunds/logger"
)

const (
	seedUsername    = "alice"
	seedFid         = uint64(12345)
	seedBeneficiary = "0x0000000000000000000000000000000000000000"
)

type demoDonation struct {
	donor   string
	amount  string
	message string
}

type demoFundraiser struct {
	title       string
	description string
	goal        string
	category    string
	coverImage  string
	donations   []demoDonation
}

var demoFundraisers = []demoFundraiser{
	{
		title:       "Medical aid for local clinic",
		description: "Raising funds to buy medical equipment for the community clinic.",
		goal:        "10.5",
		category:    "Medical",
		coverImage:  "/icons/icon.png",
		donations:   []demoDonation{{donor: "Bob", amount: "1.25", message: "Good luck!"}},
	},
	{
		title:       "Community Garden Project",
		description: "Help us build a community garden to teach sustainable farming.",
		goal:        "5",
		category:    "Community",
		donations:   []demoDonation{{donor: "Carol", amount: "0.5", message: "Happy to help"}},
	},
}

// Seed inserts the demo user with two fundraisers and their donations. The
// donations are recorded as CONFIRMED directly and each fundraiser's cached
// total is set in the same transaction. Nothing is inserted when the demo
// user already exists; it returns whether rows were written.
func Seed(ctx context.Context, db *gorm.DB) (bool, error) {
	seeded := false

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		err := tx.Model(&User{}).Where("username = ?", seedUsername).Count(&existing).Error
		if err != nil {
			return errors.Wrap(err, "Seed: Count")
		}
		if existing > 0 {
			return nil
		}

		username, fid := seedUsername, seedFid
		user := &User{Username: &username, Fid: &fid}
		if err := tx.Create(user).Error; err != nil {
			return errors.Wrap(err, "Seed: Create user")
		}

		now := time.Now()
		for _, sf := range demoFundraisers {
			f := &Fundraiser{
				CreatorUserID:      &user.ID,
				Title:              sf.title,
				Description:        sf.description,
				GoalAmount:         NewAmount(decimal.RequireFromString(sf.goal)),
				BeneficiaryAddress: seedBeneficiary,
				Category:           sf.category,
				CoverImageURL:      sf.coverImage,
			}
			if err := CreateFundraiser(ctx, tx, f); err != nil {
				return errors.Wrap(err, "Seed: CreateFundraiser")
			}

			total := decimal.Zero
			for _, sd := range sf.donations {
				amount := decimal.RequireFromString(sd.amount)
				d := &Donation{
					FundraiserID: f.ID,
					DonorName:    sd.donor,
					Amount:       NewAmount(amount),
					Currency:     f.Currency,
					Message:      sd.message,
					Status:       DonationConfirmed,
					ConfirmedAt:  &now,
				}
				if err := CreateDonation(ctx, tx, d); err != nil {
					return errors.Wrap(err, "Seed: CreateDonation")
				}
				total = total.Add(amount)
			}

			if err := SetTotalRaised(ctx, tx, f.ID, total); err != nil {
				return err
			}
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		logger.Info("Seeded demo data for user %s", seedUsername)
	}

	return seeded, nil
}
