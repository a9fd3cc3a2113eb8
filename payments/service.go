// Package payments records donations: off-chain pledges that are created
// pending and confirmed later, and on-chain payments that are verified
// against the chain and recorded as confirmed right away.
package payments

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"raisefunds/database"
	"raisefunds/logger"
)

const anonymousDonor = "Anonymous"

type DonationRequest struct {
	Amount        decimal.Decimal
	DonorName     string
	DonorAddress  string
	DonorUsername string
	Message       string
}

type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// CreateDonation records a pending donation. The fundraiser's cached total is
// left untouched until the donation is confirmed.
func (s *Service) CreateDonation(ctx context.Context, fundraiserID uint64, req DonationRequest) (*database.Donation, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.Wrap(ErrValidation, "amount must be positive")
	}

	fundraiser, err := database.FetchFundraiser(ctx, s.db, fundraiserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "fundraiser %d", fundraiserID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "database.FetchFundraiser")
	}

	donorName := strings.TrimSpace(req.DonorName)
	if donorName == "" {
		donorName = anonymousDonor
	}

	donation := &database.Donation{
		FundraiserID:  fundraiser.ID,
		DonorName:     donorName,
		DonorAddress:  strings.TrimSpace(req.DonorAddress),
		DonorUsername: strings.TrimSpace(req.DonorUsername),
		Amount:        database.NewAmount(req.Amount),
		Currency:      fundraiser.Currency,
		Message:       req.Message,
		Status:        database.DonationPending,
	}

	err = database.CreateDonation(ctx, s.db, donation)
	if err != nil {
		return nil, errors.Wrap(err, "database.CreateDonation")
	}

	logger.Info("Created pending donation %d of %s %s to fundraiser %d",
		donation.ID, donation.Amount, donation.Currency, fundraiser.ID)

	return donation, nil
}

// ConfirmDonation moves a pending donation to CONFIRMED and adds its amount
// to the fundraiser's cached total, both in one transaction. Missing and
// already confirmed donations fail with ErrInvalidState.
func (s *Service) ConfirmDonation(ctx context.Context, donationID uint64) (*database.Donation, error) {
	var donation *database.Donation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		donation, err = database.FetchDonation(ctx, tx, donationID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrapf(ErrInvalidState, "donation %d not found", donationID)
		}
		if err != nil {
			return errors.Wrap(err, "database.FetchDonation")
		}

		if donation.Status != database.DonationPending {
			return errors.Wrapf(ErrInvalidState, "donation %d is %s", donationID, donation.Status)
		}

		confirmedAt := s.now()
		ok, err := database.MarkDonationConfirmed(ctx, tx, donationID, confirmedAt)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(ErrInvalidState, "donation %d is no longer pending", donationID)
		}

		err = database.IncrementTotalRaised(ctx, tx, donation.FundraiserID, donation.Amount.Decimal)
		if err != nil {
			return errors.Wrapf(err, "fundraiser %d", donation.FundraiserID)
		}

		donation.Status = database.DonationConfirmed
		donation.ConfirmedAt = &confirmedAt

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Confirmed donation %d, fundraiser %d total increased by %s",
		donation.ID, donation.FundraiserID, donation.Amount)

	return donation, nil
}
