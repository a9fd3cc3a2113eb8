package database

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SortNewest   = "newest"
	SortTrending = "trending"
)

// FundraiserFilter narrows the public fundraiser listing.
type FundraiserFilter struct {
	Category string // exact match
	Search   string // case-insensitive substring of title or description
	Sort     string // SortNewest (default) or SortTrending
}

func CreateFundraiser(ctx context.Context, db *gorm.DB, f *Fundraiser) error {
	if f.Status == "" {
		f.Status = FundraiserActive
	}
	if f.Currency == "" {
		f.Currency = DefaultCurrency
	}
	f.TotalRaised = NewAmount(decimal.Zero)

	return db.WithContext(ctx).Create(f).Error
}

func FetchFundraiser(ctx context.Context, db *gorm.DB, id uint64) (*Fundraiser, error) {
	var f Fundraiser
	err := db.WithContext(ctx).First(&f, id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FetchFundraiserDetails loads a fundraiser together with its creator,
// donations and updates, newest first.
func FetchFundraiserDetails(ctx context.Context, db *gorm.DB, id uint64) (*Fundraiser, error) {
	var f Fundraiser
	err := db.WithContext(ctx).
		Preload("Creator").
		Preload("Donations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC, id DESC")
		}).
		First(&f, id).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFundraisers returns the public listing; hidden fundraisers are never
// included.
func ListFundraisers(ctx context.Context, db *gorm.DB, filter FundraiserFilter) ([]Fundraiser, error) {
	fundraisers := make([]Fundraiser, 0)
	err := listFundraisersQuery(db.WithContext(ctx), filter).Find(&fundraisers).Error
	if err != nil {
		return nil, errors.Wrap(err, "ListFundraisers")
	}

	return fundraisers, nil
}

func listFundraisersQuery(db *gorm.DB, filter FundraiserFilter) *gorm.DB {
	query := db.Model(&Fundraiser{}).Where("status <> ?", FundraiserHidden)

	if filter.Category != "" {
		if isSQLite(db) {
			query = query.Where("category = ?", filter.Category)
		} else {
			// MySQL compares with the column collation, which ignores case.
			query = query.Where("CAST(category AS BINARY) = ?", filter.Category)
		}
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(description) LIKE ? ESCAPE '"+likeEscape+"'",
			pattern, pattern,
		)
	}

	if filter.Sort == SortTrending {
		if isSQLite(db) {
			query = query.Order("CAST(total_raised AS REAL) DESC")
		} else {
			query = query.Order("total_raised DESC")
		}
	}

	return query.Order("created_at DESC").Order("id DESC")
}

// likeEscape is not a backslash because MySQL string literals treat that as
// an escape character of their own.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// escapeLike makes s match itself literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func ListFundraisersByCreator(ctx context.Context, db *gorm.DB, userID uint64) ([]Fundraiser, error) {
	fundraisers := make([]Fundraiser, 0)
	err := db.WithContext(ctx).
		Where("creator_user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&fundraisers).Error
	if err != nil {
		return nil, errors.Wrap(err, "ListFundraisersByCreator")
	}

	return fundraisers, nil
}

// UpdateFundraiserStatus overwrites the status unconditionally; no transition
// rules are applied.
func UpdateFundraiserStatus(ctx context.Context, db *gorm.DB, id uint64, status FundraiserStatus) (*Fundraiser, error) {
	var f *Fundraiser
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		f, err = FetchFundraiser(ctx, tx, id)
		if err != nil {
			return err
		}

		err = tx.Model(f).Update("status", status).Error
		if err != nil {
			return errors.Wrap(err, "UpdateFundraiserStatus")
		}
		f.Status = status

		return nil
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

// IncrementTotalRaised adds amount to the cached total. On MySQL the addition
// happens in SQL, so concurrent increments never overwrite each other. SQLite
// stores amounts as text, so the total is read and rewritten inside a
// transaction; its single connection serialises those writers.
func IncrementTotalRaised(ctx context.Context, db *gorm.DB, id uint64, amount decimal.Decimal) error {
	if isSQLite(db) {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			f, err := FetchFundraiser(ctx, tx, id)
			if err != nil {
				return err
			}
			return SetTotalRaised(ctx, tx, id, f.TotalRaised.Add(amount))
		})
	}

	result := db.WithContext(ctx).
		Model(&Fundraiser{}).
		Where("id = ?", id).
		Update("total_raised", gorm.Expr("total_raised + CAST(? AS "+amountColumnType+")", amount.String()))
	if result.Error != nil {
		return errors.Wrap(result.Error, "IncrementTotalRaised")
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func SetTotalRaised(ctx context.Context, db *gorm.DB, id uint64, total decimal.Decimal) error {
	err := db.WithContext(ctx).
		Model(&Fundraiser{}).
		Where("id = ?", id).
		Update("total_raised", total).Error
	if err != nil {
		return errors.Wrap(err, "SetTotalRaised")
	}

	return nil
}
