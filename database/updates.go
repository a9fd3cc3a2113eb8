package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func CreateUpdate(ctx context.Context, db *gorm.DB, u *Update) error {
	return db.WithContext(ctx).Create(u).Error
}

func ListUpdates(ctx context.Context, db *gorm.DB, fundraiserID uint64) ([]Update, error) {
	updates := make([]Update, 0)
	err := db.WithContext(ctx).
		Where("fundraiser_id = ?", fundraiserID).
		Order("created_at DESC").Order("id DESC").
		Find(&updates).Error
	if err != nil {
		return nil, errors.Wrap(err, "ListUpdates")
	}

	return updates, nil
}
