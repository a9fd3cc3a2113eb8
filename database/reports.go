package database

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func CreateReport(ctx context.Context, db *gorm.DB, r *Report) error {
	if r.Status == "" {
		r.Status = ReportPending
	}
	return db.WithContext(ctx).Create(r).Error
}

// ListReports returns all reports with their fundraiser, newest first.
func ListReports(ctx context.Context, db *gorm.DB) ([]Report, error) {
	reports := make([]Report, 0)
	err := db.WithContext(ctx).
		Preload("Fundraiser").
		Order("created_at DESC").Order("id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, errors.Wrap(err, "ListReports")
	}

	return reports, nil
}

func SetReportStatus(ctx context.Context, db *gorm.DB, id uint64, status ReportStatus) (*Report, error) {
	var r Report
	err := db.WithContext(ctx).First(&r, id).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).Model(&r).Update("status", status).Error
	if err != nil {
		return nil, errors.Wrap(err, "SetReportStatus")
	}
	r.Status = status

	return &r, nil
}

// ResolvePendingReports marks every pending report of a fundraiser as
// resolved and returns how many were changed.
func ResolvePendingReports(ctx context.Context, db *gorm.DB, fundraiserID uint64) (int64, error) {
	result := db.WithContext(ctx).
		Model(&Report{}).
		Where("fundraiser_id = ? AND status = ?", fundraiserID, ReportPending).
		Update("status", ReportResolved)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "ResolvePendingReports")
	}

	return result.RowsAffected, nil
}
