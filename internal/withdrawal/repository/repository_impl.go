package repository

import (
	"context"
	"fmt"

	"github.com/smallbiznis/royalty/internal/withdrawal/domain"
	dbpkg "github.com/smallbiznis/royalty/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, withdrawal *domain.Withdrawal) error {
	err := db.WithContext(ctx).Create(withdrawal).Error
	if dbpkg.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateWithdrawal, withdrawal.ID)
	}
	return err
}

func (r *repo) SumCommitted(ctx context.Context, db *gorm.DB, creatorID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM withdrawal_requests
		 WHERE creator_id = ? AND status IN ?`,
		creatorID,
		domain.CommittedStatuses,
	).Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repo) ListByCreator(ctx context.Context, db *gorm.DB, creatorID string, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 50
	}
	var withdrawals []domain.Withdrawal
	err := db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&withdrawals).Error
	if err != nil {
		return nil, err
	}
	return withdrawals, nil
}
