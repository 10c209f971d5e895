package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
	"gorm.io/gorm"
)

const lessonPurchaseCompleted = "completed"

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.RecordSource {
	return &repo{db: db}
}

func (r *repo) ListBenefitRecords(ctx context.Context, creatorID string, interval *domain.Interval) ([]domain.BenefitRecord, error) {
	var rows []CreatorBenefit
	stmt := r.db.WithContext(ctx).
		Model(&CreatorBenefit{}).
		Where("creator_id = ? AND is_production = ?", creatorID, true)
	if interval != nil {
		if interval.From != nil {
			stmt = stmt.Where("created_at >= ?", interval.From.UTC())
		}
		if interval.To != nil {
			stmt = stmt.Where("created_at <= ?", interval.To.UTC())
		}
	}
	if err := stmt.Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list creator benefits: %w", err)
	}

	records := make([]domain.BenefitRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.BenefitRecord{
			CreatorID:    row.CreatorID,
			Amount:       row.Amount,
			BenefitType:  domain.BenefitType(row.BenefitType),
			CreatedAt:    row.CreatedAt,
			IsProduction: row.IsProduction,
		})
	}
	return records, nil
}

type lessonBreakdownRow struct {
	LessonID          string
	LessonTitle       string
	TransactionDate   time.Time
	BuyerName         *string
	TotalAmount       *int64
	BenefitPercentage *float64
	CreatorNetAmount  *int64
	PlatformFeeAmount *int64
	Status            string
}

func (r *repo) GetLessonEarningsBreakdown(ctx context.Context, creatorID string) ([]domain.LessonSaleRecord, error) {
	var rows []lessonBreakdownRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT lp.lesson_id AS lesson_id,
		        l.title AS lesson_title,
		        lp.created_at AS transaction_date,
		        p.display_name AS buyer_name,
		        lp.amount_paid AS total_amount,
		        lp.benefit_percentage AS benefit_percentage,
		        lp.creator_net_amount AS creator_net_amount,
		        lp.platform_fee_amount AS platform_fee_amount,
		        lp.payment_status AS status
		 FROM lesson_purchases lp
		 JOIN lessons l ON l.id = lp.lesson_id
		 LEFT JOIN profiles p ON p.user_id = lp.user_id
		 WHERE l.creator_id = ? AND lp.payment_status = ? AND lp.is_production = ?
		 ORDER BY lp.created_at ASC, lp.id ASC`,
		creatorID,
		lessonPurchaseCompleted,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("lesson earnings breakdown: %w", err)
	}

	records := make([]domain.LessonSaleRecord, 0, len(rows))
	for _, row := range rows {
		buyer := ""
		if row.BuyerName != nil {
			buyer = *row.BuyerName
		}
		records = append(records, domain.LessonSaleRecord{
			LessonID:          row.LessonID,
			LessonTitle:       row.LessonTitle,
			TransactionDate:   row.TransactionDate,
			BuyerName:         buyer,
			TotalAmount:       row.TotalAmount,
			BenefitPercentage: row.BenefitPercentage,
			CreatorNetAmount:  row.CreatorNetAmount,
			PlatformFeeAmount: row.PlatformFeeAmount,
			Status:            row.Status,
		})
	}
	return records, nil
}

type sequencerEnrollmentRow struct {
	EnrollmentID    string
	SequencerFileID string
	SongTitle       *string
	FileTitle       *string
	SongCreatorID   *string
	BuyerID         string
	Amount          *int64
	PaidAt          *time.Time
	EnrolledAt      time.Time
	PaymentStatus   *string
}

func (r *repo) ListSequencerEnrollments(ctx context.Context) ([]domain.SequencerEnrollmentRecord, error) {
	var rows []sequencerEnrollmentRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT se.id AS enrollment_id,
		        se.sequencer_file_id AS sequencer_file_id,
		        s.title AS song_title,
		        sf.title AS file_title,
		        s.created_by AS song_creator_id,
		        se.user_id AS buyer_id,
		        pay.amount AS amount,
		        pay.paid_at AS paid_at,
		        se.enrolled_at AS enrolled_at,
		        pay.status AS payment_status
		 FROM sequencer_enrollments se
		 LEFT JOIN payments pay ON pay.id = se.payment_id
		 LEFT JOIN sequencer_files sf ON sf.id = se.sequencer_file_id
		 LEFT JOIN songs s ON s.id = sf.song_id
		 WHERE se.is_production = ?
		 ORDER BY se.enrolled_at ASC, se.id ASC`,
		true,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list sequencer enrollments: %w", err)
	}

	records := make([]domain.SequencerEnrollmentRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.SequencerEnrollmentRecord{
			EnrollmentID:    row.EnrollmentID,
			SequencerFileID: row.SequencerFileID,
			SongTitle:       firstNonEmpty(row.SongTitle, row.FileTitle),
			SongCreatorID:   deref(row.SongCreatorID),
			BuyerID:         row.BuyerID,
			Amount:          row.Amount,
			PaidAt:          row.PaidAt,
			EnrolledAt:      row.EnrolledAt,
			PaymentStatus:   deref(row.PaymentStatus),
		})
	}
	return records, nil
}

type discountBenefitRow struct {
	Code                 *string
	OriginalAmount       *int64
	DiscountAmount       *int64
	CreatorBenefitAmount *int64
	CreatedAt            time.Time
}

func (r *repo) ListDiscountBenefits(ctx context.Context, creatorID string) ([]domain.DiscountBenefitRecord, error) {
	var rows []discountBenefitRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT dc.code AS code,
		        b.original_amount AS original_amount,
		        b.discount_amount AS discount_amount,
		        b.creator_benefit_amount AS creator_benefit_amount,
		        b.created_at AS created_at
		 FROM creator_discount_benefits b
		 LEFT JOIN discount_codes dc ON dc.id = b.discount_code_id
		 WHERE b.creator_id = ?
		 ORDER BY b.created_at DESC, b.id DESC`,
		creatorID,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list discount benefits: %w", err)
	}

	records := make([]domain.DiscountBenefitRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.DiscountBenefitRecord{
			Code:                 deref(row.Code),
			OriginalAmount:       row.OriginalAmount,
			DiscountAmount:       row.DiscountAmount,
			CreatorBenefitAmount: row.CreatorBenefitAmount,
			CreatedAt:            row.CreatedAt,
		})
	}
	return records, nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func firstNonEmpty(values ...*string) string {
	for _, value := range values {
		if v := deref(value); v != "" {
			return v
		}
	}
	return ""
}
