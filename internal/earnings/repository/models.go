package repository

import "time"

// Table models mirror the platform tables this service reads. Writes happen
// elsewhere; the models exist for migrations in tests and typed scans.

type CreatorBenefit struct {
	ID           string `gorm:"primaryKey"`
	CreatorID    string `gorm:"index"`
	Amount       *int64
	BenefitType  string
	IsProduction bool
	CreatedAt    time.Time
}

func (CreatorBenefit) TableName() string { return "creator_benefits" }

type Profile struct {
	UserID      string `gorm:"primaryKey"`
	DisplayName string
}

func (Profile) TableName() string { return "profiles" }

type Lesson struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	CreatorID string `gorm:"index"`
	CreatedAt time.Time
}

func (Lesson) TableName() string { return "lessons" }

type LessonPurchase struct {
	ID                string `gorm:"primaryKey"`
	LessonID          string `gorm:"index"`
	UserID            string
	AmountPaid        *int64
	BenefitPercentage *float64
	CreatorNetAmount  *int64
	PlatformFeeAmount *int64
	PaymentStatus     string
	IsProduction      bool
	CreatedAt         time.Time
}

func (LessonPurchase) TableName() string { return "lesson_purchases" }

type Song struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	CreatedBy string `gorm:"index"`
}

func (Song) TableName() string { return "songs" }

type SequencerFile struct {
	ID     string `gorm:"primaryKey"`
	SongID string
	Title  string
}

func (SequencerFile) TableName() string { return "sequencer_files" }

type Payment struct {
	ID     string `gorm:"primaryKey"`
	Amount *int64
	Status string
	PaidAt *time.Time
}

func (Payment) TableName() string { return "payments" }

type SequencerEnrollment struct {
	ID              string `gorm:"primaryKey"`
	SequencerFileID string
	UserID          string
	PaymentID       *string
	IsProduction    bool
	EnrolledAt      time.Time
}

func (SequencerEnrollment) TableName() string { return "sequencer_enrollments" }

type DiscountCode struct {
	ID        string `gorm:"primaryKey"`
	Code      string
	CreatorID string
}

func (DiscountCode) TableName() string { return "discount_codes" }

type CreatorDiscountBenefit struct {
	ID                   string `gorm:"primaryKey"`
	CreatorID            string `gorm:"index"`
	DiscountCodeID       string
	OriginalAmount       *int64
	DiscountAmount       *int64
	CreatorBenefitAmount *int64
	CreatedAt            time.Time
}

func (CreatorDiscountBenefit) TableName() string { return "creator_discount_benefits" }

// Models lists every table read by the record source.
func Models() []interface{} {
	return []interface{}{
		&CreatorBenefit{},
		&Profile{},
		&Lesson{},
		&LessonPurchase{},
		&Song{},
		&SequencerFile{},
		&Payment{},
		&SequencerEnrollment{},
		&DiscountCode{},
		&CreatorDiscountBenefit{},
	}
}
