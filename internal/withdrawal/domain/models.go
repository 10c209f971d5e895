package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// CommittedStatuses reduce the creator's available balance.
var CommittedStatuses = []Status{StatusPending, StatusApproved, StatusCompleted}

type Withdrawal struct {
	ID             snowflake.ID      `gorm:"primaryKey" json:"id"`
	CreatorID      string            `gorm:"not null;index" json:"creator_id"`
	Amount         int64             `gorm:"not null" json:"amount"`
	Fee            int64             `gorm:"not null" json:"fee"`
	NetAmount      int64             `gorm:"not null" json:"net_amount"`
	Method         string            `gorm:"not null" json:"method"`
	Status         Status            `gorm:"not null" json:"status"`
	PaymentDetails datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"payment_details"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Withdrawal) TableName() string { return "withdrawal_requests" }

// PaymentDetails carries the payout destination. Bank methods need the bank
// fields; e-wallet methods need the phone number.
type PaymentDetails struct {
	BankName          string `json:"bank_name,omitempty"`
	AccountNumber     string `json:"account_number,omitempty"`
	AccountHolderName string `json:"account_holder_name"`
	PhoneNumber       string `json:"phone_number,omitempty"`
}

type BankDetails struct {
	BankName          string `json:"bank_name" validate:"required,max=100"`
	AccountNumber     string `json:"account_number" validate:"required,numeric,min=6,max=20"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=150"`
}

type EWalletDetails struct {
	PhoneNumber       string `json:"phone_number" validate:"required,numeric,min=9,max=15"`
	AccountHolderName string `json:"account_holder_name" validate:"required,max=150"`
}

type QuoteRequest struct {
	CreatorID string
	Amount    int64
	MethodID  string
}

type Quote struct {
	CreatorID        string `json:"creator_id"`
	AvailableBalance int64  `json:"available_balance"`
	MinWithdrawal    int64  `json:"min_withdrawal"`
	Amount           int64  `json:"amount"`
	Method           string `json:"method"`
	MethodName       string `json:"method_name"`
	Processing       string `json:"processing"`
	Fee              int64  `json:"fee"`
	NetAmount        int64  `json:"net_amount"`
	Valid            bool   `json:"valid"`
	Reason           string `json:"reason,omitempty"`
}

type Request struct {
	CreatorID string
	Amount    int64
	MethodID  string
	Details   PaymentDetails
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, withdrawal *Withdrawal) error
	SumCommitted(ctx context.Context, db *gorm.DB, creatorID string) (int64, error)
	ListByCreator(ctx context.Context, db *gorm.DB, creatorID string, limit int) ([]Withdrawal, error)
}

// Locker holds a per-creator lease while a withdrawal is checked and
// written.
type Locker interface {
	TryLockWithdrawal(ctx context.Context, creatorID string) (string, bool, error)
	ReleaseWithdrawal(ctx context.Context, creatorID, token string) error
}

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
	Request(ctx context.Context, req Request) (*Withdrawal, error)
	List(ctx context.Context, creatorID string, limit int) ([]Withdrawal, error)
}

// List page bounds. A zero limit selects the default page.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

var (
	ErrInvalidCreator        = errors.New("invalid_creator")
	ErrInvalidMethod         = errors.New("invalid_withdrawal_method")
	ErrInvalidAmount         = errors.New("invalid_withdrawal_amount")
	ErrBelowMinimum          = errors.New("below_minimum_withdrawal")
	ErrInsufficientBalance   = errors.New("insufficient_balance")
	ErrFeeExceedsAmount      = errors.New("fee_exceeds_amount")
	ErrWithdrawalInProgress  = errors.New("withdrawal_in_progress")
	ErrInvalidPaymentDetails = errors.New("invalid_payment_details")
	ErrBalanceUnavailable    = errors.New("balance_unavailable")
	ErrDuplicateWithdrawal   = errors.New("duplicate_withdrawal_id")
	ErrInvalidLimit          = errors.New("invalid_limit")
)

// DetailsError lists the payment detail fields that failed validation.
type DetailsError struct {
	Fields map[string]string
}

func (e *DetailsError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", k, e.Fields[k]))
	}
	return "invalid payment details: " + strings.Join(parts, ",")
}

func (e *DetailsError) Unwrap() error { return ErrInvalidPaymentDetails }
