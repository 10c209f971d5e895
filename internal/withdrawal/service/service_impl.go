package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/config"
	earningsdomain "github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/observability/metrics"
	"github.com/smallbiznis/royalty/internal/providers/email"
	"github.com/smallbiznis/royalty/internal/ratelimit"
	"github.com/smallbiznis/royalty/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Earnings earningsdomain.Service
	Policy   *config.EarningsConfigHolder
	Config   config.Config
	Clock    clock.Clock
	Limiter  *ratelimit.EarningsLimiter `optional:"true"`
	Email    email.Provider             `optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	earnings  earningsdomain.Service
	policy    *config.EarningsConfigHolder
	clock     clock.Clock
	limiter   domain.Locker
	email     email.Provider
	metrics   *metrics.Metrics
	financeTo []string
	validate  *validator.Validate
}

var _ domain.Locker = (*ratelimit.EarningsLimiter)(nil)

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("withdrawal.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		earnings:  p.Earnings,
		policy:    p.Policy,
		clock:     p.Clock,
		limiter:   p.Limiter,
		email:     p.Email,
		metrics:   p.Metrics,
		financeTo: email.ParseRecipients(p.Config.Email.FinanceTo),
		validate:  newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error) {
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return domain.Quote{}, domain.ErrInvalidCreator
	}

	policy := s.policy.Get()
	method, ok := policy.Method(req.MethodID)
	if !ok {
		return domain.Quote{}, domain.ErrInvalidMethod
	}

	available, err := s.availableBalance(ctx, creatorID)
	if err != nil {
		return domain.Quote{}, err
	}

	quote := domain.Quote{
		CreatorID:        creatorID,
		AvailableBalance: available,
		MinWithdrawal:    policy.MinWithdrawal,
		Amount:           req.Amount,
		Method:           method.ID,
		MethodName:       method.Name,
		Processing:       method.Processing,
		Fee:              method.Fee,
		NetAmount:        req.Amount - method.Fee,
		Valid:            true,
	}
	if quote.NetAmount < 0 {
		quote.NetAmount = 0
	}
	if err := checkAmount(req.Amount, available, policy.MinWithdrawal, method.Fee); err != nil {
		quote.Valid = false
		quote.Reason = err.Error()
	}
	return quote, nil
}

func (s *Service) Request(ctx context.Context, req domain.Request) (*domain.Withdrawal, error) {
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}

	policy := s.policy.Get()
	method, ok := policy.Method(req.MethodID)
	if !ok {
		s.metrics.RecordWithdrawal("unknown", "rejected")
		return nil, domain.ErrInvalidMethod
	}
	if req.Amount <= 0 {
		s.metrics.RecordWithdrawal(method.ID, "rejected")
		return nil, domain.ErrInvalidAmount
	}

	details, err := s.validateDetails(method, req.Details)
	if err != nil {
		s.metrics.RecordWithdrawal(method.ID, "rejected")
		return nil, err
	}

	token, acquired, err := s.limiter.TryLockWithdrawal(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.metrics.RecordWithdrawal(method.ID, "conflict")
		return nil, domain.ErrWithdrawalInProgress
	}
	defer func() {
		if err := s.limiter.ReleaseWithdrawal(context.WithoutCancel(ctx), creatorID, token); err != nil {
			s.log.Warn("failed to release withdrawal lock", zap.String("creator_id", creatorID), zap.Error(err))
		}
	}()

	available, err := s.availableBalance(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if err := checkAmount(req.Amount, available, policy.MinWithdrawal, method.Fee); err != nil {
		s.metrics.RecordWithdrawal(method.ID, "rejected")
		return nil, err
	}

	now := s.clock.Now().UTC()
	withdrawal := &domain.Withdrawal{
		ID:             s.genID.Generate(),
		CreatorID:      creatorID,
		Amount:         req.Amount,
		Fee:            method.Fee,
		NetAmount:      req.Amount - method.Fee,
		Method:         method.ID,
		Status:         domain.StatusPending,
		PaymentDetails: details,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.repo.Insert(ctx, s.db, withdrawal)
	if errors.Is(err, domain.ErrDuplicateWithdrawal) {
		s.log.Warn("withdrawal id collision, regenerating", zap.String("withdrawal_id", withdrawal.ID.String()))
		withdrawal.ID = s.genID.Generate()
		err = s.repo.Insert(ctx, s.db, withdrawal)
	}
	if err != nil {
		s.log.Error("failed to insert withdrawal", zap.String("creator_id", creatorID), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordWithdrawal(method.ID, "accepted")
	s.log.Info("withdrawal requested",
		zap.String("creator_id", creatorID),
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("method", method.ID),
		zap.Int64("amount", withdrawal.Amount),
	)
	s.notifyFinance(ctx, withdrawal, method)

	return withdrawal, nil
}

// List returns the newest withdrawals first. Limits above MaxListLimit are
// clamped.
func (s *Service) List(ctx context.Context, creatorID string, limit int) ([]domain.Withdrawal, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}
	switch {
	case limit < 0:
		return nil, domain.ErrInvalidLimit
	case limit == 0:
		limit = domain.DefaultListLimit
	case limit > domain.MaxListLimit:
		limit = domain.MaxListLimit
	}
	return s.repo.ListByCreator(ctx, s.db, creatorID, limit)
}

// availableBalance is all-time net earnings minus withdrawals that are
// pending or already paid out.
func (s *Service) availableBalance(ctx context.Context, creatorID string) (int64, error) {
	resp, err := s.earnings.GetRevenueSummary(ctx, earningsdomain.SummaryRequest{
		CreatorID: creatorID,
		Period:    earningsdomain.PeriodAll,
	})
	if err != nil {
		return 0, err
	}
	if len(resp.DegradedStreams) > 0 {
		return 0, domain.ErrBalanceUnavailable
	}

	committed, err := s.repo.SumCommitted(ctx, s.db, creatorID)
	if err != nil {
		return 0, err
	}

	available := resp.Summary.TotalNet - committed
	if available < 0 {
		available = 0
	}
	return available, nil
}

func checkAmount(amount, available, minimum, fee int64) error {
	switch {
	case amount <= 0:
		return domain.ErrInvalidAmount
	case amount < minimum:
		return domain.ErrBelowMinimum
	case amount > available:
		return domain.ErrInsufficientBalance
	case fee >= amount:
		return domain.ErrFeeExceedsAmount
	}
	return nil
}

func (s *Service) validateDetails(method config.WithdrawalMethod, in domain.PaymentDetails) (datatypes.JSONMap, error) {
	holder := strings.TrimSpace(in.AccountHolderName)

	var (
		target  any
		details datatypes.JSONMap
	)
	switch method.Kind {
	case config.WithdrawalKindBank:
		bank := domain.BankDetails{
			BankName:          strings.TrimSpace(in.BankName),
			AccountNumber:     strings.TrimSpace(in.AccountNumber),
			AccountHolderName: holder,
		}
		target = bank
		details = datatypes.JSONMap{
			"bank_name":           bank.BankName,
			"account_number":      bank.AccountNumber,
			"account_holder_name": bank.AccountHolderName,
		}
	case config.WithdrawalKindEWallet:
		wallet := domain.EWalletDetails{
			PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
			AccountHolderName: holder,
		}
		target = wallet
		details = datatypes.JSONMap{
			"phone_number":        wallet.PhoneNumber,
			"account_holder_name": wallet.AccountHolderName,
		}
	default:
		return nil, domain.ErrInvalidMethod
	}

	if err := s.validate.Struct(target); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return nil, err
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		return nil, &domain.DetailsError{Fields: fields}
	}
	return details, nil
}

func (s *Service) notifyFinance(ctx context.Context, w *domain.Withdrawal, method config.WithdrawalMethod) {
	if s.email == nil || len(s.financeTo) == 0 {
		return
	}

	data := map[string]any{
		"withdrawal_id": w.ID.String(),
		"creator_id":    w.CreatorID,
		"method_name":   method.Name,
		"amount":        w.Amount,
		"fee":           w.Fee,
		"net_amount":    w.NetAmount,
		"requested_at":  w.CreatedAt.Format(time.RFC3339),
	}
	for k, v := range w.PaymentDetails {
		data[k] = v
	}

	if err := s.email.SendTemplate(ctx, s.financeTo, email.TemplateWithdrawalRequested, data); err != nil {
		s.log.Warn("failed to notify finance",
			zap.String("withdrawal_id", w.ID.String()),
			zap.Error(err),
		)
	}
}
