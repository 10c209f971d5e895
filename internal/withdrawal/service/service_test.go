package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/config"
	earningsdomain "github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/withdrawal/domain"
	"github.com/smallbiznis/royalty/internal/withdrawal/repository"
	"github.com/smallbiznis/royalty/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockEarnings struct {
	earningsdomain.Service
	mock.Mock
}

func (m *mockEarnings) GetRevenueSummary(ctx context.Context, req earningsdomain.SummaryRequest) (earningsdomain.SummaryResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(earningsdomain.SummaryResponse), args.Error(1)
}

type sentMail struct {
	to       []string
	template string
	data     map[string]any
}

type recordingEmail struct {
	sent []sentMail
	err  error
}

func (r *recordingEmail) Send(ctx context.Context, to []string, subject, body string) error {
	return r.err
}

func (r *recordingEmail) SendTemplate(ctx context.Context, to []string, name string, data any) error {
	r.sent = append(r.sent, sentMail{to: to, template: name, data: data.(map[string]any)})
	return r.err
}

type fixture struct {
	svc      domain.Service
	earnings *mockEarnings
	mail     *recordingEmail
}

func newFixture(t *testing.T, totalNet int64) fixture {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Withdrawal{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	earnings := &mockEarnings{}
	earnings.On("GetRevenueSummary", mock.Anything, earningsdomain.SummaryRequest{
		CreatorID: "c1",
		Period:    earningsdomain.PeriodAll,
	}).Return(earningsdomain.SummaryResponse{
		CreatorID: "c1",
		Summary:   earningsdomain.RevenueSummary{TotalNet: totalNet},
	}, nil)

	mail := &recordingEmail{}
	svc := NewService(Params{
		DB:       conn,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Repo:     repository.Provide(),
		Earnings: earnings,
		Policy:   config.NewStaticEarningsConfigHolder(config.DefaultEarningsConfig()),
		Config:   config.Config{Email: config.EmailConfig{FinanceTo: "finance@example.com, ops@example.com"}},
		Clock:    clock.NewFakeClock(time.Date(2024, 5, 20, 3, 0, 0, 0, time.UTC)),
		Email:    mail,
	})
	return fixture{svc: svc, earnings: earnings, mail: mail}
}

var bankDetails = domain.PaymentDetails{
	BankName:          "BCA",
	AccountNumber:     "1234567890",
	AccountHolderName: "Budi Santoso",
}

func TestQuote(t *testing.T) {
	f := newFixture(t, 500_000)

	q, err := f.svc.Quote(context.Background(), domain.QuoteRequest{CreatorID: "c1", Amount: 100_000, MethodID: "BANK"})
	require.NoError(t, err)
	assert.True(t, q.Valid)
	assert.Equal(t, int64(500_000), q.AvailableBalance)
	assert.Equal(t, int64(2_500), q.Fee)
	assert.Equal(t, int64(97_500), q.NetAmount)
	assert.Equal(t, "Bank Transfer", q.MethodName)

	q, err = f.svc.Quote(context.Background(), domain.QuoteRequest{CreatorID: "c1", Amount: 10_000, MethodID: "ovo"})
	require.NoError(t, err)
	assert.False(t, q.Valid)
	assert.Equal(t, domain.ErrBelowMinimum.Error(), q.Reason)

	q, err = f.svc.Quote(context.Background(), domain.QuoteRequest{CreatorID: "c1", Amount: 600_000, MethodID: "dana"})
	require.NoError(t, err)
	assert.False(t, q.Valid)
	assert.Equal(t, domain.ErrInsufficientBalance.Error(), q.Reason)
}

func TestQuoteRejectsUnknownMethodAndCreator(t *testing.T) {
	f := newFixture(t, 500_000)

	_, err := f.svc.Quote(context.Background(), domain.QuoteRequest{CreatorID: "c1", Amount: 100_000, MethodID: "paypal"})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)

	_, err = f.svc.Quote(context.Background(), domain.QuoteRequest{CreatorID: "  ", Amount: 100_000, MethodID: "bank"})
	assert.ErrorIs(t, err, domain.ErrInvalidCreator)
}

func TestRequestCreatesPendingWithdrawalAndNotifiesFinance(t *testing.T) {
	f := newFixture(t, 500_000)

	w, err := f.svc.Request(context.Background(), domain.Request{
		CreatorID: "c1",
		Amount:    100_000,
		MethodID:  "bank",
		Details:   bankDetails,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, w.Status)
	assert.Equal(t, int64(97_500), w.NetAmount)
	assert.Equal(t, "BCA", w.PaymentDetails["bank_name"])
	assert.NotContains(t, w.PaymentDetails, "phone_number")

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, []string{"finance@example.com", "ops@example.com"}, f.mail.sent[0].to)
	assert.Equal(t, w.ID.String(), f.mail.sent[0].data["withdrawal_id"])

	// the pending request reduces the balance for the next one
	_, err = f.svc.Request(context.Background(), domain.Request{
		CreatorID: "c1",
		Amount:    450_000,
		MethodID:  "bank",
		Details:   bankDetails,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	list, err := f.svc.List(context.Background(), "c1", 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, w.ID, list[0].ID)
}

func TestRequestValidatesPaymentDetails(t *testing.T) {
	f := newFixture(t, 500_000)

	_, err := f.svc.Request(context.Background(), domain.Request{
		CreatorID: "c1",
		Amount:    100_000,
		MethodID:  "gopay",
		Details:   domain.PaymentDetails{PhoneNumber: "08-12", AccountHolderName: ""},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPaymentDetails)

	var detailsErr *domain.DetailsError
	require.True(t, errors.As(err, &detailsErr))
	assert.Equal(t, "numeric", detailsErr.Fields["phone_number"])
	assert.Equal(t, "required", detailsErr.Fields["account_holder_name"])
	assert.Empty(t, f.mail.sent)
}

func TestRequestRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, 500_000)

	_, err := f.svc.Request(context.Background(), domain.Request{CreatorID: "c1", Amount: 0, MethodID: "bank", Details: bankDetails})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestRequestSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t, 500_000)
	f.mail.err = errors.New("smtp down")

	w, err := f.svc.Request(context.Background(), domain.Request{
		CreatorID: "c1",
		Amount:    60_000,
		MethodID:  "ovo",
		Details:   domain.PaymentDetails{PhoneNumber: "081234567890", AccountHolderName: "Budi"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(58_500), w.NetAmount)
}

func TestRequestRefusesWhenEarningsDegraded(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Withdrawal{}))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	earnings := &mockEarnings{}
	earnings.On("GetRevenueSummary", mock.Anything, mock.Anything).Return(earningsdomain.SummaryResponse{
		Summary:         earningsdomain.RevenueSummary{TotalNet: 900_000},
		DegradedStreams: []earningsdomain.Stream{earningsdomain.StreamLesson},
	}, nil)

	svc := NewService(Params{
		DB:       conn,
		Log:      zaptest.NewLogger(t),
		GenID:    node,
		Repo:     repository.Provide(),
		Earnings: earnings,
		Policy:   config.NewStaticEarningsConfigHolder(config.DefaultEarningsConfig()),
		Clock:    clock.SystemClock{},
	})

	_, err = svc.Request(context.Background(), domain.Request{CreatorID: "c1", Amount: 100_000, MethodID: "bank", Details: bankDetails})
	assert.ErrorIs(t, err, domain.ErrBalanceUnavailable)
}

func TestCheckAmount(t *testing.T) {
	assert.NoError(t, checkAmount(50_000, 50_000, 50_000, 2_500))
	assert.ErrorIs(t, checkAmount(-1, 50_000, 50_000, 2_500), domain.ErrInvalidAmount)
	assert.ErrorIs(t, checkAmount(49_999, 90_000, 50_000, 2_500), domain.ErrBelowMinimum)
	assert.ErrorIs(t, checkAmount(60_000, 59_999, 50_000, 2_500), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, checkAmount(1_000, 90_000, 0, 1_500), domain.ErrFeeExceedsAmount)
}

func TestListLimit(t *testing.T) {
	f := newFixture(t, 0)
	conn := f.svc.(*Service).db
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 60; i++ {
		require.NoError(t, conn.Create(&domain.Withdrawal{
			ID:        snowflake.ID(i),
			CreatorID: "c1",
			Amount:    100_000,
			Fee:       2_500,
			NetAmount: 97_500,
			Method:    "bank",
			Status:    domain.StatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}

	list, err := f.svc.List(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Len(t, list, domain.DefaultListLimit)
	assert.Equal(t, snowflake.ID(60), list[0].ID)

	list, err = f.svc.List(context.Background(), "c1", 60)
	require.NoError(t, err)
	assert.Len(t, list, 60)

	list, err = f.svc.List(context.Background(), "c1", 5)
	require.NoError(t, err)
	require.Len(t, list, 5)
	assert.Equal(t, snowflake.ID(56), list[4].ID)

	_, err = f.svc.List(context.Background(), "c1", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

type stubLocker struct {
	held     map[string]string
	err      error
	released []string
}

func (l *stubLocker) TryLockWithdrawal(ctx context.Context, creatorID string) (string, bool, error) {
	if l.err != nil {
		return "", false, l.err
	}
	if _, ok := l.held[creatorID]; ok {
		return "", false, nil
	}
	l.held[creatorID] = "lease-" + creatorID
	return l.held[creatorID], true, nil
}

func (l *stubLocker) ReleaseWithdrawal(ctx context.Context, creatorID, token string) error {
	if l.held[creatorID] == token {
		delete(l.held, creatorID)
	}
	l.released = append(l.released, token)
	return nil
}

func TestRequestWithdrawalLease(t *testing.T) {
	f := newFixture(t, 500_000)
	locker := &stubLocker{held: map[string]string{"c1": "other-request"}}
	f.svc.(*Service).limiter = locker
	req := domain.Request{CreatorID: "c1", Amount: 100_000, MethodID: "bank", Details: bankDetails}

	_, err := f.svc.Request(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrWithdrawalInProgress)
	assert.Empty(t, f.mail.sent)
	assert.Empty(t, locker.released)

	list, err := f.svc.List(context.Background(), "c1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	delete(locker.held, "c1")
	w, err := f.svc.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, w.Status)
	assert.Equal(t, []string{"lease-c1"}, locker.released)
	assert.Empty(t, locker.held)

	locker.err = errors.New("redis down")
	_, err = f.svc.Request(context.Background(), req)
	assert.EqualError(t, err, "redis down")
	assert.Len(t, locker.released, 1)
}
