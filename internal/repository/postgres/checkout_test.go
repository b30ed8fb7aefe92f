package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newTestRepo(t *testing.T) (*CheckoutRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewCheckoutRepository(mock), mock
}

func sampleSession() *domain.CheckoutSession {
	now := time.Now().UTC().Truncate(time.Microsecond)
	quote := domain.ShippingQuote{ID: "sedex", Carrier: "Correios", Service: "SEDEX", Price: decimal.RequireFromString("20.00"), EstimatedDays: 3}
	return &domain.CheckoutSession{
		ID:     "chk-001",
		UserID: "shopper-001",
		Status: domain.StatusInitiated,
		CartID: "cart-001",
		Items: []domain.CartItem{
			{ProductID: "tenis-01", VariantID: "tenis-01-42", Name: "Tênis Corrida", SKU: "TEN-42", Price: decimal.RequireFromString("89.90"), Quantity: 1},
			{ProductID: "meia-01", VariantID: "meia-01-u", Name: "Meia", SKU: "MEI-U", Price: decimal.RequireFromString("24.80"), Quantity: 1},
		},
		ShippingAddress: &domain.Address{
			FullName: "Ana Souza", Street: "Rua Augusta", Number: "1500",
			District: "Consolação", City: "São Paulo", State: "SP", ZipCode: "01304-001",
		},
		ShippingQuotes:   []domain.ShippingQuote{quote},
		SelectedShipping: &quote,
		CouponCode:       "BEMVINDO10",
		CouponApplied:    true,
		Payment:          &domain.PaymentSelection{Method: domain.PaymentCreditCard, Brand: domain.BrandVisa, LastFour: "1111", Installments: 13},
		Totals: domain.OrderTotals{
			ItemsTotal:            decimal.RequireFromString("114.70"),
			ShippingPrice:         decimal.RequireFromString("20.00"),
			PayableBase:           decimal.RequireFromString("134.70"),
			Installments:          13,
			PerInstallment:        decimal.RequireFromString("11.86"),
			TotalWithInstallments: decimal.RequireFromString("154.18"),
		},
		Currency:  domain.CurrencyBRL,
		ExpiresAt: now.Add(30 * time.Minute),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func sessionColumnNames() []string {
	return []string{
		"id", "user_id", "status", "cart_id", "items",
		"shipping_address", "shipping_quotes", "selected_shipping",
		"coupon_code", "coupon_applied", "promotions", "payment",
		"items_total", "product_discount", "shipping_price", "shipping_discount",
		"payable_base", "installments", "per_installment", "total_with_installments",
		"currency", "order_id", "failure_reason",
		"expires_at", "created_at", "updated_at",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func sessionRow(t *testing.T, s *domain.CheckoutSession) []any {
	t.Helper()
	tot := s.Totals
	return []any{
		s.ID, s.UserID, s.Status, s.CartID, mustJSON(t, s.Items),
		mustJSON(t, s.ShippingAddress), mustJSON(t, s.ShippingQuotes), mustJSON(t, s.SelectedShipping),
		nullableString(s.CouponCode), s.CouponApplied, mustJSON(t, s.Promotions), mustJSON(t, s.Payment),
		domain.ToCents(tot.ItemsTotal), domain.ToCents(tot.ProductDiscount), domain.ToCents(tot.ShippingPrice), domain.ToCents(tot.ShippingDiscount),
		domain.ToCents(tot.PayableBase), tot.Installments, domain.ToCents(tot.PerInstallment), domain.ToCents(tot.TotalWithInstallments),
		s.Currency, nullableString(s.OrderID), nullableString(s.FailureReason),
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

// --- Create ---

func TestCheckoutRepository_Create_StoresCents(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()

	args := anyArgs(26)
	args[0] = s.ID
	args[8] = nullableString("BEMVINDO10")
	args[12] = int64(11470)
	args[16] = int64(13470)
	args[17] = 13
	args[18] = int64(1186)
	args[19] = int64(15418)
	args[21] = (*string)(nil)

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Create_ExecError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO checkout_sessions").
		WithArgs(anyArgs(26)...).
		WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert checkout session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- GetByID ---

func TestCheckoutRepository_GetByID_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs(s.ID).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).AddRow(sessionRow(t, s)...))

	got, err := repo.GetByID(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.CartID, got.CartID)
	assert.Equal(t, "BEMVINDO10", got.CouponCode)
	assert.True(t, got.CouponApplied)
	assert.Empty(t, got.OrderID)

	require.Len(t, got.Items, 2)
	assert.Equal(t, "89.90", got.Items[0].Price.StringFixed(2))
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "01304-001", got.ShippingAddress.ZipCode)
	require.NotNil(t, got.SelectedShipping)
	assert.Equal(t, "sedex", got.SelectedShipping.ID)
	require.NotNil(t, got.Payment)
	assert.Equal(t, domain.BrandVisa, got.Payment.Brand)
	assert.Nil(t, got.Promotions)

	assert.Equal(t, "134.70", got.Totals.PayableBase.StringFixed(2))
	assert.Equal(t, "11.86", got.Totals.PerInstallment.StringFixed(2))
	assert.Equal(t, "154.18", got.Totals.TotalWithInstallments.StringFixed(2))
	assert.Equal(t, 13, got.Totals.Installments)

	assert.Equal(t, s.ExpiresAt, got.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_GetByID_QueryError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs("chk-err").
		WillReturnError(errors.New("connection reset"))

	got, err := repo.GetByID(context.Background(), "chk-err")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get checkout session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_GetByID_NullOptionalColumns(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	null := []byte("null")
	rows := pgxmock.NewRows(sessionColumnNames()).AddRow(
		"chk-bare", "shopper-002", domain.StatusInitiated, "cart-002", []byte("[]"),
		null, null, null,
		(*string)(nil), false, null, null,
		int64(0), int64(0), int64(0), int64(0),
		int64(0), 1, int64(0), int64(0),
		domain.CurrencyBRL, (*string)(nil), (*string)(nil),
		now.Add(30*time.Minute), now, now,
	)
	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE id").
		WithArgs("chk-bare").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "chk-bare")
	require.NoError(t, err)

	assert.Empty(t, got.CouponCode)
	assert.Empty(t, got.FailureReason)
	assert.Nil(t, got.ShippingAddress)
	assert.Nil(t, got.SelectedShipping)
	assert.Nil(t, got.Payment)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
	assert.True(t, got.Totals.PayableBase.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Update ---

func TestCheckoutRepository_Update_Success(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	s.Status = domain.StatusCompleted
	s.OrderID = "ord-991"

	args := anyArgs(22)
	args[0] = domain.StatusCompleted
	args[17] = nullableString("ord-991")
	args[21] = s.ID

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), s))
	assert.WithinDuration(t, time.Now().UTC(), s.UpdatedAt, 2*time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Update_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	s := sampleSession()
	s.ID = "gone"

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(anyArgs(22)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), s)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_Update_ExecError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE checkout_sessions").
		WithArgs(anyArgs(22)...).
		WillReturnError(errors.New("deadlock detected"))

	err := repo.Update(context.Background(), sampleSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update checkout session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- ListExpired ---

func TestCheckoutRepository_ListExpired(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	a := sampleSession()
	b := sampleSession()
	b.ID = "chk-002"
	before := time.Now().UTC()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE expires_at").
		WithArgs(before, 50).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()).
			AddRow(sessionRow(t, a)...).
			AddRow(sessionRow(t, b)...))

	got, err := repo.ListExpired(context.Background(), before, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chk-001", got[0].ID)
	assert.Equal(t, "chk-002", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_ListExpired_Empty(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions WHERE expires_at").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(sessionColumnNames()))

	got, err := repo.ListExpired(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRepository_ListExpired_QueryError(t *testing.T) {
	repo, mock := newTestRepo(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM checkout_sessions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("timeout"))

	_, err := repo.ListExpired(context.Background(), time.Now(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list expired sessions")
}
