package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const sessionColumns = `id, user_id, status, cart_id, items,
			shipping_address, shipping_quotes, selected_shipping,
			coupon_code, coupon_applied, promotions, payment,
			items_total, product_discount, shipping_price, shipping_discount,
			payable_base, installments, per_installment, total_with_installments,
			currency, order_id, failure_reason,
			expires_at, created_at, updated_at`

// CheckoutRepository implements repository.CheckoutRepository on
// PostgreSQL. Amounts are stored as integer cents, nested values as JSONB.
type CheckoutRepository struct {
	db database.DBTX
}

// NewCheckoutRepository creates a PostgreSQL-backed checkout repository.
func NewCheckoutRepository(db database.DBTX) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

// jsonColumns holds the JSONB-encoded parts of a session.
type jsonColumns struct {
	items, address, quotes, selected, promotions, payment []byte
}

func encodeJSON(s *domain.CheckoutSession) (jsonColumns, error) {
	var (
		c   jsonColumns
		err error
	)
	if c.items, err = json.Marshal(s.Items); err != nil {
		return c, fmt.Errorf("marshal items: %w", err)
	}
	if c.address, err = json.Marshal(s.ShippingAddress); err != nil {
		return c, fmt.Errorf("marshal shipping address: %w", err)
	}
	if c.quotes, err = json.Marshal(s.ShippingQuotes); err != nil {
		return c, fmt.Errorf("marshal shipping quotes: %w", err)
	}
	if c.selected, err = json.Marshal(s.SelectedShipping); err != nil {
		return c, fmt.Errorf("marshal selected shipping: %w", err)
	}
	if c.promotions, err = json.Marshal(s.Promotions); err != nil {
		return c, fmt.Errorf("marshal promotions: %w", err)
	}
	if c.payment, err = json.Marshal(s.Payment); err != nil {
		return c, fmt.Errorf("marshal payment: %w", err)
	}
	return c, nil
}

// Create inserts a new checkout session.
func (r *CheckoutRepository) Create(ctx context.Context, s *domain.CheckoutSession) (err error) {
	cols, err := encodeJSON(s)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO checkout_sessions (` + sessionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22, $23,
			$24, $25, $26
		)`

	ctx, end := database.TraceQuery(ctx, "CreateCheckout", query)
	defer func() { end(err) }()

	t := s.Totals
	_, err = r.db.Exec(ctx, query,
		s.ID, s.UserID, s.Status, s.CartID, cols.items,
		cols.address, cols.quotes, cols.selected,
		nullableString(s.CouponCode), s.CouponApplied, cols.promotions, cols.payment,
		domain.ToCents(t.ItemsTotal), domain.ToCents(t.ProductDiscount), domain.ToCents(t.ShippingPrice), domain.ToCents(t.ShippingDiscount),
		domain.ToCents(t.PayableBase), t.Installments, domain.ToCents(t.PerInstallment), domain.ToCents(t.TotalWithInstallments),
		s.Currency, nullableString(s.OrderID), nullableString(s.FailureReason),
		s.ExpiresAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

// GetByID retrieves a checkout session by id.
func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (_ *domain.CheckoutSession, err error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetCheckout", query)
	defer func() { end(err) }()

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("checkout session", id)
		}
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return session, nil
}

// Update overwrites a checkout session and stamps UpdatedAt.
func (r *CheckoutRepository) Update(ctx context.Context, s *domain.CheckoutSession) (err error) {
	cols, err := encodeJSON(s)
	if err != nil {
		return err
	}
	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE checkout_sessions
		SET status = $1, items = $2,
			shipping_address = $3, shipping_quotes = $4, selected_shipping = $5,
			coupon_code = $6, coupon_applied = $7, promotions = $8, payment = $9,
			items_total = $10, product_discount = $11, shipping_price = $12, shipping_discount = $13,
			payable_base = $14, installments = $15, per_installment = $16, total_with_installments = $17,
			order_id = $18, failure_reason = $19, expires_at = $20, updated_at = $21
		WHERE id = $22`

	ctx, end := database.TraceQuery(ctx, "UpdateCheckout", query)
	defer func() { end(err) }()

	t := s.Totals
	ct, err := r.db.Exec(ctx, query,
		s.Status, cols.items,
		cols.address, cols.quotes, cols.selected,
		nullableString(s.CouponCode), s.CouponApplied, cols.promotions, cols.payment,
		domain.ToCents(t.ItemsTotal), domain.ToCents(t.ProductDiscount), domain.ToCents(t.ShippingPrice), domain.ToCents(t.ShippingDiscount),
		domain.ToCents(t.PayableBase), t.Installments, domain.ToCents(t.PerInstallment), domain.ToCents(t.TotalWithInstallments),
		nullableString(s.OrderID), nullableString(s.FailureReason), s.ExpiresAt, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update checkout session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("checkout session", s.ID)
	}
	return nil
}

// ListExpired returns non-terminal sessions that expired before the given
// time, oldest first.
func (r *CheckoutRepository) ListExpired(ctx context.Context, before time.Time, limit int) (_ []domain.CheckoutSession, err error) {
	query := `SELECT ` + sessionColumns + `
		FROM checkout_sessions
		WHERE expires_at < $1 AND status NOT IN ('completed', 'failed', 'expired')
		ORDER BY expires_at ASC
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "ListExpiredCheckouts", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.CheckoutSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired session row: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired session rows: %w", err)
	}
	return sessions, nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.CheckoutSession, error) {
	var (
		s             domain.CheckoutSession
		cols          jsonColumns
		couponCode    *string
		orderID       *string
		failureReason *string
		itemsTotal    int64
		productDisc   int64
		shippingPrice int64
		shippingDisc  int64
		payableBase   int64
		perInst       int64
		totalWithInst int64
	)

	if err := row.Scan(
		&s.ID, &s.UserID, &s.Status, &s.CartID, &cols.items,
		&cols.address, &cols.quotes, &cols.selected,
		&couponCode, &s.CouponApplied, &cols.promotions, &cols.payment,
		&itemsTotal, &productDisc, &shippingPrice, &shippingDisc,
		&payableBase, &s.Totals.Installments, &perInst, &totalWithInst,
		&s.Currency, &orderID, &failureReason,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := decodeJSON(&s, cols); err != nil {
		return nil, err
	}

	s.Totals.ItemsTotal = domain.FromCents(itemsTotal)
	s.Totals.ProductDiscount = domain.FromCents(productDisc)
	s.Totals.ShippingPrice = domain.FromCents(shippingPrice)
	s.Totals.ShippingDiscount = domain.FromCents(shippingDisc)
	s.Totals.PayableBase = domain.FromCents(payableBase)
	s.Totals.PerInstallment = domain.FromCents(perInst)
	s.Totals.TotalWithInstallments = domain.FromCents(totalWithInst)

	if couponCode != nil {
		s.CouponCode = *couponCode
	}
	if orderID != nil {
		s.OrderID = *orderID
	}
	if failureReason != nil {
		s.FailureReason = *failureReason
	}
	return &s, nil
}

func decodeJSON(s *domain.CheckoutSession, c jsonColumns) error {
	for _, f := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"items", c.items, &s.Items},
		{"shipping address", c.address, &s.ShippingAddress},
		{"shipping quotes", c.quotes, &s.ShippingQuotes},
		{"selected shipping", c.selected, &s.SelectedShipping},
		{"promotions", c.promotions, &s.Promotions},
		{"payment", c.payment, &s.Payment},
	} {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return fmt.Errorf("unmarshal %s: %w", f.name, err)
		}
	}
	return nil
}

// nullableString maps "" to SQL NULL.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
