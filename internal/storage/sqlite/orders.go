package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
	"github.com/polkiloo/storepay/internal/storage/codec"
)

const orderColumns = `id, reference, customer_name, email, phone, items, delivery, shipping_amount, total,
        payment_method, paid, status, status_history, payment_correlation, last_payment_error,
        last_notification_error, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o           model.Order
		method      string
		status      string
		docs        codec.OrderDocuments
		correlation sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(&o.ID, &o.Reference, &o.CustomerName, &o.Email, &o.Phone, &docs.Items, &docs.Delivery,
		&o.ShippingAmount, &o.Total, &method, &o.Paid, &status, &docs.History, &correlation,
		&o.LastPaymentError, &o.LastNotificationError, &o.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = model.PaymentMethod(method)
	o.Status = model.OrderStatus(status)
	o.CreatedAt = fromMillis(createdAt)
	o.UpdatedAt = fromMillis(updatedAt)
	if correlation.Valid {
		docs.Correlation = []byte(correlation.String)
	}
	if err := codec.DecodeOrder(&o, docs); err != nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, err)
	}
	return &o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	docs, err := codec.EncodeOrder(order)
	if err != nil {
		return err
	}
	merchant, checkout := codec.CorrelationIDs(order)
	order.Version = 1

	const query = `INSERT INTO orders (id, reference, customer_name, email, phone, items, delivery, shipping_amount,
                   total, payment_method, paid, status, status_history, merchant_request_id, checkout_request_id,
                   payment_correlation, last_payment_error, last_notification_error, version, created_at, updated_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.storage.db.ExecContext(ctx, query,
		order.ID, order.Reference, order.CustomerName, order.Email, order.Phone, string(docs.Items),
		string(docs.Delivery), order.ShippingAmount, order.Total, string(order.PaymentMethod), order.Paid,
		string(order.Status), string(docs.History), merchant, checkout, nullText(docs.Correlation),
		order.LastPaymentError, order.LastNotificationError, order.Version, toMillis(order.CreatedAt),
		toMillis(order.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *orderRepository) getOne(ctx context.Context, where string, args ...any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where
	order, err := scanOrder(r.storage.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.getOne(ctx, `id=?`, id)
}

func (r *orderRepository) GetByReference(ctx context.Context, reference string) (*model.Order, error) {
	return r.getOne(ctx, `reference=?`, reference)
}

func (r *orderRepository) GetByCorrelation(ctx context.Context, merchantRequestID, checkoutRequestID string) (*model.Order, error) {
	switch {
	case merchantRequestID != "" && checkoutRequestID != "":
		return r.getOne(ctx, `merchant_request_id=? OR checkout_request_id=? ORDER BY created_at DESC LIMIT 1`,
			merchantRequestID, checkoutRequestID)
	case checkoutRequestID != "":
		return r.getOne(ctx, `checkout_request_id=? ORDER BY created_at DESC LIMIT 1`, checkoutRequestID)
	case merchantRequestID != "":
		return r.getOne(ctx, `merchant_request_id=? ORDER BY created_at DESC LIMIT 1`, merchantRequestID)
	}
	return nil, domainErrors.ErrNotFound
}

func (r *orderRepository) ListMobileMoneyByPhoneSuffix(ctx context.Context, suffix string) ([]model.Order, error) {
	// Only plain digits reach LIKE, so the pattern carries no wildcards.
	if !model.IsPhoneSuffix(suffix) {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + ` FROM orders
                   WHERE payment_method=? AND phone LIKE '%' || ?
                   ORDER BY created_at DESC LIMIT 50`
	rows, err := r.storage.db.QueryContext(ctx, query, string(model.PaymentMethodMobileMoney), suffix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Update(ctx context.Context, order *model.Order) error {
	docs, err := codec.EncodeOrder(order)
	if err != nil {
		return err
	}
	merchant, checkout := codec.CorrelationIDs(order)

	const query = `UPDATE orders SET paid=?, status=?, status_history=?, merchant_request_id=?,
                   checkout_request_id=?, payment_correlation=?, last_payment_error=?,
                   last_notification_error=?, updated_at=?, version=version+1
                   WHERE id=? AND version=?`
	res, err := r.storage.db.ExecContext(ctx, query,
		order.Paid, string(order.Status), string(docs.History), merchant, checkout, nullText(docs.Correlation),
		order.LastPaymentError, order.LastNotificationError, toMillis(order.UpdatedAt), order.ID, order.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainErrors.ErrConflict
	}
	order.Version++
	return nil
}
