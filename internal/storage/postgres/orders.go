package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

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
		o      model.Order
		method string
		status string
		docs   codec.OrderDocuments
	)
	err := row.Scan(&o.ID, &o.Reference, &o.CustomerName, &o.Email, &o.Phone, &docs.Items, &docs.Delivery,
		&o.ShippingAmount, &o.Total, &method, &o.Paid, &status, &docs.History, &docs.Correlation,
		&o.LastPaymentError, &o.LastNotificationError, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = model.PaymentMethod(method)
	o.Status = model.OrderStatus(status)
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
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = r.storage.pool.Exec(ctx, query,
		order.ID, order.Reference, order.CustomerName, order.Email, order.Phone, docs.Items, docs.Delivery,
		order.ShippingAmount, order.Total, string(order.PaymentMethod), order.Paid, string(order.Status),
		docs.History, merchant, checkout, docs.Correlation, order.LastPaymentError, order.LastNotificationError,
		order.Version, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *orderRepository) getOne(ctx context.Context, where string, args ...any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.getOne(ctx, `id=$1`, id)
}

func (r *orderRepository) GetByReference(ctx context.Context, reference string) (*model.Order, error) {
	return r.getOne(ctx, `reference=$1`, reference)
}

func (r *orderRepository) GetByCorrelation(ctx context.Context, merchantRequestID, checkoutRequestID string) (*model.Order, error) {
	switch {
	case merchantRequestID != "" && checkoutRequestID != "":
		return r.getOne(ctx, `merchant_request_id=$1 OR checkout_request_id=$2 ORDER BY created_at DESC LIMIT 1`,
			merchantRequestID, checkoutRequestID)
	case checkoutRequestID != "":
		return r.getOne(ctx, `checkout_request_id=$1 ORDER BY created_at DESC LIMIT 1`, checkoutRequestID)
	case merchantRequestID != "":
		return r.getOne(ctx, `merchant_request_id=$1 ORDER BY created_at DESC LIMIT 1`, merchantRequestID)
	}
	return nil, domainErrors.ErrNotFound
}

func (r *orderRepository) ListMobileMoneyByPhoneSuffix(ctx context.Context, suffix string) ([]model.Order, error) {
	// Only plain digits reach LIKE, so the pattern carries no wildcards.
	if !model.IsPhoneSuffix(suffix) {
		return nil, nil
	}
	query := `SELECT ` + orderColumns + ` FROM orders
                   WHERE payment_method=$1 AND phone LIKE '%' || $2
                   ORDER BY created_at DESC LIMIT 50`
	rows, err := r.storage.pool.Query(ctx, query, string(model.PaymentMethodMobileMoney), suffix)
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

	const query = `UPDATE orders SET paid=$1, status=$2, status_history=$3, merchant_request_id=$4,
                   checkout_request_id=$5, payment_correlation=$6, last_payment_error=$7,
                   last_notification_error=$8, updated_at=$9, version=version+1
                   WHERE id=$10 AND version=$11`
	tag, err := r.storage.pool.Exec(ctx, query,
		order.Paid, string(order.Status), docs.History, merchant, checkout, docs.Correlation,
		order.LastPaymentError, order.LastNotificationError, order.UpdatedAt, order.ID, order.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrConflict
	}
	order.Version++
	return nil
}
