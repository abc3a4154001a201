package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	orderColumns = `order_id, customer_name, customer_email, customer_phone, customer_address,
		products, total_amount, status, order_date`

	uniqueViolation = "23505"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row, o *model.Order) error {
	var (
		items  []byte
		status string
	)
	if err := row.Scan(
		&o.OrderID,
		&o.CustomerName,
		&o.CustomerEmail,
		&o.CustomerPhone,
		&o.CustomerAddress,
		&items,
		&o.TotalAmount,
		&status,
		&o.OrderDate,
	); err != nil {
		return err
	}
	o.Status = model.OrderStatus(status)

	o.Products = []model.LineItem{}
	if err := json.Unmarshal(items, &o.Products); err != nil {
		return fmt.Errorf("failed to decode line items: %w", err)
	}
	return nil
}

// Create inserts an order together with its line-item snapshot.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	items := make([]model.LineItem, len(order.Products))
	for i, item := range order.Products {
		item.Product = nil
		items[i] = item
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode line items: %w", err)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		order.OrderID,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.CustomerAddress,
		encoded,
		order.TotalAmount,
		string(order.Status),
		order.OrderDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Warn().Str("order_id", order.OrderID).Msg("order code already exists")
			return model.ErrDuplicateOrderCode
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.OrderID).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.OrderID).
		Int("item_count", len(items)).
		Msg("order created successfully")

	return nil
}

// List retrieves every order, most recent first.
func (r *orderRepository) List(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY order_date DESC, order_id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := scanOrder(rows, &o); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// GetByID retrieves an order by its order code.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	var o model.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	return &o, nil
}

// UpdateStatus overwrites the status of an order and returns the stored result.
func (r *orderRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	query := `UPDATE orders SET status = $2 WHERE order_id = $1 RETURNING ` + orderColumns

	var o model.Order
	if err := scanOrder(r.pool.QueryRow(ctx, query, id, string(status)), &o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id).Msg("order not found for status update")
			return nil, nil
		}
		r.logger.Error().
			Err(err).
			Str("order_id", id).
			Str("status", string(status)).
			Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return &o, nil
}

// Count returns the number of orders.
func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// CountByStatus returns the number of orders in the given status.
func (r *orderRepository) CountByStatus(ctx context.Context, status model.OrderStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("status", string(status)).Msg("failed to count orders by status")
		return 0, fmt.Errorf("failed to count orders by status: %w", err)
	}
	return count, nil
}

// SumTotalByStatus sums total amounts of orders in the given status, 0 when none.
func (r *orderRepository) SumTotalByStatus(ctx context.Context, status model.OrderStatus) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = $1`, string(status),
	).Scan(&total)
	if err != nil {
		r.logger.Error().Err(err).Str("status", string(status)).Msg("failed to sum order totals")
		return 0, fmt.Errorf("failed to sum order totals: %w", err)
	}
	return total, nil
}
