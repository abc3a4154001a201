package repository

import (
	"context"

	"storefront/internal/model"
)

// ProductRepository defines the interface for product data access operations.
// Lookups of an absent product return (nil, nil).
type ProductRepository interface {
	// List retrieves every product, newest first.
	List(ctx context.Context) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves the products that exist among ids.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// Create inserts a fully populated product.
	Create(ctx context.Context, product *model.Product) error

	// Update applies the non-nil fields of input and returns the stored result.
	Update(ctx context.Context, id string, input model.ProductInput) (*model.Product, error)

	// Delete removes a product. Deleting an absent product is not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of products.
	Count(ctx context.Context) (int64, error)
}

// OrderRepository defines the interface for order data access operations.
// Lookups of an absent order return (nil, nil).
type OrderRepository interface {
	// Create inserts an order. It returns model.ErrDuplicateOrderCode when the
	// order code is already taken.
	Create(ctx context.Context, order *model.Order) error

	// List retrieves every order, most recent first.
	List(ctx context.Context) ([]model.Order, error)

	// GetByID retrieves an order by its order code.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// UpdateStatus overwrites the status of an order and returns the stored result.
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)

	// Count returns the number of orders.
	Count(ctx context.Context) (int64, error)

	// CountByStatus returns the number of orders in the given status.
	CountByStatus(ctx context.Context, status model.OrderStatus) (int64, error)

	// SumTotalByStatus sums total amounts of orders in the given status, 0 when none.
	SumTotalByStatus(ctx context.Context, status model.OrderStatus) (float64, error)
}
