package service

import (
	"context"

	"storefront/internal/model"
)

// ProductService defines operations for catalogue management.
type ProductService interface {
	// List retrieves every product, newest first.
	List(ctx context.Context) ([]model.Product, error)

	// Get retrieves a single product by ID.
	Get(ctx context.Context, id string) (*model.Product, error)

	// Create validates input and stores a new product. Name and price are required.
	Create(ctx context.Context, input model.ProductInput) (*model.Product, error)

	// Update applies the fields present in input to an existing product.
	Update(ctx context.Context, id string, input model.ProductInput) (*model.Product, error)

	// Delete removes a product. Unknown IDs are ignored.
	Delete(ctx context.Context, id string) error
}

// OrderService defines operations for order management.
type OrderService interface {
	// Create places a new Pending order from a cart snapshot.
	Create(ctx context.Context, req *model.OrderRequest) (*model.Order, error)

	// List retrieves every order, most recent first, with live product data attached.
	List(ctx context.Context) ([]model.Order, error)

	// Get retrieves one order with live product data attached.
	Get(ctx context.Context, id string) (*model.Order, error)

	// SetStatus overwrites the status of an order. Any known status may follow any other.
	SetStatus(ctx context.Context, id, status string) (*model.Order, error)
}

// DashboardService derives reporting figures from the catalogue and order stores.
type DashboardService interface {
	// Stats computes the dashboard figures afresh on every call.
	Stats(ctx context.Context) (*model.DashboardStats, error)
}
