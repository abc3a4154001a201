package model

import "time"

// OrderStatus is the fulfilment stage of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusConfirmed OrderStatus = "Confirmed"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// OrderStatuses lists every accepted status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Order represents a customer purchase. Line items hold a snapshot of the
// product name and price taken when the order was placed.
type Order struct {
	OrderID         string      `json:"orderId" db:"order_id"`
	CustomerName    string      `json:"customerName" db:"customer_name"`
	CustomerEmail   string      `json:"customerEmail" db:"customer_email"`
	CustomerPhone   string      `json:"customerPhone" db:"customer_phone"`
	CustomerAddress string      `json:"customerAddress" db:"customer_address"`
	Products        []LineItem  `json:"products" db:"products"`
	TotalAmount     float64     `json:"totalAmount" db:"total_amount"`
	Status          OrderStatus `json:"status" db:"status"`
	OrderDate       time.Time   `json:"orderDate" db:"order_date"`
}

// LineItem is one product and quantity within an order.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`

	// Product is the live catalogue entry, attached on reads when it still exists.
	Product *Product `json:"product,omitempty"`
}

// OrderRequest represents the request payload for creating an order.
type OrderRequest struct {
	CustomerName    string            `json:"customerName" validate:"required,notblank,max=200"`
	CustomerEmail   string            `json:"customerEmail" validate:"required,notblank,max=320"`
	CustomerPhone   string            `json:"customerPhone" validate:"required,notblank,max=50"`
	CustomerAddress string            `json:"customerAddress" validate:"required,notblank,max=1000"`
	Products        []LineItemRequest `json:"products" validate:"required,min=1,dive"`
	TotalAmount     *float64          `json:"totalAmount" validate:"required,gte=0"`
}

// LineItemRequest represents a single cart entry in an order request.
type LineItemRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"min=1"`
}

// StatusRequest represents the request payload for changing an order status.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}
