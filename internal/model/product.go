package model

import "time"

// Product represents an item in the storefront catalogue.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Category    string    `json:"category" db:"category"`
	Image       string    `json:"image" db:"image"`
	Stock       int       `json:"stock" db:"stock"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// ProductInput carries the whitelisted product fields accepted from a client.
// A nil field was not submitted.
type ProductInput struct {
	Name        *string  `form:"name" validate:"omitnil,min=1,max=200"`
	Description *string  `form:"description" validate:"omitnil,max=5000"`
	Price       *float64 `form:"price" validate:"omitnil,gte=0"`
	Category    *string  `form:"category" validate:"omitnil,max=100"`
	Stock       *int     `form:"stock" validate:"omitnil,gte=0,max=2147483647"`
	Image       *string  `form:"image"`
}

// Empty reports whether no field was submitted.
func (in ProductInput) Empty() bool {
	return in.Name == nil && in.Description == nil && in.Price == nil &&
		in.Category == nil && in.Stock == nil && in.Image == nil
}
