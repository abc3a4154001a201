package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves every product, newest first.
func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	s.logger.Debug().Int("count", len(products)).Msg("retrieved products")

	return products, nil
}

// Get retrieves a single product by ID. IDs that are not UUIDs never resolve.
func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	if !validID(id) {
		s.logger.Debug().Str("product_id", id).Msg("malformed product ID")
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create validates input and stores a new product with a fresh ID.
func (s *productService) Create(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	if err := ValidateProductInput(input, true); err != nil {
		s.logger.Warn().Err(err).Msg("invalid product submitted")
		return nil, err
	}

	product := &model.Product{
		ID:          uuid.NewString(),
		Name:        *input.Name,
		Description: deref(input.Description),
		Price:       *input.Price,
		Category:    deref(input.Category),
		Image:       deref(input.Image),
		Stock:       deref(input.Stock),
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("product_id", product.ID).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Str("product_id", product.ID).
		Str("name", product.Name).
		Msg("product created")

	return product, nil
}

// Update applies the fields present in input. An empty input returns the
// product unchanged.
func (s *productService) Update(ctx context.Context, id string, input model.ProductInput) (*model.Product, error) {
	if !validID(id) {
		s.logger.Debug().Str("product_id", id).Msg("malformed product ID")
		return nil, model.ErrProductNotFound
	}

	if err := ValidateProductInput(input, false); err != nil {
		s.logger.Warn().Err(err).Str("product_id", id).Msg("invalid product update")
		return nil, err
	}

	if input.Empty() {
		return s.Get(ctx, id)
	}

	product, err := s.productRepo.Update(ctx, id, input)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if product == nil {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	s.logger.Info().Str("product_id", id).Msg("product updated")

	return product, nil
}

// Delete removes a product. Deleting an unknown or malformed ID succeeds.
func (s *productService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.Info().Str("product_id", id).Msg("product deleted")

	return nil
}

// ValidateProductInput checks the submitted product fields. Creation also
// requires a name and a price. Callers that persist an upload before creating
// the product use it to reject bad input first.
func ValidateProductInput(input model.ProductInput, create bool) error {
	var fields []model.FieldError
	if create && input.Name == nil {
		fields = append(fields, model.FieldError{Field: "name", Message: "is required"})
	}
	if create && input.Price == nil {
		fields = append(fields, model.FieldError{Field: "price", Message: "is required"})
	}
	if err := validation.Struct(input); err != nil {
		var validationErr *model.ValidationError
		if !errors.As(err, &validationErr) {
			return err
		}
		fields = append(fields, validationErr.Fields...)
	}
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
