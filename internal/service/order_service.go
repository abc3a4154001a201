package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/validation"

	"github.com/rs/zerolog"
)

// maxCodeAttempts bounds retries when another process has taken an order code.
const maxCodeAttempts = 3

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	publisher   events.Publisher
	codes       *codeGenerator
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		publisher:   publisher,
		codes:       newCodeGenerator(time.Now),
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// Create places a new order. The total amount and line-item snapshots are
// stored exactly as submitted.
func (s *orderService) Create(ctx context.Context, req *model.OrderRequest) (*model.Order, error) {
	if req == nil {
		return nil, fmt.Errorf("order request is nil")
	}

	if err := validation.Struct(req); err != nil {
		s.logger.Warn().Err(err).Msg("invalid order request")
		return nil, err
	}

	items := make([]model.LineItem, len(req.Products))
	for i, item := range req.Products {
		items[i] = model.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		}
	}

	order := &model.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Products:        items,
		TotalAmount:     *req.TotalAmount,
		Status:          model.StatusPending,
		OrderDate:       s.now().UTC().Truncate(time.Microsecond),
	}

	var err error
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		order.OrderID = s.codes.Next()

		err = s.orderRepo.Create(ctx, order)
		if !errors.Is(err, model.ErrDuplicateOrderCode) {
			break
		}

		s.logger.Warn().
			Str("order_id", order.OrderID).
			Int("attempt", attempt).
			Msg("order code already taken, retrying")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to create order")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.OrderID).
		Int("item_count", len(items)).
		Float64("total_amount", order.TotalAmount).
		Msg("order created successfully")

	s.publish(ctx, events.OrderCreated(order, s.now()))

	return order, nil
}

// List retrieves every order with live product data attached where the
// product still exists.
func (s *orderService) List(ctx context.Context) ([]model.Order, error) {
	orders, err := s.orderRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	s.resolveProducts(ctx, orders)

	s.logger.Debug().Int("count", len(orders)).Msg("retrieved orders")

	return orders, nil
}

// Get retrieves one order by its code.
func (s *orderService) Get(ctx context.Context, id string) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	orders := []model.Order{*order}
	s.resolveProducts(ctx, orders)

	return &orders[0], nil
}

// SetStatus overwrites the order status without checking the transition.
func (s *orderService) SetStatus(ctx context.Context, id, status string) (*model.Order, error) {
	newStatus := model.OrderStatus(status)
	if !newStatus.Valid() {
		s.logger.Warn().Str("order_id", id).Str("status", status).Msg("unknown order status")
		return nil, model.NewValidationError("status", "must be one of "+statusList())
	}

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if current == nil {
		s.logger.Debug().Str("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	order, err := s.orderRepo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id).Msg("failed to update order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_id", id).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	s.logger.Info().
		Str("order_id", id).
		Str("from", string(current.Status)).
		Str("to", string(order.Status)).
		Msg("order status updated")

	s.publish(ctx, events.OrderStatusChanged(order, current.Status, s.now()))

	orders := []model.Order{*order}
	s.resolveProducts(ctx, orders)

	return &orders[0], nil
}

// resolveProducts attaches the live catalogue entry to each line item whose
// product still exists. Lookup failures are logged and leave the snapshot
// fields as the only product data.
func (s *orderService) resolveProducts(ctx context.Context, orders []model.Order) {
	seen := make(map[string]struct{})
	var ids []string
	for _, order := range orders {
		for _, item := range order.Products {
			if _, ok := seen[item.ProductID]; ok || !validID(item.ProductID) {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) == 0 {
		return
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Int("product_count", len(ids)).Msg("failed to resolve order products")
		return
	}

	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	for i := range orders {
		for j := range orders[i].Products {
			if p, ok := byID[orders[i].Products[j].ProductID]; ok {
				orders[i].Products[j].Product = &p
			}
		}
	}
}

// publish emits an event. The order is already stored, so failures are only logged.
func (s *orderService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("type", event.Type).
			Str("order_id", event.OrderID).
			Msg("failed to publish order event")
	}
}

func statusList() string {
	names := make([]string, len(model.OrderStatuses))
	for i, st := range model.OrderStatuses {
		names[i] = string(st)
	}
	return strings.Join(names, ", ")
}
