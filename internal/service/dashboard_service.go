package service

import (
	"context"
	"fmt"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// dashboardService implements DashboardService.
type dashboardService struct {
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	logger      zerolog.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	logger zerolog.Logger,
) DashboardService {
	return &dashboardService{
		productRepo: productRepo,
		orderRepo:   orderRepo,
		logger:      logger.With().Str("service", "dashboard").Logger(),
	}
}

// Stats runs the four aggregate queries concurrently. Revenue only counts
// Delivered orders.
func (s *dashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.productRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		stats.TotalProducts = n
		return nil
	})

	g.Go(func() error {
		n, err := s.orderRepo.Count(gctx)
		if err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}
		stats.TotalOrders = n
		return nil
	})

	g.Go(func() error {
		n, err := s.orderRepo.CountByStatus(gctx, model.StatusPending)
		if err != nil {
			return fmt.Errorf("failed to count pending orders: %w", err)
		}
		stats.PendingOrders = n
		return nil
	})

	g.Go(func() error {
		revenue, err := s.orderRepo.SumTotalByStatus(gctx, model.StatusDelivered)
		if err != nil {
			return fmt.Errorf("failed to sum revenue: %w", err)
		}
		stats.TotalRevenue = revenue
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to compute dashboard stats")
		return nil, err
	}

	s.logger.Debug().
		Int64("total_products", stats.TotalProducts).
		Int64("total_orders", stats.TotalOrders).
		Int64("pending_orders", stats.PendingOrders).
		Float64("total_revenue", stats.TotalRevenue).
		Msg("computed dashboard stats")

	return &stats, nil
}
