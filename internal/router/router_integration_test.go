package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type testServer struct {
	handler   http.Handler
	uploadDir string
}

// setupTestServer wires the full stack against a PostgreSQL testcontainer.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	logger := zerolog.Nop()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := database.NewPool(ctx, config.DatabaseConfig{
		URL:             connStr,
		MaxConnections:  10,
		MinConnections:  1,
		MaxConnLifetime: 300,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, repository.Migrate(ctx, pool))

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	fileStore, err := storage.NewFileStore(uploadDir, "/uploads", logger)
	require.NoError(t, err)
	images := storage.WithLimits(fileStore, 1<<20, logger)

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)

	productService := service.NewProductService(productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, events.NewNoopPublisher(), logger)
	dashboardService := service.NewDashboardService(productRepo, orderRepo, logger)

	h := Handlers{
		Product:   handler.NewProductHandler(productService, images, 1<<20, logger),
		Order:     handler.NewOrderHandler(orderService, logger),
		Dashboard: handler.NewDashboardHandler(dashboardService, logger),
		Health:    handler.NewHealthHandler(pool, logger),
	}

	return &testServer{
		handler:   New(h, Options{UploadDir: uploadDir, UploadURLPrefix: "/uploads"}, logger),
		uploadDir: uploadDir,
	}
}

func (s *testServer) do(t *testing.T, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, path, "application/json", bytes.NewReader(data))
}

func productForm(t *testing.T, fields map[string]string, image []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "widget.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func orderPayload(productID, name string, price float64, quantity int, total float64) map[string]any {
	return map[string]any{
		"customerName":    "Ada Lovelace",
		"customerEmail":   "ada@example.com",
		"customerPhone":   "555-0100",
		"customerAddress": "1 Analytical Way",
		"products": []map[string]any{
			{"productId": productID, "name": name, "price": price, "quantity": quantity},
		},
		"totalAmount": total,
	}
}

func TestStorefront_OrderLifecycle(t *testing.T) {
	srv := setupTestServer(t)

	body, ct := productForm(t, map[string]string{"name": "Widget", "price": "9.99", "stock": "5"}, pngBytes)
	w := srv.do(t, http.MethodPost, "/api/products", ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	widget := decodeBody[model.Product](t, w)

	assert.NotEmpty(t, widget.ID)
	assert.Equal(t, 5, widget.Stock)
	assert.True(t, strings.HasPrefix(widget.Image, "/uploads/"))

	t.Run("Uploaded image is served back", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, widget.Image, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, pngBytes, w.Body.Bytes())

		_, err := os.Stat(filepath.Join(srv.uploadDir, filepath.Base(widget.Image)))
		assert.NoError(t, err)
	})

	t.Run("Get returns identical attributes", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/products/"+widget.ID, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decodeBody[model.Product](t, w)
		assert.Equal(t, widget.ID, got.ID)
		assert.Equal(t, widget.Name, got.Name)
		assert.Equal(t, widget.Price, got.Price)
		assert.Equal(t, widget.Stock, got.Stock)
		assert.Equal(t, widget.Image, got.Image)
		assert.True(t, widget.CreatedAt.Equal(got.CreatedAt))
	})

	w = srv.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products := decodeBody[[]model.Product](t, w)
	require.Len(t, products, 1)
	assert.Equal(t, 5, products[0].Stock)

	w = srv.doJSON(t, http.MethodPost, "/api/orders", orderPayload(widget.ID, "Widget", 9.99, 2, 19.98))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decodeBody[model.Order](t, w)
	assert.Equal(t, model.StatusPending, order.Status)

	w = srv.do(t, http.MethodGet, "/api/dashboard/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DashboardStats{TotalProducts: 1, TotalOrders: 1, PendingOrders: 1, TotalRevenue: 0},
		decodeBody[model.DashboardStats](t, w))

	w = srv.do(t, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decodeBody[[]model.Order](t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, model.StatusPending, orders[0].Status)
	require.Len(t, orders[0].Products, 1)
	assert.Equal(t, "Widget", orders[0].Products[0].Name)
	assert.Equal(t, 2, orders[0].Products[0].Quantity)
	require.NotNil(t, orders[0].Products[0].Product)
	assert.Equal(t, widget.ID, orders[0].Products[0].Product.ID)

	w = srv.doJSON(t, http.MethodPut, "/api/orders/"+order.OrderID+"/status", map[string]string{"status": "Delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.StatusDelivered, decodeBody[model.Order](t, w).Status)

	w = srv.do(t, http.MethodGet, "/api/orders/"+order.OrderID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.StatusDelivered, decodeBody[model.Order](t, w).Status)

	w = srv.do(t, http.MethodGet, "/api/dashboard/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[model.DashboardStats](t, w)
	assert.Equal(t, int64(0), stats.PendingOrders)
	assert.InDelta(t, 19.98, stats.TotalRevenue, 1e-9)

	t.Run("Unknown status is rejected and not stored", func(t *testing.T) {
		w := srv.doJSON(t, http.MethodPut, "/api/orders/"+order.OrderID+"/status", map[string]string{"status": "Lost"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.do(t, http.MethodGet, "/api/orders/"+order.OrderID, "", nil)
		assert.Equal(t, model.StatusDelivered, decodeBody[model.Order](t, w).Status)
	})

	t.Run("Unknown order status update is not found", func(t *testing.T) {
		w := srv.doJSON(t, http.MethodPut, "/api/orders/ORD0/status", map[string]string{"status": "Shipped"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStorefront_ProductUpdateAndDelete(t *testing.T) {
	srv := setupTestServer(t)

	body, ct := productForm(t, map[string]string{"name": "Widget", "price": "9.99", "stock": "5", "category": "Tools"}, nil)
	w := srv.do(t, http.MethodPost, "/api/products", ct, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	widget := decodeBody[model.Product](t, w)

	body, ct = productForm(t, map[string]string{"price": "12.50"}, nil)
	w = srv.do(t, http.MethodPut, "/api/products/"+widget.ID, ct, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeBody[model.Product](t, w)
	assert.Equal(t, 12.5, updated.Price)
	assert.Equal(t, "Widget", updated.Name)
	assert.Equal(t, "Tools", updated.Category)
	assert.Equal(t, 5, updated.Stock)
	assert.True(t, widget.CreatedAt.Equal(updated.CreatedAt))

	w = srv.do(t, http.MethodDelete, "/api/products/"+widget.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Product deleted successfully"}`, w.Body.String())

	w = srv.do(t, http.MethodGet, "/api/products/"+widget.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/products/"+widget.ID, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStorefront_DeletedProductKeepsOrderSnapshot(t *testing.T) {
	srv := setupTestServer(t)

	body, ct := productForm(t, map[string]string{"name": "Widget", "price": "9.99"}, nil)
	w := srv.do(t, http.MethodPost, "/api/products", ct, body)
	require.Equal(t, http.StatusCreated, w.Code)
	widget := decodeBody[model.Product](t, w)

	w = srv.doJSON(t, http.MethodPost, "/api/orders", orderPayload(widget.ID, "Widget", 9.99, 3, 29.97))
	require.Equal(t, http.StatusCreated, w.Code)

	// Later catalogue changes must not rewrite the order.
	body, ct = productForm(t, map[string]string{"name": "Widget v2", "price": "14.00"}, nil)
	w = srv.do(t, http.MethodPut, "/api/products/"+widget.ID, ct, body)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/products/"+widget.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/api/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decodeBody[[]model.Order](t, w)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Products, 1)

	item := orders[0].Products[0]
	assert.Equal(t, widget.ID, item.ProductID)
	assert.Equal(t, "Widget", item.Name)
	assert.Equal(t, 9.99, item.Price)
	assert.Equal(t, 3, item.Quantity)
	assert.Nil(t, item.Product)
	assert.Equal(t, 29.97, orders[0].TotalAmount)
}

func TestStorefront_RejectsBadInput(t *testing.T) {
	srv := setupTestServer(t)

	t.Run("Product without price", func(t *testing.T) {
		body, ct := productForm(t, map[string]string{"name": "Widget"}, nil)
		w := srv.do(t, http.MethodPost, "/api/products", ct, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Upload that is not an image", func(t *testing.T) {
		body, ct := productForm(t, map[string]string{"name": "Widget", "price": "1"}, []byte("plain text"))
		w := srv.do(t, http.MethodPost, "/api/products", ct, body)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody[model.ErrorResponse](t, w)
		require.Len(t, resp.Fields, 1)
		assert.Equal(t, "image", resp.Fields[0].Field)

		entries, err := os.ReadDir(srv.uploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("Order without line items", func(t *testing.T) {
		payload := orderPayload("x", "x", 1, 1, 1)
		payload["products"] = []any{}
		w := srv.doJSON(t, http.MethodPost, "/api/orders", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := srv.do(t, http.MethodGet, "/api/dashboard/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.DashboardStats{}, decodeBody[model.DashboardStats](t, w))
}
