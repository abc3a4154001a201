package handler

import (
	"context"
	"fmt"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"
	"storefront/internal/storage"

	"github.com/rs/zerolog"
)

// formOverheadBytes is allowed on top of the image limit for the other form parts.
const formOverheadBytes = 1 << 20

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service      service.ProductService
	images       storage.ImageStore
	maxFormBytes int64
	logger       zerolog.Logger
}

// NewProductHandler creates a new product handler. Uploaded images are saved
// to images before the product is written; maxImageBytes bounds the request.
func NewProductHandler(service service.ProductService, images storage.ImageStore, maxImageBytes int64, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service:      service,
		images:       images,
		maxFormBytes: maxImageBytes + formOverheadBytes,
		logger:       logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products requests.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// Get handles GET /api/products/{id} requests.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Create handles POST /api/products requests.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(w, r, h.maxFormBytes)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := service.ValidateProductInput(form.input, true); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := h.saveImage(r.Context(), form); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	product, err := h.service.Create(r.Context(), form.input)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id} requests. Only submitted fields change.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	form, err := parseProductForm(w, r, h.maxFormBytes)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	if err := service.ValidateProductInput(form.input, false); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	// Resolve the product first so an upload for an unknown ID is not stored.
	if form.image != nil {
		if _, err := h.service.Get(r.Context(), id); err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
		if err := h.saveImage(r.Context(), form); err != nil {
			writeServiceError(w, err, h.logger)
			return
		}
	}

	product, err := h.service.Update(r.Context(), id, form.input)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id} requests.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Product deleted successfully"})
}

// saveImage stores the uploaded image, if any, and records its reference on the input.
func (h *ProductHandler) saveImage(ctx context.Context, form *productForm) error {
	if form.image == nil {
		return nil
	}

	file, err := form.image.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer file.Close()

	ref, err := h.images.Save(ctx, form.image.Filename, form.image.Header.Get("Content-Type"), file)
	if err != nil {
		return err
	}

	h.logger.Debug().Str("image", ref).Msg("image stored")
	form.input.Image = &ref

	return nil
}
