package handler

import (
	"errors"
	"fmt"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"storefront/internal/model"
)

// multipartMemory is the part of a multipart form kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// imageField is the only file field accepted on product forms.
const imageField = "image"

// productForm is a parsed product submission.
type productForm struct {
	input model.ProductInput
	image *multipart.FileHeader
}

// parseProductForm reads a multipart or URL-encoded product form. Only the
// product attributes and a single image file are accepted; numeric fields
// must parse cleanly. Every problem found is reported in one
// *model.ValidationError.
func parseProductForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*productForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var err error
	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(multipartMemory)
	case "application/x-www-form-urlencoded":
		err = r.ParseForm()
	default:
		return nil, model.NewValidationError("body", "must be multipart/form-data or application/x-www-form-urlencoded")
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, model.NewValidationError("body", fmt.Sprintf("must be at most %d bytes", maxErr.Limit))
		}
		return nil, model.NewValidationError("body", "must be a valid form")
	}

	form := &productForm{}
	var fields []model.FieldError
	invalid := func(field, message string) {
		fields = append(fields, model.FieldError{Field: field, Message: message})
	}

	for _, key := range sortedKeys(r.PostForm) {
		value := r.PostForm.Get(key)
		switch key {
		case "name":
			form.input.Name = ptrTo(strings.TrimSpace(value))
		case "description":
			form.input.Description = ptrTo(value)
		case "category":
			form.input.Category = ptrTo(strings.TrimSpace(value))
		case "price":
			price, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
				invalid(key, "must be a number")
				continue
			}
			form.input.Price = &price
		case "stock":
			stock, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
			if errors.Is(err, strconv.ErrRange) {
				invalid(key, fmt.Sprintf("must be at most %d", math.MaxInt32))
				continue
			}
			if err != nil {
				invalid(key, "must be an integer")
				continue
			}
			form.input.Stock = ptrTo(int(stock))
		case imageField:
			invalid(key, "must be a file upload")
		default:
			invalid(key, "is not allowed")
		}
	}

	if r.MultipartForm != nil {
		for _, key := range sortedKeys(r.MultipartForm.File) {
			files := r.MultipartForm.File[key]
			switch {
			case key != imageField:
				invalid(key, "is not allowed")
			case len(files) > 1:
				invalid(key, "must be a single file")
			default:
				form.image = files[0]
			}
		}
	}

	if len(fields) > 0 {
		return nil, &model.ValidationError{Fields: fields}
	}

	return form, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ptrTo[T any](v T) *T {
	return &v
}
