package router

import (
	"net/http"
	"strings"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Product   *handler.ProductHandler
	Order     *handler.OrderHandler
	Dashboard *handler.DashboardHandler
	Health    *handler.HealthHandler
}

// Options controls the optional parts of the router.
type Options struct {
	// UploadDir and UploadURLPrefix serve locally stored images. Static
	// serving is off when either is empty.
	UploadDir       string
	UploadURLPrefix string

	// RateLimiter is applied to every request when set.
	RateLimiter *middleware.RateLimiter
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health.Health)

	mux.HandleFunc("GET /api/products", h.Product.List)
	mux.HandleFunc("POST /api/products", h.Product.Create)
	mux.HandleFunc("GET /api/products/{id}", h.Product.Get)
	mux.HandleFunc("PUT /api/products/{id}", h.Product.Update)
	mux.HandleFunc("DELETE /api/products/{id}", h.Product.Delete)

	mux.HandleFunc("POST /api/orders", h.Order.Create)
	mux.HandleFunc("GET /api/orders", h.Order.List)
	mux.HandleFunc("GET /api/orders/{id}", h.Order.Get)
	mux.HandleFunc("PUT /api/orders/{id}/status", h.Order.UpdateStatus)

	mux.HandleFunc("GET /api/dashboard/stats", h.Dashboard.Stats)

	if opts.UploadDir != "" && opts.UploadURLPrefix != "" {
		mux.Handle("GET "+opts.UploadURLPrefix+"/", staticFiles(opts.UploadURLPrefix, opts.UploadDir))
	}

	mux.Handle("/", fallback(mux))

	// Apply middleware in order: Recovery -> Logging -> CORS -> RateLimit
	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.CORS,
	}
	if opts.RateLimiter != nil {
		middlewares = append(middlewares, opts.RateLimiter.Middleware)
	}

	return middleware.Chain(mux, middlewares...)
}

// staticFiles serves files from dir under prefix without directory listings.
func staticFiles(prefix, dir string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			notFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// routeMethods are tried when a request matches no route, to tell an unknown
// path from a known path used with the wrong method.
var routeMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// fallback answers requests no route matched: 405 with an Allow header when
// the path is served under other methods, 404 otherwise.
func fallback(mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var allowed []string
		for _, method := range routeMethods {
			probe := r.Clone(r.Context())
			probe.Method = method
			if _, pattern := mux.Handler(probe); pattern != "" && pattern != "/" {
				allowed = append(allowed, method)
			}
		}

		if len(allowed) == 0 {
			notFound(w, r)
			return
		}

		w.Header().Set("Allow", strings.Join(allowed, ", "))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error":"` + model.ErrCodeMethodNotAllowed + `","message":"method not allowed"}`))
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"` + model.ErrCodeNotFound + `","message":"route not found"}`))
}
