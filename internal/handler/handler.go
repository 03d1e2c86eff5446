// Package handler implements the JSON API of productd: product listing,
// selection, restore and license confirmation over the resolver backend.
package handler

import (
	"context"
	"net/http"

	"github.com/pkgforge/productd/internal/domain/product"
)

// Catalog enumerates the products known to the backend. The resolver
// implements it; tests substitute a stub.
type Catalog interface {
	Products(ctx context.Context) ([]*product.Product, error)
}

// Handler serves the product API.
type Handler struct {
	catalog  Catalog
	security *Security
}

// NewHandler constructs a Handler over the given catalog. security guards
// the mutating routes; a nil security leaves them open.
func NewHandler(catalog Catalog, security *Security) *Handler {
	return &Handler{catalog: catalog, security: security}
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{name}", h.getProduct)
	mux.HandleFunc("GET /api/products/{name}/license", h.getLicense)
	mux.HandleFunc("GET /api/base/selected", h.selectedBase)

	mux.Handle("POST /api/products/{name}/select", h.protect(h.selectProduct))
	mux.Handle("POST /api/products/{name}/restore", h.protect(h.restoreProduct))
	mux.Handle("PUT /api/products/{name}/license/confirmation", h.protect(h.putLicenseConfirmation))
}

func (h *Handler) protect(fn http.HandlerFunc) http.Handler {
	if h.security == nil {
		return fn
	}
	return h.security.Require(fn)
}

// findProduct resolves a product by name, or writes a 404.
func (h *Handler) findProduct(w http.ResponseWriter, r *http.Request) *product.Product {
	name := r.PathValue("name")
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list products failed")
		return nil
	}
	for _, p := range products {
		if p.Name == name {
			return p
		}
	}
	writeError(w, http.StatusNotFound, "product not found")
	return nil
}
