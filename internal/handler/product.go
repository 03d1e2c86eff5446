package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/pkgforge/productd/internal/domain/product"
)

// listProducts returns every product known to the backend with its live
// selection state.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		logError(r, "list products", err)
		writeError(w, http.StatusInternalServerError, "list products failed")
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range products {
		selected, err := p.Selected(r.Context())
		if err != nil {
			logError(r, "query selection", err)
			writeError(w, http.StatusInternalServerError, "backend query failed")
			return
		}
		encodeProduct(e, p, selected)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, e)
}

// getProduct returns a single product by name.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p := h.findProduct(w, r)
	if p == nil {
		return
	}

	selected, err := p.Selected(r.Context())
	if err != nil {
		logError(r, "query selection", err)
		writeError(w, http.StatusInternalServerError, "backend query failed")
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, p, selected)
	writeJSON(w, http.StatusOK, e)
}

// selectProduct marks the product for installation.
func (h *Handler) selectProduct(w http.ResponseWriter, r *http.Request) {
	p := h.findProduct(w, r)
	if p == nil {
		return
	}
	if err := p.Select(r.Context()); err != nil {
		logError(r, "select product", err)
		writeError(w, http.StatusInternalServerError, "select failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// restoreProduct resets the product to a neutral status, preserving
// related selections.
func (h *Handler) restoreProduct(w http.ResponseWriter, r *http.Request) {
	p := h.findProduct(w, r)
	if p == nil {
		return
	}
	if err := p.Restore(r.Context()); err != nil {
		logError(r, "restore product", err)
		writeError(w, http.StatusInternalServerError, "restore failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selectedBase returns the first selected base product, or 404 when no
// base product is selected.
func (h *Handler) selectedBase(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context())
	if err != nil {
		logError(r, "list products", err)
		writeError(w, http.StatusInternalServerError, "list products failed")
		return
	}

	var bases []*product.Product
	for _, p := range products {
		if p.Category == product.CategoryBase {
			bases = append(bases, p)
		}
	}

	base, err := product.SelectedBase(r.Context(), bases)
	if err != nil {
		logError(r, "query selected base", err)
		writeError(w, http.StatusInternalServerError, "backend query failed")
		return
	}
	if base == nil {
		writeError(w, http.StatusNotFound, "no base product selected")
		return
	}

	e := &jx.Encoder{}
	encodeProduct(e, base, true)
	writeJSON(w, http.StatusOK, e)
}
