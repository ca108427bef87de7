package httpapi

import (
	"errors"
	"net/http"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	seller, ok := h.seller(w, r)
	if !ok {
		return
	}

	var req catalog.NewProduct
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Catalog.Create(r.Context(), seller, req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	seller, ok := h.seller(w, r)
	if !ok {
		return
	}

	var req catalog.ProductUpdate
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Catalog.Update(r.Context(), seller, chi.URLParam(r, "productId"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// seller loads the caller's account to decide what it may do to the catalog.
// Unknown accounts are treated as lacking the seller role.
func (h *Handler) seller(w http.ResponseWriter, r *http.Request) (catalog.Seller, bool) {
	uid, ok := requireUser(w, r)
	if !ok {
		return catalog.Seller{}, false
	}

	u, err := h.Accounts.Get(r.Context(), uid)
	if errors.Is(err, account.ErrNotFound) {
		writeError(w, http.StatusForbidden, catalog.ErrForbidden.Error())
		return catalog.Seller{}, false
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return catalog.Seller{}, false
	}
	return catalog.Seller{ID: u.ID, CanSell: u.Role.CanSell(), Admin: u.Role == account.RoleAdmin}, true
}
