package httpapi

import (
	"net/http"

	"github.com/cwesi-djin/storefront-go/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,max=64"`
	Quantity  *int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type mergeRequest struct {
	SessionKey string `json:"sessionKey" validate:"max=64"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.resolveOwner(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Carts.Get(r.Context(), owner)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.resolveOwner(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req addItemRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.Carts.AddItem(r.Context(), owner, req.ProductID, quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.resolveOwner(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req updateItemRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Carts.UpdateQuantity(r.Context(), owner, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, err := h.resolveOwner(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Carts.RemoveItem(r.Context(), owner, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// MergeCart is the login hook: it folds the caller's anonymous cart into the
// signed-in user's cart. The session key comes from the body or, failing
// that, from the request's own cookie or header.
func (h *Handler) MergeCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req mergeRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key := req.SessionKey
	if key == "" {
		var err error
		if key, err = h.sessionKey(r); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := h.Carts.Merge(r.Context(), key, uid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	owner, err := h.resolveOwner(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := events.EventMeta{
		CorrelationID: getCorrelationID(r.Context()),
		CausationID:   middleware.GetReqID(r.Context()),
	}
	o, err := h.Checkout.Checkout(r.Context(), owner, meta)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
