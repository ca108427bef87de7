package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createReviewRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Reviews.ListForProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rv, err := h.Reviews.Create(r.Context(), uid, chi.URLParam(r, "productId"), req.Comment)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}
