package httpapi

import (
	"net/http"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req account.Registration
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	u, err := h.Accounts.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
