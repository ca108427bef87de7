package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type recordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId" validate:"max=100"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	payments, err := h.Payments.ListForUser(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req recordPaymentRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Payments.Record(r.Context(), uid, req.Amount, req.TransactionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) SetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req paymentStatusRequest
	if err := bind(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Payments.SetStatus(r.Context(), uid, chi.URLParam(r, "paymentId"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
