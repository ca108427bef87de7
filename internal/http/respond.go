package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cwesi-djin/storefront-go/internal/account"
	"github.com/cwesi-djin/storefront-go/internal/cart"
	"github.com/cwesi-djin/storefront-go/internal/catalog"
	"github.com/cwesi-djin/storefront-go/internal/checkout"
	"github.com/cwesi-djin/storefront-go/internal/order"
	"github.com/cwesi-djin/storefront-go/internal/payment"
	"github.com/cwesi-djin/storefront-go/internal/review"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into dst. An empty body leaves dst at its zero
// value.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// bind decodes dst and runs its validate tags.
func bind(r *http.Request, dst any) error {
	if err := decode(r, dst); err != nil {
		return err
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, strings.ToLower(fe.Field())+" failed "+fe.Tag())
		}
		return errors.New(strings.Join(parts, ", "))
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidOwner),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, account.ErrInvalidInput),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, review.ErrEmptyComment):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, catalog.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, payment.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, account.ErrDuplicate),
		errors.Is(err, payment.ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError maps domain errors to a status. Internal errors are
// logged and hidden from the client.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("correlation_id", getCorrelationID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}

	msg := err.Error()
	var stockErr *catalog.StockError
	if errors.As(err, &stockErr) {
		msg = stockErr.Error()
	}
	writeError(w, status, msg)
}
