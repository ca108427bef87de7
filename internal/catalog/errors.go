package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrForbidden         = errors.New("only sellers can create products")
)

// StockError reports a request for more units than a product has.
// It matches ErrInsufficientStock with errors.Is.
type StockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("only %d of %s in stock", e.Available, name)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// CheckStock returns a *StockError when requested exceeds p.Stock.
func CheckStock(p Product, requested int) error {
	if requested < 0 || requested > p.Stock {
		return &StockError{ProductID: p.ID, Name: p.Name, Requested: requested, Available: p.Stock}
	}
	return nil
}

// CheckAdditional reports whether more units fit on top of held units
// without forming the sum, so huge requests cannot wrap around.
func CheckAdditional(p Product, held, more int) error {
	if more < 0 || held < 0 || more > p.Stock-held {
		return &StockError{ProductID: p.ID, Name: p.Name, Requested: more, Available: p.Stock}
	}
	return nil
}
