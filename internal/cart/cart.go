package cart

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 2147483647")
	ErrInvalidOwner    = errors.New("cart must belong to exactly one of user or session")
)

// MaxQuantity is the largest line quantity the cart_items INTEGER column holds.
const MaxQuantity = math.MaxInt32

// ValidateQuantity rejects quantities outside 1..MaxQuantity.
func ValidateQuantity(quantity int) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	return nil
}

// Owner identifies a cart by user id or by anonymous session key, never both.
type Owner struct {
	UserID     string
	SessionKey string
}

func UserOwner(userID string) Owner { return Owner{UserID: strings.TrimSpace(userID)} }

func SessionOwner(key string) Owner { return Owner{SessionKey: strings.TrimSpace(key)} }

func (o Owner) Validate() error {
	if (o.UserID == "") == (o.SessionKey == "") {
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) IsUser() bool { return o.UserID != "" }

// Key is a stable string form used for cache keys and logs.
func (o Owner) Key() string {
	if o.IsUser() {
		return "user:" + o.UserID
	}
	return "session:" + o.SessionKey
}

type Item struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	ID         string
	UserID     string
	SessionKey string
	Items      []Item
	UpdatedAt  time.Time
}

func (c *Cart) Owner() Owner {
	if c.UserID != "" {
		return Owner{UserID: c.UserID}
	}
	return Owner{SessionKey: c.SessionKey}
}

// Quantity returns the quantity held for productID, or 0.
func (c *Cart) Quantity(productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

// Line is a cart item priced at the product's current price.
type Line struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type View struct {
	CartID    string          `json:"cartId,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Items     []Line          `json:"items"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"totalAmount"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
