package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryElectronics Category = "Electronics & Accessories"
	CategoryFashion     Category = "Fashion & Apparel"
	CategoryHome        Category = "Home & Living"
	CategoryBeauty      Category = "Beauty & Personal Care"
	CategorySports      Category = "Sports & Outdoors"
	CategoryBooks       Category = "Books & Stationery"
	CategoryToys        Category = "Toys & Baby Products"
)

var Categories = []Category{
	CategoryElectronics,
	CategoryFashion,
	CategoryHome,
	CategoryBeauty,
	CategorySports,
	CategoryBooks,
	CategoryToys,
}

// ParseCategory matches s against the known categories, ignoring case.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

type Product struct {
	ID          string          `json:"productId"`
	Name        string          `json:"name"`
	SellerID    string          `json:"sellerId,omitempty"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    Category        `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (p Product) InStock() bool { return p.Stock > 0 }
