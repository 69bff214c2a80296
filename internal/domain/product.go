package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxProductImages is the largest number of images a product may own.
const MaxProductImages = 3

// Product represents a product in the catalog.
// Category is populated on reads; writes only look at CategoryID.
type Product struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Price            decimal.Decimal  `json:"price"`
	OriginalPrice    *decimal.Decimal `json:"originalPrice,omitempty"`
	Discount         string           `json:"discount"`
	CategoryID       string           `json:"categoryId"`
	Category         *Category        `json:"category"`
	Images           []string         `json:"images"`
	Description      string           `json:"description"`
	Material         string           `json:"material"`
	CareInstructions string           `json:"careInstructions"`
	Sizes            []string         `json:"sizes"`
	Stock            int              `json:"stock"`
	Rating           float64          `json:"rating"`
	ReviewsCount     int              `json:"reviewsCount"`
	IsNew            bool             `json:"isNew"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NewProduct returns a product carrying the catalog defaults.
func NewProduct() *Product {
	return &Product{
		Images: []string{},
		Sizes:  []string{},
	}
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	c := *p
	c.Images = append([]string{}, p.Images...)
	c.Sizes = append([]string{}, p.Sizes...)
	if p.OriginalPrice != nil {
		op := *p.OriginalPrice
		c.OriginalPrice = &op
	}
	if p.Category != nil {
		cat := *p.Category
		c.Category = &cat
	}
	return &c
}
