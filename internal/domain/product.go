package domain

import "strings"

// Product is a catalog entry from the products collection.
type Product struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	BrandName    string `json:"brand_name,omitempty"`
	BrandAlias   string `json:"brandName,omitempty"`
	Variety      string `json:"variety,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
	Category     string `json:"category,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	Size         any    `json:"size,omitempty"`
	SizeRaw      string `json:"sizeRaw,omitempty"`
	SizeUnit     string `json:"sizeUnit,omitempty"`
	IsActive     bool   `json:"is_active"`
}

// Brand returns the brand field, falling back to the camel-cased alias some
// catalog imports use.
func (p Product) Brand() string {
	if p.BrandName != "" {
		return p.BrandName
	}
	return p.BrandAlias
}

// PriceRecord is a store-specific price from the current_prices collection.
type PriceRecord struct {
	ProductID     string  `json:"productId"`
	SupermarketID string  `json:"supermarketId"`
	Price         float64 `json:"price"`
	PriceDate     string  `json:"priceDate,omitempty"`
	LastUpdated   string  `json:"lastUpdated,omitempty"`
}

// ProductMatch is a product that passed the relevance threshold, with an
// optional cheapest-price preview attached.
type ProductMatch struct {
	Product
	SearchScore      float64  `json:"searchScore"`
	CheapestPrice    *float64 `json:"cheapestPrice,omitempty"`
	CheapestStore    string   `json:"cheapestStore,omitempty"`
	PriceDate        string   `json:"priceDate,omitempty"`
	PriceLastUpdated string   `json:"priceLastUpdated,omitempty"`
}

// AttachPreview copies the cheapest price onto the match.
func (m *ProductMatch) AttachPreview(p PriceRecord) {
	price := p.Price
	m.CheapestPrice = &price
	m.CheapestStore = p.SupermarketID
	m.PriceDate = p.PriceDate
	m.PriceLastUpdated = p.LastUpdated
}

var invalidBrands = map[string]struct{}{
	"n/a":       {},
	"none":      {},
	"null":      {},
	"undefined": {},
	"":          {},
	"no brand":  {},
	"generic":   {},
}

// IsValidBrand reports whether a brand name carries signal. Placeholder values
// and single characters are rejected.
func IsValidBrand(brand string) bool {
	normalized := strings.ToLower(strings.TrimSpace(brand))
	if len([]rune(normalized)) <= 1 {
		return false
	}
	_, invalid := invalidBrands[normalized]
	return !invalid
}
