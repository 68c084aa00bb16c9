package models

import (
	"encoding/json"
	"time"
)

// Category represents a top-level product category
type Category struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// Brand represents a manufacturer brand
type Brand struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
}

// Product represents an abstract product model (category + brand + title)
type Product struct {
	ID         string `json:"id" db:"id"`
	CategoryID string `json:"categoryId" db:"category_id"`
	BrandID    string `json:"brandId" db:"brand_id"`
	Title      string `json:"title" db:"title"`
}

// Property represents a single characteristic-value pair shared between variants
type Property struct {
	ID    string `json:"id" db:"id"`
	Title string `json:"title" db:"title"`
	Value string `json:"value" db:"value"`
}

// Variant represents a concrete, SKU-identified configuration of a product
type Variant struct {
	ID        string `json:"id" db:"id"`
	SKU       string `json:"sku" db:"sku"`
	ProductID string `json:"productId" db:"product_id"`
}

// Pricelist represents one seller's offer for one variant. A (seller, variant)
// pair has at most one row; re-uploads update it in place.
type Pricelist struct {
	ID            string    `json:"id" db:"id"`
	SellerID      string    `json:"sellerId" db:"seller_id"`
	VariantID     string    `json:"variantId" db:"variant_id"`
	ProductPrice  int       `json:"product_price" db:"product_price"`
	DeliveryPrice int       `json:"delivery_price" db:"delivery_price"`
	InStock       int       `json:"in_stock" db:"in_stock"`
	Orderable     bool      `json:"orderable" db:"orderable"`
	PriceDate     time.Time `json:"price_date" db:"price_date"`
}

// PricelistFile represents an uploaded price-list file and its parse outcome.
// UploadResult holds the raw JSON result document exposed by the polling endpoint.
type PricelistFile struct {
	ID           string          `json:"id" db:"id"`
	SellerID     string          `json:"-" db:"seller_id"`
	FilePath     string          `json:"-" db:"file_path"`
	UploadResult json.RawMessage `json:"upload_result" db:"upload_result"`
	UploadedAt   time.Time       `json:"uploaded_at" db:"uploaded_at"`
}

// UploadError is the structured parse failure stored under the "error" key
// of an upload result.
type UploadError struct {
	Line   int    `json:"line"`
	Value  string `json:"value,omitempty"`
	Detail string `json:"detail"`
}

// PriceRow is one seller's offer as shown in the merged catalog
type PriceRow struct {
	ID            string    `json:"id"`
	ProductPrice  int       `json:"product_price"`
	DeliveryPrice int       `json:"delivery_price"`
	Seller        string    `json:"seller"`
	InStock       int       `json:"in_stock"`
	PriceDate     time.Time `json:"price_date"`
}

// PropertyView is a characteristic-value pair as shown on a variant detail
type PropertyView struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// VariantListing is one catalog entry: a variant with its product identity
// and every seller's price row merged in.
type VariantListing struct {
	ID       string     `json:"id"`
	SKU      string     `json:"sku"`
	Category string     `json:"category"`
	Brand    string     `json:"brand"`
	Title    string     `json:"title"`
	Prices   []PriceRow `json:"prices"`
}

// VariantDetail is the single-variant view; adds the property set.
type VariantDetail struct {
	VariantListing
	Props []PropertyView `json:"props"`
}
