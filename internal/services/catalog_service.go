package services

import (
	"database/sql"
	"errors"
	"fmt"

	"markethub-backend/internal/models"
)

var ErrVariantNotFound = errors.New("variant not found")

// CatalogService serves the merged product catalog
type CatalogService struct {
	db *sql.DB
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *sql.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListVariants returns every catalog variant with all sellers' price rows
// merged in. Variants from different sellers that describe the same model
// collapse into one entry at ingestion time, so no dedup happens here.
func (s *CatalogService) ListVariants() ([]*models.VariantListing, error) {
	rows, err := s.db.Query(`
		SELECT v.id, v.sku, c.title, b.title, p.title
		FROM variants v
		JOIN products p ON v.product_id = p.id
		JOIN brands b ON p.brand_id = b.id
		JOIN categories c ON p.category_id = c.id
		ORDER BY c.title, b.title, p.title, v.sku
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	listings := []*models.VariantListing{}
	for rows.Next() {
		listing := &models.VariantListing{}
		if err := rows.Scan(&listing.ID, &listing.SKU, &listing.Category, &listing.Brand, &listing.Title); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants: %w", err)
	}

	for _, listing := range listings {
		prices, err := s.pricesForVariant(listing.ID)
		if err != nil {
			return nil, err
		}
		listing.Prices = prices
	}

	return listings, nil
}

// GetVariant returns the detail view of one variant, including its
// characteristic-value pairs.
func (s *CatalogService) GetVariant(variantID string) (*models.VariantDetail, error) {
	detail := &models.VariantDetail{}
	err := s.db.QueryRow(`
		SELECT v.id, v.sku, c.title, b.title, p.title
		FROM variants v
		JOIN products p ON v.product_id = p.id
		JOIN brands b ON p.brand_id = b.id
		JOIN categories c ON p.category_id = c.id
		WHERE v.id = ?
	`, variantID).Scan(&detail.ID, &detail.SKU, &detail.Category, &detail.Brand, &detail.Title)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrVariantNotFound
		}
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}

	prices, err := s.pricesForVariant(variantID)
	if err != nil {
		return nil, err
	}
	detail.Prices = prices

	props, err := s.propsForVariant(variantID)
	if err != nil {
		return nil, err
	}
	detail.Props = props

	return detail, nil
}

func (s *CatalogService) pricesForVariant(variantID string) ([]models.PriceRow, error) {
	rows, err := s.db.Query(`
		SELECT pl.id, pl.product_price, pl.delivery_price, u.company, pl.in_stock, pl.price_date
		FROM pricelists pl
		JOIN users u ON pl.seller_id = u.id
		WHERE pl.variant_id = ?
		ORDER BY pl.product_price
	`, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	prices := []models.PriceRow{}
	for rows.Next() {
		var row models.PriceRow
		if err := rows.Scan(&row.ID, &row.ProductPrice, &row.DeliveryPrice, &row.Seller, &row.InStock, &row.PriceDate); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		prices = append(prices, row)
	}
	return prices, rows.Err()
}

func (s *CatalogService) propsForVariant(variantID string) ([]models.PropertyView, error) {
	rows, err := s.db.Query(`
		SELECT pr.title, pr.value
		FROM variant_properties vp
		JOIN properties pr ON vp.property_id = pr.id
		WHERE vp.variant_id = ?
		ORDER BY pr.title, pr.value
	`, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list props: %w", err)
	}
	defer rows.Close()

	props := []models.PropertyView{}
	for rows.Next() {
		var prop models.PropertyView
		if err := rows.Scan(&prop.Title, &prop.Value); err != nil {
			return nil, fmt.Errorf("failed to scan prop: %w", err)
		}
		props = append(props, prop)
	}
	return props, rows.Err()
}
