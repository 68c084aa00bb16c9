package services

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"markethub-backend/internal/models"
	"markethub-backend/internal/utils"
)

var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrNotUploadOwner = errors.New("upload belongs to another seller")
)

// The seven fixed columns of every price-list line, in order. The
// remaining columns are characteristic-value pairs.
var fixedColumns = []struct {
	name  string
	isInt bool
}{
	{"category title", false},
	{"brand name", false},
	{"product model", false},
	{"product sku", false},
	{"quantity", true},
	{"price", true},
	{"delivery price", true},
}

// PricelistService ingests uploaded price-list files into the catalog
type PricelistService struct {
	db *sql.DB
}

// NewPricelistService creates a new pricelist service
func NewPricelistService(db *sql.DB) *PricelistService {
	return &PricelistService{db: db}
}

// CreateUpload records an uploaded file pending parsing
func (s *PricelistService) CreateUpload(sellerID, filePath string) (*models.PricelistFile, error) {
	file := &models.PricelistFile{
		ID:           uuid.New().String(),
		SellerID:     sellerID,
		FilePath:     filePath,
		UploadResult: json.RawMessage(`{"status": "parsing"}`),
		UploadedAt:   time.Now(),
	}

	_, err := s.db.Exec(
		`INSERT INTO pricelist_files (id, seller_id, file_path, upload_result, uploaded_at) VALUES (?, ?, ?, ?, ?)`,
		file.ID, file.SellerID, file.FilePath, string(file.UploadResult), file.UploadedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	return file, nil
}

// GetUpload returns an upload record, enforcing that it belongs to the seller
func (s *PricelistService) GetUpload(fileID, sellerID string) (*models.PricelistFile, error) {
	file := &models.PricelistFile{}
	var result string
	err := s.db.QueryRow(
		`SELECT id, seller_id, file_path, upload_result, uploaded_at FROM pricelist_files WHERE id = ?`,
		fileID,
	).Scan(&file.ID, &file.SellerID, &file.FilePath, &result, &file.UploadedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("failed to get upload: %w", err)
	}

	if file.SellerID != sellerID {
		return nil, ErrNotUploadOwner
	}

	file.UploadResult = json.RawMessage(result)
	return file, nil
}

// Parse reads the uploaded file line by line and merges it into the
// catalog. The first line is a header and is skipped; data lines are
// numbered from 1. Parsing stops at the first bad line, but rows already
// ingested stay ingested. Whatever happens, the file is removed from disk
// and the terminal result is stored on the upload record.
func (s *PricelistService) Parse(fileID string) error {
	var sellerID, filePath string
	err := s.db.QueryRow(
		`SELECT seller_id, file_path FROM pricelist_files WHERE id = ?`, fileID,
	).Scan(&sellerID, &filePath)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrUploadNotFound
		}
		return fmt.Errorf("failed to load upload record: %w", err)
	}

	result := map[string]interface{}{"status": "parsed successfully"}
	defer func() {
		if filePath != "" {
			if rmErr := os.Remove(filePath); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Printf("Failed to remove uploaded file %s: %v", filePath, rmErr)
			}
		}
		payload, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			payload = []byte(`{"error": {"detail": "internal error"}}`)
		}
		if _, saveErr := s.db.Exec(
			`UPDATE pricelist_files SET upload_result = ?, file_path = '' WHERE id = ?`,
			string(payload), fileID,
		); saveErr != nil {
			log.Printf("Failed to store upload result for %s: %v", fileID, saveErr)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		result = map[string]interface{}{"error": map[string]string{"detail": "failed to read uploaded file"}}
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNumber := 0
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		lineNumber++

		uploadErr, err := s.ingestLine(sellerID, lineNumber, scanner.Text())
		if err != nil {
			result = map[string]interface{}{"error": map[string]string{"detail": "internal error during parsing"}}
			return fmt.Errorf("failed to ingest line %d: %w", lineNumber, err)
		}
		if uploadErr != nil {
			result = map[string]interface{}{"error": uploadErr}
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		result = map[string]interface{}{"error": map[string]string{"detail": "failed to read uploaded file"}}
		return fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return nil
}

// ingestLine validates and ingests one data line. A *models.UploadError
// return means the line is malformed; an error return means the database
// or filesystem failed.
func (s *PricelistService) ingestLine(sellerID string, lineNumber int, raw string) (*models.UploadError, error) {
	fields := strings.Split(raw, ",")

	// Valid lines have 7 fixed columns plus whole characteristic-value
	// pairs, so the total count is always odd and at least 7.
	if len(fields) < len(fixedColumns) || len(fields)%2 == 0 {
		return &models.UploadError{
			Line:   lineNumber,
			Detail: "wrong column count (not enough `characteristic-value` pairs)",
		}, nil
	}

	for i, col := range fixedColumns {
		_, convErr := strconv.Atoi(strings.TrimSpace(fields[i]))
		isInt := convErr == nil
		if isInt != col.isInt {
			typeName := "str"
			if col.isInt {
				typeName = "int"
			}
			return &models.UploadError{
				Line:   lineNumber,
				Value:  fields[i],
				Detail: fmt.Sprintf("Field `%s` (index %d) must be of type %s", col.name, i, typeName),
			}, nil
		}
	}

	categoryID, err := s.getOrCreateByTitle("categories", utils.NormalizeTitle(fields[0]))
	if err != nil {
		return nil, err
	}
	brandID, err := s.getOrCreateByTitle("brands", utils.NormalizeTitle(fields[1]))
	if err != nil {
		return nil, err
	}
	productID, err := s.getOrCreateProduct(categoryID, brandID, utils.NormalizeTitle(fields[2]))
	if err != nil {
		return nil, err
	}
	variantID, err := s.getOrCreateVariant(strings.TrimSpace(fields[3]), productID)
	if err != nil {
		return nil, err
	}

	quantity, _ := strconv.Atoi(strings.TrimSpace(fields[4]))
	price, _ := strconv.Atoi(strings.TrimSpace(fields[5]))
	delivery, _ := strconv.Atoi(strings.TrimSpace(fields[6]))

	if err := s.upsertPricelist(sellerID, variantID, price, delivery, quantity); err != nil {
		return nil, err
	}

	for i := len(fixedColumns); i+1 < len(fields); i += 2 {
		propID, err := s.getOrCreateProperty(utils.NormalizeTitle(fields[i]), utils.NormalizeTitle(fields[i+1]))
		if err != nil {
			return nil, err
		}
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO variant_properties (variant_id, property_id) VALUES (?, ?)`,
			variantID, propID,
		); err != nil {
			return nil, fmt.Errorf("failed to attach property: %w", err)
		}
	}

	return nil, nil
}

// getOrCreateByTitle works for the two title-keyed lookup tables
// (categories, brands).
func (s *PricelistService) getOrCreateByTitle(table, title string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM `+table+` WHERE title = ?`, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up %s: %w", table, err)
	}

	id = uuid.New().String()
	if _, err := s.db.Exec(`INSERT INTO `+table+` (id, title) VALUES (?, ?)`, id, title); err != nil {
		return "", fmt.Errorf("failed to create %s row: %w", table, err)
	}
	return id, nil
}

func (s *PricelistService) getOrCreateProduct(categoryID, brandID, title string) (string, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM products WHERE category_id = ? AND brand_id = ? AND title = ?`,
		categoryID, brandID, title,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up product: %w", err)
	}

	id = uuid.New().String()
	if _, err := s.db.Exec(
		`INSERT INTO products (id, category_id, brand_id, title) VALUES (?, ?, ?, ?)`,
		id, categoryID, brandID, title,
	); err != nil {
		return "", fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

func (s *PricelistService) getOrCreateVariant(sku, productID string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM variants WHERE sku = ?`, sku).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up variant: %w", err)
	}

	id = uuid.New().String()
	if _, err := s.db.Exec(
		`INSERT INTO variants (id, sku, product_id) VALUES (?, ?, ?)`,
		id, sku, productID,
	); err != nil {
		return "", fmt.Errorf("failed to create variant: %w", err)
	}
	return id, nil
}

func (s *PricelistService) getOrCreateProperty(title, value string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM properties WHERE title = ? AND value = ?`, title, value).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up property: %w", err)
	}

	id = uuid.New().String()
	if _, err := s.db.Exec(
		`INSERT INTO properties (id, title, value) VALUES (?, ?, ?)`,
		id, title, value,
	); err != nil {
		return "", fmt.Errorf("failed to create property: %w", err)
	}
	return id, nil
}

// upsertPricelist creates or refreshes the seller's offer for a variant.
// A repeated upload replaces price, stock and price date in place.
func (s *PricelistService) upsertPricelist(sellerID, variantID string, price, delivery, quantity int) error {
	orderable := quantity > 0
	now := time.Now()

	var id string
	err := s.db.QueryRow(
		`SELECT id FROM pricelists WHERE seller_id = ? AND variant_id = ?`,
		sellerID, variantID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(
			`INSERT INTO pricelists (id, seller_id, variant_id, product_price, delivery_price, in_stock, orderable, price_date)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), sellerID, variantID, price, delivery, quantity, orderable, now,
		)
		if err != nil {
			return fmt.Errorf("failed to create pricelist row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up pricelist: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE pricelists SET product_price = ?, delivery_price = ?, in_stock = ?, orderable = ?, price_date = ? WHERE id = ?`,
		price, delivery, quantity, orderable, now, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update pricelist row: %w", err)
	}
	return nil
}
