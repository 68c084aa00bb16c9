package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// Initialize creates and returns a database connection
func Initialize(databaseURL string) (*sql.DB, error) {
	// Add SQLite-specific parameters for better concurrent access
	if databaseURL == "markethub.db" {
		databaseURL = "markethub.db?_busy_timeout=30000&_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_foreign_keys=1"
	}

	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(0) // No limit

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set SQLite pragmas for better concurrent access
	pragmas := []string{
		"PRAGMA busy_timeout = 30000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = 1000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = memory",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Printf("Warning: failed to set pragma %s: %v", pragma, err)
		}
	}

	log.Println("Database connection established successfully")
	return db, nil
}

// Migrate runs database migrations
func Migrate(db *sql.DB) error {
	migrations := []string{
		createUsersTable,
		createCategoriesTable,
		createBrandsTable,
		createProductsTable,
		createPropertiesTable,
		createVariantsTable,
		createVariantPropertiesTable,
		createPricelistsTable,
		createPricelistFilesTable,
		createOrdersTable,
		createOrderItemsTable,
		createActiveCartIndex,
		createPricelistIndexes,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    last_name TEXT NOT NULL,
    first_name TEXT NOT NULL,
    patronymic TEXT,
    company TEXT NOT NULL,
    role TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`

const createCategoriesTable = `
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    title TEXT UNIQUE NOT NULL
);`

const createBrandsTable = `
CREATE TABLE IF NOT EXISTS brands (
    id TEXT PRIMARY KEY,
    title TEXT UNIQUE NOT NULL
);`

const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
    id TEXT PRIMARY KEY,
    category_id TEXT NOT NULL,
    brand_id TEXT NOT NULL,
    title TEXT NOT NULL,
    UNIQUE(category_id, brand_id, title),
    FOREIGN KEY (category_id) REFERENCES categories(id),
    FOREIGN KEY (brand_id) REFERENCES brands(id)
);`

const createPropertiesTable = `
CREATE TABLE IF NOT EXISTS properties (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    value TEXT NOT NULL,
    UNIQUE(title, value)
);`

const createVariantsTable = `
CREATE TABLE IF NOT EXISTS variants (
    id TEXT PRIMARY KEY,
    sku TEXT UNIQUE NOT NULL,
    product_id TEXT NOT NULL,
    FOREIGN KEY (product_id) REFERENCES products(id)
);`

const createVariantPropertiesTable = `
CREATE TABLE IF NOT EXISTS variant_properties (
    variant_id TEXT NOT NULL,
    property_id TEXT NOT NULL,
    PRIMARY KEY (variant_id, property_id),
    FOREIGN KEY (variant_id) REFERENCES variants(id),
    FOREIGN KEY (property_id) REFERENCES properties(id)
);`

const createPricelistsTable = `
CREATE TABLE IF NOT EXISTS pricelists (
    id TEXT PRIMARY KEY,
    seller_id TEXT NOT NULL,
    variant_id TEXT NOT NULL,
    product_price INTEGER NOT NULL DEFAULT 0,
    delivery_price INTEGER NOT NULL DEFAULT 0,
    in_stock INTEGER NOT NULL DEFAULT 0,
    orderable BOOLEAN NOT NULL DEFAULT FALSE,
    price_date DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(seller_id, variant_id),
    FOREIGN KEY (seller_id) REFERENCES users(id),
    FOREIGN KEY (variant_id) REFERENCES variants(id)
);`

const createPricelistFilesTable = `
CREATE TABLE IF NOT EXISTS pricelist_files (
    id TEXT PRIMARY KEY,
    seller_id TEXT NOT NULL,
    file_path TEXT NOT NULL DEFAULT '',
    upload_result TEXT NOT NULL DEFAULT '{}',
    uploaded_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (seller_id) REFERENCES users(id)
);`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'in_cart',
    address TEXT,
    created_at DATETIME,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (customer_id) REFERENCES users(id)
);`

const createOrderItemsTable = `
CREATE TABLE IF NOT EXISTS order_items (
    id TEXT PRIMARY KEY,
    order_id TEXT NOT NULL,
    pricelist_id TEXT NOT NULL,
    quantity INTEGER NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(id),
    FOREIGN KEY (pricelist_id) REFERENCES pricelists(id)
);`

// A buyer has at most one open cart at a time.
const createActiveCartIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_active_cart
ON orders(customer_id) WHERE status = 'in_cart';`

const createPricelistIndexes = `
CREATE INDEX IF NOT EXISTS idx_pricelists_variant ON pricelists(variant_id);`
