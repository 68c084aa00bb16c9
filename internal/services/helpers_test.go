package services

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"markethub-backend/database"
	"markethub-backend/internal/models"
)

// newTestDB opens a throwaway file-backed database with the full schema
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=1"
	db, err := database.Initialize(dsn)
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *sql.DB, email, company string, role models.UserRole) *models.User {
	t.Helper()

	userService := NewUserService(db)
	user, err := userService.CreateUser(&models.UserRegistration{
		LastName:  "Doe",
		FirstName: "Jane",
		Company:   company,
		Email:     email,
		Password:  "password123",
		Role:      string(role),
	})
	require.NoError(t, err)
	return user
}

// seedListing plants a full catalog chain (category, brand, product,
// variant, pricelist) and returns the pricelist row ID.
func seedListing(t *testing.T, db *sql.DB, sellerID, sku, title string, price, delivery, stock int) string {
	t.Helper()

	categoryID := uuid.New().String()
	_, err := db.Exec(`INSERT OR IGNORE INTO categories (id, title) VALUES (?, 'electronics')`, categoryID)
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT id FROM categories WHERE title = 'electronics'`).Scan(&categoryID))

	brandID := uuid.New().String()
	_, err = db.Exec(`INSERT OR IGNORE INTO brands (id, title) VALUES (?, 'acme')`, brandID)
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT id FROM brands WHERE title = 'acme'`).Scan(&brandID))

	var productID string
	err = db.QueryRow(
		`SELECT id FROM products WHERE category_id = ? AND brand_id = ? AND title = ?`,
		categoryID, brandID, title,
	).Scan(&productID)
	if err == sql.ErrNoRows {
		productID = uuid.New().String()
		_, err = db.Exec(
			`INSERT INTO products (id, category_id, brand_id, title) VALUES (?, ?, ?, ?)`,
			productID, categoryID, brandID, title,
		)
	}
	require.NoError(t, err)

	var variantID string
	err = db.QueryRow(`SELECT id FROM variants WHERE sku = ?`, sku).Scan(&variantID)
	if err == sql.ErrNoRows {
		variantID = uuid.New().String()
		_, err = db.Exec(`INSERT INTO variants (id, sku, product_id) VALUES (?, ?, ?)`, variantID, sku, productID)
	}
	require.NoError(t, err)

	pricelistID := uuid.New().String()
	_, err = db.Exec(
		`INSERT INTO pricelists (id, seller_id, variant_id, product_price, delivery_price, in_stock, orderable)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pricelistID, sellerID, variantID, price, delivery, stock, stock > 0,
	)
	require.NoError(t, err)

	return pricelistID
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// fakeEmailSender collects outgoing mail instead of talking to SMTP
type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmailSender) Send(toEmail, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: toEmail, Subject: subject, Body: body})
	return nil
}

func (f *fakeEmailSender) SendRegistrationEmail(toEmail, fullName, password string) error {
	return f.Send(toEmail, "registration", fullName)
}

func (f *fakeEmailSender) SendPasswordResetEmail(toEmail, fullName, newPassword string) error {
	return f.Send(toEmail, "password reset", newPassword)
}

func (f *fakeEmailSender) outbox() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}
