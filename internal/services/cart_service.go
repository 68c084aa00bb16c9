package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"markethub-backend/internal/models"
	"markethub-backend/internal/utils"
)

var (
	ErrCartEmpty        = errors.New("cart is empty")
	ErrAddressRequired  = errors.New("address is required")
	ErrPricelistMissing = errors.New("pricelist not found")
)

// StockError reports a cart line whose quantity exceeds the seller's stock
type StockError struct {
	PricelistID string `json:"pricelist_id"`
	Product     string `json:"product"`
	InStock     int    `json:"in_stock"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (pricelist %s, in stock %d)", e.Product, e.PricelistID, e.InStock)
}

// CartService manages the buyer's cart and turns it into a placed order
type CartService struct {
	db        *sql.DB
	taskQueue *TaskQueue
}

// NewCartService creates a new cart service
func NewCartService(db *sql.DB, taskQueue *TaskQueue) *CartService {
	return &CartService{db: db, taskQueue: taskQueue}
}

// GetCart returns the buyer's open cart, creating an empty one on first use
func (s *CartService) GetCart(customerID string) (*models.CartView, error) {
	cartID, err := s.getOrCreateCartID(customerID)
	if err != nil {
		return nil, err
	}
	return s.loadCartView(cartID)
}

// ReplaceItems replaces the whole cart contents. Every line is validated
// against the seller's current stock before anything is written.
func (s *CartService) ReplaceItems(customerID string, update *models.CartUpdate) (*models.CartView, error) {
	if err := utils.ValidateStruct(update); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	for i := range update.Items {
		if err := utils.ValidateStruct(&update.Items[i]); err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
	}

	for _, item := range update.Items {
		var inStock int
		var product string
		err := s.db.QueryRow(`
			SELECT pl.in_stock, p.title
			FROM pricelists pl
			JOIN variants v ON pl.variant_id = v.id
			JOIN products p ON v.product_id = p.id
			WHERE pl.id = ?
		`, item.PricelistID).Scan(&inStock, &product)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, ErrPricelistMissing
			}
			return nil, fmt.Errorf("failed to check pricelist: %w", err)
		}
		if item.Quantity > inStock {
			return nil, &StockError{PricelistID: item.PricelistID, Product: product, InStock: inStock}
		}
	}

	cartID, err := s.getOrCreateCartID(customerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM order_items WHERE order_id = ?`, cartID); err != nil {
		return nil, fmt.Errorf("failed to clear cart items: %w", err)
	}
	for _, item := range update.Items {
		if _, err := tx.Exec(
			`INSERT INTO order_items (id, order_id, pricelist_id, quantity) VALUES (?, ?, ?, ?)`,
			uuid.New().String(), cartID, item.PricelistID, item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to insert cart item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cart update: %w", err)
	}

	return s.loadCartView(cartID)
}

// ClearCart removes every item from the buyer's cart
func (s *CartService) ClearCart(customerID string) error {
	var cartID string
	err := s.db.QueryRow(
		`SELECT id FROM orders WHERE customer_id = ? AND status = ?`,
		customerID, models.OrderStatusInCart,
	).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to find cart: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM order_items WHERE order_id = ?`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Checkout turns the cart into an accepted order. Stock is claimed with a
// conditional decrement per line inside one transaction, so two buyers
// racing for the same stock can never both win; the loser gets a
// StockError naming the offending line and nothing is written.
func (s *CartService) Checkout(customerID, address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ErrAddressRequired
	}

	var cartID string
	err := s.db.QueryRow(
		`SELECT id FROM orders WHERE customer_id = ? AND status = ?`,
		customerID, models.OrderStatusInCart,
	).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrCartEmpty
		}
		return "", fmt.Errorf("failed to find cart: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Read the lines inside the claim transaction so the placed order
	// matches exactly what gets decremented, even if the cart is
	// mutated concurrently.
	type cartLine struct {
		pricelistID string
		quantity    int
	}
	rows, err := tx.Query(`SELECT pricelist_id, quantity FROM order_items WHERE order_id = ?`, cartID)
	if err != nil {
		return "", fmt.Errorf("failed to load cart items: %w", err)
	}
	var lines []cartLine
	for rows.Next() {
		var line cartLine
		if err := rows.Scan(&line.pricelistID, &line.quantity); err != nil {
			rows.Close()
			return "", fmt.Errorf("failed to scan cart item: %w", err)
		}
		lines = append(lines, line)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to iterate cart items: %w", err)
	}

	if len(lines) == 0 {
		return "", ErrCartEmpty
	}

	for _, line := range lines {
		res, err := tx.Exec(`
			UPDATE pricelists
			SET in_stock = in_stock - ?,
			    orderable = CASE WHEN in_stock - ? > 0 THEN 1 ELSE 0 END
			WHERE id = ? AND in_stock >= ?
		`, line.quantity, line.quantity, line.pricelistID, line.quantity)
		if err != nil {
			return "", fmt.Errorf("failed to claim stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("failed to read claim result: %w", err)
		}
		if affected == 0 {
			stockErr := &StockError{PricelistID: line.pricelistID}
			// Read the losing line's current state for the error payload.
			if qErr := s.db.QueryRow(`
				SELECT pl.in_stock, p.title
				FROM pricelists pl
				JOIN variants v ON pl.variant_id = v.id
				JOIN products p ON v.product_id = p.id
				WHERE pl.id = ?
			`, line.pricelistID).Scan(&stockErr.InStock, &stockErr.Product); qErr != nil {
				log.Printf("Failed to load stock error detail for %s: %v", line.pricelistID, qErr)
			}
			return "", stockErr
		}
	}

	now := time.Now()
	if _, err := tx.Exec(
		`UPDATE orders SET status = ?, address = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		models.OrderStatusAccepted, address, now, now, cartID,
	); err != nil {
		return "", fmt.Errorf("failed to place order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit checkout: %w", err)
	}

	if err := s.taskQueue.EnqueueOrderEmails(cartID); err != nil {
		log.Printf("Failed to enqueue order emails for %s: %v", cartID, err)
	}

	return cartID, nil
}

// getOrCreateCartID finds the buyer's open cart or creates one. The
// partial unique index on (customer_id, in_cart) makes the create race
// safe: a concurrent insert fails and the retry finds the winner's row.
func (s *CartService) getOrCreateCartID(customerID string) (string, error) {
	var cartID string
	err := s.db.QueryRow(
		`SELECT id FROM orders WHERE customer_id = ? AND status = ?`,
		customerID, models.OrderStatusInCart,
	).Scan(&cartID)
	if err == nil {
		return cartID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to find cart: %w", err)
	}

	cartID = uuid.New().String()
	_, err = s.db.Exec(
		`INSERT INTO orders (id, customer_id, status, updated_at) VALUES (?, ?, ?, ?)`,
		cartID, customerID, models.OrderStatusInCart, time.Now(),
	)
	if err != nil {
		var existingID string
		if qErr := s.db.QueryRow(
			`SELECT id FROM orders WHERE customer_id = ? AND status = ?`,
			customerID, models.OrderStatusInCart,
		).Scan(&existingID); qErr == nil {
			return existingID, nil
		}
		return "", fmt.Errorf("failed to create cart: %w", err)
	}

	return cartID, nil
}

func (s *CartService) loadCartView(cartID string) (*models.CartView, error) {
	view := &models.CartView{ID: cartID, Status: models.OrderStatusInCart, Items: []models.CartItemView{}}

	rows, err := s.db.Query(`
		SELECT oi.pricelist_id, p.title, u.company, pl.product_price, pl.delivery_price, pl.in_stock, oi.quantity
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		JOIN variants v ON pl.variant_id = v.id
		JOIN products p ON v.product_id = p.id
		JOIN users u ON pl.seller_id = u.id
		WHERE oi.order_id = ?
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart view: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.CartItemView
		if err := rows.Scan(
			&item.PricelistID, &item.Product, &item.Seller,
			&item.ProductPrice, &item.DeliveryPrice, &item.InStock, &item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		view.Items = append(view.Items, item)
		view.Summary.ProductsTotal += item.ProductPrice * item.Quantity
		view.Summary.DeliveryTotal += item.DeliveryPrice * item.Quantity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart items: %w", err)
	}

	view.Summary.Total = view.Summary.ProductsTotal + view.Summary.DeliveryTotal
	return view, nil
}
