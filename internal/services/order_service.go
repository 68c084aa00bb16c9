package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"markethub-backend/internal/models"
	"markethub-backend/internal/utils"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrOrderForbidden = errors.New("order belongs to another user")
)

// OrderService serves placed orders through role-scoped views: buyers see
// their own orders whole, sellers see only the orders containing their
// listings, filtered down to their own lines.
type OrderService struct {
	db *sql.DB
}

// NewOrderService creates a new order service
func NewOrderService(db *sql.DB) *OrderService {
	return &OrderService{db: db}
}

// GetOrderByID loads the bare order row
func (s *OrderService) GetOrderByID(orderID string) (*models.Order, error) {
	order := &models.Order{}
	err := s.db.QueryRow(
		`SELECT id, customer_id, status, address, created_at, updated_at FROM orders WHERE id = ?`,
		orderID,
	).Scan(&order.ID, &order.CustomerID, &order.Status, &order.Address, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListForBuyer lists the buyer's placed orders, newest first
func (s *OrderService) ListForBuyer(customerID string) ([]*models.BuyerOrderView, error) {
	rows, err := s.db.Query(
		`SELECT id, status, address FROM orders WHERE customer_id = ? AND status != ? ORDER BY created_at DESC`,
		customerID, models.OrderStatusInCart,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	views := []*models.BuyerOrderView{}
	for rows.Next() {
		view := &models.BuyerOrderView{}
		if err := rows.Scan(&view.ID, &view.Status, &view.Address); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	for _, view := range views {
		summary, err := s.orderSummary(view.ID, "")
		if err != nil {
			return nil, err
		}
		view.Summary = summary
	}

	return views, nil
}

// GetForBuyer returns the buyer's detail view of one placed order
func (s *OrderService) GetForBuyer(orderID, customerID string) (*models.BuyerOrderView, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusInCart {
		return nil, ErrOrderNotFound
	}
	if order.CustomerID != customerID {
		return nil, ErrOrderForbidden
	}

	view := &models.BuyerOrderView{
		ID:        order.ID,
		Status:    order.Status,
		Address:   order.Address,
		CreatedAt: order.CreatedAt,
	}

	summary, err := s.orderSummary(orderID, "")
	if err != nil {
		return nil, err
	}
	view.Summary = summary

	rows, err := s.db.Query(`
		SELECT oi.pricelist_id, p.title, u.company, pl.product_price, pl.delivery_price, oi.quantity
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		JOIN variants v ON pl.variant_id = v.id
		JOIN products p ON v.product_id = p.id
		JOIN users u ON pl.seller_id = u.id
		WHERE oi.order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	view.Items = []models.BuyerOrderItemView{}
	for rows.Next() {
		var item models.BuyerOrderItemView
		if err := rows.Scan(
			&item.PricelistID, &item.Product, &item.Seller,
			&item.ProductPrice, &item.DeliveryPrice, &item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		view.Items = append(view.Items, item)
	}
	return view, rows.Err()
}

// ListForSeller lists placed orders containing at least one of the
// seller's listings. Totals cover only that seller's lines.
func (s *OrderService) ListForSeller(sellerID string) ([]*models.SellerOrderView, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT o.id, o.status, o.address, o.created_at, u.last_name || ' ' || u.first_name, u.company
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		JOIN users u ON o.customer_id = u.id
		WHERE pl.seller_id = ? AND o.status != ?
		ORDER BY o.created_at DESC
	`, sellerID, models.OrderStatusInCart)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller orders: %w", err)
	}
	defer rows.Close()

	views := []*models.SellerOrderView{}
	for rows.Next() {
		view := &models.SellerOrderView{}
		if err := rows.Scan(&view.ID, &view.Status, &view.Address, &view.CreatedAt, &view.Customer, &view.Company); err != nil {
			return nil, fmt.Errorf("failed to scan seller order: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate seller orders: %w", err)
	}

	for _, view := range views {
		summary, err := s.orderSummary(view.ID, sellerID)
		if err != nil {
			return nil, err
		}
		view.Summary = summary
	}

	return views, nil
}

// GetForSeller returns the seller's detail view of one order, with items
// filtered to the seller's own lines.
func (s *OrderService) GetForSeller(orderID, sellerID string) (*models.SellerOrderView, error) {
	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusInCart {
		return nil, ErrOrderNotFound
	}

	involved, err := s.sellerInvolved(orderID, sellerID)
	if err != nil {
		return nil, err
	}
	if !involved {
		return nil, ErrOrderForbidden
	}

	view := &models.SellerOrderView{
		ID:        order.ID,
		Status:    order.Status,
		Address:   order.Address,
		CreatedAt: order.CreatedAt,
	}

	err = s.db.QueryRow(
		`SELECT last_name || ' ' || first_name, company FROM users WHERE id = ?`,
		order.CustomerID,
	).Scan(&view.Customer, &view.Company)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	summary, err := s.orderSummary(orderID, sellerID)
	if err != nil {
		return nil, err
	}
	view.Summary = summary

	rows, err := s.db.Query(`
		SELECT oi.pricelist_id, p.title, v.sku, pl.product_price, pl.delivery_price, pl.in_stock, oi.quantity
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		JOIN variants v ON pl.variant_id = v.id
		JOIN products p ON v.product_id = p.id
		WHERE oi.order_id = ? AND pl.seller_id = ?
	`, orderID, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seller order items: %w", err)
	}
	defer rows.Close()

	view.Items = []models.SellerOrderItemView{}
	for rows.Next() {
		var item models.SellerOrderItemView
		if err := rows.Scan(
			&item.PricelistID, &item.Product, &item.SKU,
			&item.ProductPrice, &item.DeliveryPrice, &item.InStock, &item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan seller order item: %w", err)
		}
		view.Items = append(view.Items, item)
	}
	return view, rows.Err()
}

// UpdateStatus changes a placed order's status. Only sellers with at
// least one line in the order may do this; in_cart is not a reachable
// target status.
func (s *OrderService) UpdateStatus(orderID, sellerID string, update *models.OrderStatusUpdate) (*models.SellerOrderView, error) {
	if err := utils.ValidateStruct(update); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	allowed := []string{
		string(models.OrderStatusAccepted),
		string(models.OrderStatusSent),
		string(models.OrderStatusComplete),
		string(models.OrderStatusCancelled),
	}
	if !utils.Contains(allowed, update.Status) {
		return nil, fmt.Errorf("validation error: invalid status %q", update.Status)
	}

	order, err := s.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusInCart {
		return nil, ErrOrderNotFound
	}

	involved, err := s.sellerInvolved(orderID, sellerID)
	if err != nil {
		return nil, err
	}
	if !involved {
		return nil, ErrOrderForbidden
	}

	_, err = s.db.Exec(
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		update.Status, time.Now(), orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	return s.GetForSeller(orderID, sellerID)
}

// SellerIDsForOrder returns the distinct sellers with lines in the order
func (s *OrderService) SellerIDsForOrder(orderID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT pl.seller_id
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		WHERE oi.order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order sellers: %w", err)
	}
	defer rows.Close()

	var sellerIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan seller id: %w", err)
		}
		sellerIDs = append(sellerIDs, id)
	}
	return sellerIDs, rows.Err()
}

func (s *OrderService) sellerInvolved(orderID, sellerID string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		WHERE oi.order_id = ? AND pl.seller_id = ?
	`, orderID, sellerID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check seller involvement: %w", err)
	}
	return count > 0, nil
}

// orderSummary totals an order's lines. A non-empty sellerID restricts
// the totals to that seller's lines.
func (s *OrderService) orderSummary(orderID, sellerID string) (models.OrderSummary, error) {
	query := `
		SELECT COALESCE(SUM(pl.product_price * oi.quantity), 0),
		       COALESCE(SUM(pl.delivery_price * oi.quantity), 0)
		FROM order_items oi
		JOIN pricelists pl ON oi.pricelist_id = pl.id
		WHERE oi.order_id = ?
	`
	args := []interface{}{orderID}
	if sellerID != "" {
		query += ` AND pl.seller_id = ?`
		args = append(args, sellerID)
	}

	var summary models.OrderSummary
	if err := s.db.QueryRow(query, args...).Scan(&summary.ProductsTotal, &summary.DeliveryTotal); err != nil {
		return summary, fmt.Errorf("failed to total order: %w", err)
	}
	summary.Total = summary.ProductsTotal + summary.DeliveryTotal
	return summary, nil
}
