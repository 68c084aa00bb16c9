package models

import "time"

// OrderStatus represents order lifecycle states. An order starts life as the
// buyer's cart (in_cart) and becomes a real order at checkout.
type OrderStatus string

const (
	OrderStatusInCart    OrderStatus = "in_cart"
	OrderStatusAccepted  OrderStatus = "accepted"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusComplete  OrderStatus = "complete"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order represents both a buyer's cart and a placed order
type Order struct {
	ID         string      `json:"id" db:"id"`
	CustomerID string      `json:"customerId" db:"customer_id"`
	Status     OrderStatus `json:"status" db:"status"`
	Address    *string     `json:"address,omitempty" db:"address"`
	CreatedAt  *time.Time  `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  time.Time   `json:"-" db:"updated_at"`
}

// OrderItem represents one cart/order line referencing a seller's pricelist row
type OrderItem struct {
	ID          string `json:"id" db:"id"`
	OrderID     string `json:"orderId" db:"order_id"`
	PricelistID string `json:"pricelist" db:"pricelist_id"`
	Quantity    int    `json:"quantity" db:"quantity"`
}

// CartItemInput is one line of a cart replace request
type CartItemInput struct {
	PricelistID string `json:"pricelist" validate:"required"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}

// CartUpdate replaces the whole cart contents
type CartUpdate struct {
	Items []CartItemInput `json:"items" validate:"required"`
}

// CheckoutRequest carries the delivery address for checkout
type CheckoutRequest struct {
	Address string `json:"address"`
}

// OrderStatusUpdate changes a placed order's status
type OrderStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=accepted sent complete cancelled"`
}

// OrderSummary holds order totals. For a seller viewer the totals cover
// only that seller's lines.
type OrderSummary struct {
	ProductsTotal int `json:"products_total"`
	DeliveryTotal int `json:"delivery_total"`
	Total         int `json:"total"`
}

// CartItemView is one cart line with its catalog context
type CartItemView struct {
	PricelistID   string `json:"pricelist"`
	Product       string `json:"product"`
	Seller        string `json:"seller"`
	ProductPrice  int    `json:"product_price"`
	DeliveryPrice int    `json:"delivery_price"`
	InStock       int    `json:"in_stock"`
	Quantity      int    `json:"quantity"`
}

// CartView is the buyer's current cart
type CartView struct {
	ID      string         `json:"id"`
	Status  OrderStatus    `json:"status"`
	Items   []CartItemView `json:"items"`
	Summary OrderSummary   `json:"summary"`
}

// BuyerOrderItemView is an order line as the buyer sees it
type BuyerOrderItemView struct {
	PricelistID   string `json:"pricelist"`
	Product       string `json:"product"`
	Seller        string `json:"seller"`
	ProductPrice  int    `json:"product_price"`
	DeliveryPrice int    `json:"delivery_price"`
	Quantity      int    `json:"quantity"`
}

// SellerOrderItemView is an order line as a seller sees it; only the
// seller's own lines are ever rendered with this view.
type SellerOrderItemView struct {
	PricelistID   string `json:"pricelist"`
	Product       string `json:"product"`
	SKU           string `json:"sku"`
	ProductPrice  int    `json:"product_price"`
	DeliveryPrice int    `json:"delivery_price"`
	InStock       int    `json:"in_stock"`
	Quantity      int    `json:"quantity"`
}

// BuyerOrderView is a placed order as the buyer sees it. Items and
// CreatedAt are filled on the detail view only.
type BuyerOrderView struct {
	ID        string               `json:"id"`
	Status    OrderStatus          `json:"status"`
	Address   *string              `json:"address"`
	Summary   OrderSummary         `json:"summary"`
	CreatedAt *time.Time           `json:"created_at,omitempty"`
	Items     []BuyerOrderItemView `json:"items,omitempty"`
}

// SellerOrderView is a placed order as a seller sees it: customer identity
// plus the seller's own lines and line totals.
type SellerOrderView struct {
	ID        string                `json:"id"`
	Status    OrderStatus           `json:"status"`
	Address   *string               `json:"address"`
	Customer  string                `json:"customer"`
	Company   string                `json:"company"`
	Summary   OrderSummary          `json:"summary"`
	CreatedAt *time.Time            `json:"created_at,omitempty"`
	Items     []SellerOrderItemView `json:"items,omitempty"`
}
