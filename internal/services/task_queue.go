package services

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	"markethub-backend/internal/models"
	"markethub-backend/internal/utils"
)

// TaskType identifies a background job kind
type TaskType string

const (
	TaskParsePricelist TaskType = "parse_pricelist"
	TaskOrderEmails    TaskType = "order_emails"
)

// Task is one unit of background work. TargetID is the pricelist file ID
// or the order ID, depending on the type.
type Task struct {
	Type     TaskType
	TargetID string
}

// TaskQueue runs background jobs (price-list parsing, order emails) on a
// fixed pool of workers fed by a buffered channel. Enqueue is
// fire-and-forget; job failures are logged, never surfaced to callers.
type TaskQueue struct {
	tasks   chan Task
	workers int
	wg      sync.WaitGroup
	quit    chan struct{}

	pricelistService *PricelistService
	orderService     *OrderService
	userService      *UserService
	emailSender      EmailSender
}

// NewTaskQueue creates a task queue with the given buffer size and worker count
func NewTaskQueue(db *sql.DB, emailSender EmailSender, size, workers int) *TaskQueue {
	if size <= 0 {
		size = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &TaskQueue{
		tasks:            make(chan Task, size),
		workers:          workers,
		quit:             make(chan struct{}),
		pricelistService: NewPricelistService(db),
		orderService:     NewOrderService(db),
		userService:      NewUserService(db),
		emailSender:      emailSender,
	}
}

// Start launches the worker pool
func (q *TaskQueue) Start() {
	log.Printf("Starting task queue with %d workers...", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case task := <-q.tasks:
					q.process(task)
				case <-q.quit:
					return
				}
			}
		}()
	}
}

// Stop signals the workers and waits for them to finish their current task
func (q *TaskQueue) Stop() {
	log.Println("Stopping task queue...")
	close(q.quit)
	q.wg.Wait()
}

// Enqueue submits a task. A full queue drops the task with an error so
// the caller can decide whether that matters.
func (q *TaskQueue) Enqueue(task Task) error {
	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full, dropped %s task for %s", task.Type, task.TargetID)
	}
}

// EnqueueParsePricelist schedules parsing of an uploaded price-list file
func (q *TaskQueue) EnqueueParsePricelist(fileID string) error {
	return q.Enqueue(Task{Type: TaskParsePricelist, TargetID: fileID})
}

// EnqueueOrderEmails schedules the buyer and seller emails for a placed order
func (q *TaskQueue) EnqueueOrderEmails(orderID string) error {
	return q.Enqueue(Task{Type: TaskOrderEmails, TargetID: orderID})
}

// Pending returns the number of queued, unprocessed tasks
func (q *TaskQueue) Pending() int {
	return len(q.tasks)
}

func (q *TaskQueue) process(task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Task %s/%s panic recovered: %v", task.Type, task.TargetID, r)
		}
	}()

	var err error
	switch task.Type {
	case TaskParsePricelist:
		err = q.pricelistService.Parse(task.TargetID)
	case TaskOrderEmails:
		err = q.sendOrderEmails(task.TargetID)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	if err != nil {
		log.Printf("Task %s/%s failed: %v", task.Type, task.TargetID, err)
	}
}

// sendOrderEmails mails the buyer a full order confirmation and each
// involved seller a view limited to their own lines.
func (q *TaskQueue) sendOrderEmails(orderID string) error {
	order, err := q.orderService.GetOrderByID(orderID)
	if err != nil {
		return err
	}

	buyer, err := q.userService.GetUserByID(order.CustomerID)
	if err != nil {
		return err
	}

	buyerView, err := q.orderService.GetForBuyer(orderID, buyer.ID)
	if err != nil {
		return err
	}

	if err := q.emailSender.Send(
		buyer.Email,
		fmt.Sprintf("MarketHub - Order %s placed", order.ID),
		buyerOrderEmailBody(buyer, buyerView),
	); err != nil {
		log.Printf("Failed to send order email to buyer %s: %v", buyer.Email, err)
	}

	sellerIDs, err := q.orderService.SellerIDsForOrder(orderID)
	if err != nil {
		return err
	}

	for _, sellerID := range sellerIDs {
		seller, err := q.userService.GetUserByID(sellerID)
		if err != nil {
			log.Printf("Failed to load seller %s for order %s: %v", sellerID, orderID, err)
			continue
		}

		sellerView, err := q.orderService.GetForSeller(orderID, sellerID)
		if err != nil {
			log.Printf("Failed to build seller view for order %s: %v", orderID, err)
			continue
		}

		if err := q.emailSender.Send(
			seller.Email,
			fmt.Sprintf("MarketHub - New order %s", order.ID),
			sellerOrderEmailBody(seller, sellerView),
		); err != nil {
			log.Printf("Failed to send order email to seller %s: %v", seller.Email, err)
		}
	}

	return nil
}

func buyerOrderEmailBody(buyer *models.User, view *models.BuyerOrderView) string {
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your order <strong>%s</strong> has been placed.</p><ul>",
		buyer.GetFullName(), view.ID)
	for _, item := range view.Items {
		body += fmt.Sprintf("<li>%s x%d - %d (delivery %d) from %s</li>",
			item.Product, item.Quantity, item.ProductPrice, item.DeliveryPrice, item.Seller)
	}
	body += fmt.Sprintf("</ul><p>Products: %d<br>Delivery: %d<br>Total: <strong>%d</strong></p>",
		view.Summary.ProductsTotal, view.Summary.DeliveryTotal, view.Summary.Total)
	return body
}

func sellerOrderEmailBody(seller *models.User, view *models.SellerOrderView) string {
	body := fmt.Sprintf("<p>Hello %s,</p><p>You have a new order <strong>%s</strong> from %s (%s).</p><ul>",
		seller.GetFullName(), view.ID, view.Customer, view.Company)
	for _, item := range view.Items {
		body += fmt.Sprintf("<li>%s (sku %s) x%d - %d (delivery %d)</li>",
			item.Product, item.SKU, item.Quantity, item.ProductPrice, item.DeliveryPrice)
	}
	body += fmt.Sprintf("</ul><p>Your lines total: <strong>%d</strong></p>", view.Summary.Total)
	if addr := utils.DerefString(view.Address); addr != "" {
		body += fmt.Sprintf("<p>Delivery address: %s</p>", addr)
	}
	return body
}
