package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"markethub-backend/config"
	"markethub-backend/database"
	"markethub-backend/internal/middleware"
	"markethub-backend/internal/services"
)

type sentMail struct {
	To      string
	Subject string
}

// fakeEmailSender collects outgoing mail instead of talking to SMTP
type fakeEmailSender struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeEmailSender) Send(toEmail, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: toEmail, Subject: subject})
	return nil
}

func (f *fakeEmailSender) SendRegistrationEmail(toEmail, fullName, password string) error {
	return f.Send(toEmail, "registration", "")
}

func (f *fakeEmailSender) SendPasswordResetEmail(toEmail, fullName, newPassword string) error {
	return f.Send(toEmail, "password reset", "")
}

func (f *fakeEmailSender) outbox() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMail, len(f.sent))
	copy(out, f.sent)
	return out
}

type APITestSuite struct {
	suite.Suite
	db          *sql.DB
	router      *gin.Engine
	emailSender *fakeEmailSender
	taskQueue   *services.TaskQueue
}

// SetupTest builds the full route tree against a throwaway database, the
// same way the server entrypoint does.
func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(suite.T().TempDir(), "test.db") + "?_busy_timeout=5000&_foreign_keys=1"
	db, err := database.Initialize(dsn)
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(db))
	suite.db = db
	suite.T().Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Environment:   "test",
		JWTSecret:     "test-secret",
		JWTExpiration: 3600,
		MaxFileSize:   1024 * 1024,
		UploadPath:    suite.T().TempDir(),
	}

	suite.emailSender = &fakeEmailSender{}
	suite.taskQueue = services.NewTaskQueue(db, suite.emailSender, 16, 1)
	suite.taskQueue.Start()
	suite.T().Cleanup(suite.taskQueue.Stop)

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(authService)

	authHandlers := NewAuthHandlers(db, authService, suite.emailSender)
	uploadHandlers := NewUploadHandlers(db, suite.taskQueue, cfg)
	productHandlers := NewProductHandlers(db)
	cartHandlers := NewCartHandlers(db, suite.taskQueue)
	orderHandlers := NewOrderHandlers(db)

	router := gin.New()

	users := router.Group("/users")
	{
		users.POST("/register", authHandlers.Register)
		users.POST("/login", authHandlers.Login)
		users.POST("/logout", authMiddleware.AuthRequired(), authHandlers.Logout)
		users.POST("/reset", authHandlers.ResetPassword)
		users.GET("/profile", authMiddleware.AuthRequired(), authHandlers.GetProfile)
		users.PATCH("/profile", authMiddleware.AuthRequired(), authHandlers.UpdateProfile)
	}

	router.GET("/products", productHandlers.ListProducts)
	router.GET("/products/:id", productHandlers.GetProduct)

	upload := router.Group("/upload")
	upload.Use(authMiddleware.AuthRequired(), authMiddleware.RequireRole("seller"))
	{
		upload.POST("", uploadHandlers.Upload)
		upload.GET("/:id", uploadHandlers.GetUploadResult)
	}

	cart := router.Group("/cart")
	cart.Use(authMiddleware.AuthRequired(), authMiddleware.RequireRole("buyer"))
	{
		cart.GET("", cartHandlers.GetCart)
		cart.POST("", cartHandlers.UpdateCart)
		cart.DELETE("/clear", cartHandlers.ClearCart)
		cart.POST("/checkout", cartHandlers.Checkout)
	}

	orders := router.Group("/orders")
	orders.Use(authMiddleware.AuthRequired())
	{
		orders.GET("", orderHandlers.ListOrders)
		orders.GET("/:id", orderHandlers.GetOrder)
		orders.PATCH("/:id", authMiddleware.RequireRole("seller"), orderHandlers.UpdateOrderStatus)
	}

	suite.router = router
}

func (suite *APITestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

// register creates an account through the API and returns its token
func (suite *APITestSuite) register(email, company, role string) string {
	w := suite.request("POST", "/users/register", "", gin.H{
		"last_name":  "Doe",
		"first_name": "Jane",
		"company":    company,
		"email":      email,
		"password":   "password123",
		"role":       role,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	response := suite.decode(w)
	data := response["data"].(map[string]interface{})
	return data["token"].(string)
}

// seedListing plants a catalog chain directly and returns the pricelist ID
func (suite *APITestSuite) seedListing(sellerEmail, sku, title string, price, delivery, stock int) string {
	var sellerID string
	suite.Require().NoError(
		suite.db.QueryRow(`SELECT id FROM users WHERE email = ?`, sellerEmail).Scan(&sellerID))

	categoryID := uuid.New().String()
	_, err := suite.db.Exec(`INSERT OR IGNORE INTO categories (id, title) VALUES (?, 'electronics')`, categoryID)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.QueryRow(`SELECT id FROM categories WHERE title = 'electronics'`).Scan(&categoryID))

	brandID := uuid.New().String()
	_, err = suite.db.Exec(`INSERT OR IGNORE INTO brands (id, title) VALUES (?, 'acme')`, brandID)
	suite.Require().NoError(err)
	suite.Require().NoError(suite.db.QueryRow(`SELECT id FROM brands WHERE title = 'acme'`).Scan(&brandID))

	productID := uuid.New().String()
	_, err = suite.db.Exec(
		`INSERT INTO products (id, category_id, brand_id, title) VALUES (?, ?, ?, ?)`,
		productID, categoryID, brandID, title,
	)
	suite.Require().NoError(err)

	variantID := uuid.New().String()
	_, err = suite.db.Exec(`INSERT INTO variants (id, sku, product_id) VALUES (?, ?, ?)`, variantID, sku, productID)
	suite.Require().NoError(err)

	pricelistID := uuid.New().String()
	_, err = suite.db.Exec(
		`INSERT INTO pricelists (id, seller_id, variant_id, product_price, delivery_price, in_stock, orderable)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pricelistID, sellerID, variantID, price, delivery, stock, stock > 0,
	)
	suite.Require().NoError(err)

	return pricelistID
}

func (suite *APITestSuite) TestRegisterSendsWelcomeEmail() {
	suite.register("anna@example.com", "Acme Ltd", "buyer")

	outbox := suite.emailSender.outbox()
	suite.Require().Len(outbox, 1)
	suite.Equal("anna@example.com", outbox[0].To)
	suite.Equal("registration", outbox[0].Subject)
}

func (suite *APITestSuite) TestLoginErrorContract() {
	suite.register("anna@example.com", "Acme Ltd", "buyer")

	w := suite.request("POST", "/users/login", "", gin.H{
		"email": "nobody@example.com", "password": "password123",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("user not found", suite.decode(w)["error"])

	w = suite.request("POST", "/users/login", "", gin.H{
		"email": "anna@example.com", "password": "wrong-password",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.Equal("wrong credentials", suite.decode(w)["error"])

	w = suite.request("POST", "/users/login", "", gin.H{
		"email": "anna@example.com", "password": "password123",
	})
	suite.Equal(http.StatusOK, w.Code)
	suite.NotEmpty(suite.decode(w)["token"])
}

func (suite *APITestSuite) TestLogoutRevokesToken() {
	token := suite.register("anna@example.com", "Acme Ltd", "buyer")

	w := suite.request("GET", "/users/profile", token, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request("POST", "/users/logout", token, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request("GET", "/users/profile", token, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestResetPasswordContract() {
	suite.register("anna@example.com", "Acme Ltd", "buyer")

	w := suite.request("POST", "/users/reset", "", gin.H{"email": "nobody@example.com"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("email not found", suite.decode(w)["error"])

	w = suite.request("POST", "/users/reset", "", gin.H{"email": "anna@example.com"})
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("new password was sent to anna@example.com", suite.decode(w)["success"])

	// registration mail + reset mail
	suite.Require().Len(suite.emailSender.outbox(), 2)
	suite.Equal("password reset", suite.emailSender.outbox()[1].Subject)
}

func (suite *APITestSuite) TestUpdateProfileKeepsIdentityFields() {
	token := suite.register("anna@example.com", "Acme Ltd", "buyer")

	w := suite.request("PATCH", "/users/profile", token, gin.H{
		"company": "New Horizons",
	})
	suite.Equal(http.StatusOK, w.Code)

	response := suite.decode(w)
	user := response["data"].(map[string]interface{})["user"].(map[string]interface{})
	suite.Equal("New Horizons", user["company"])
	suite.Equal("anna@example.com", user["email"])
	suite.Equal("buyer", user["role"])
}

func (suite *APITestSuite) TestUploadRequiresSellerRole() {
	buyerToken := suite.register("buyer@example.com", "Buyer Co", "buyer")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "pricelist.csv")
	fmt.Fprint(part, "header\n")
	writer.Close()

	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestUploadAndPollResult() {
	sellerToken := suite.register("seller@example.com", "Seller Co", "seller")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "pricelist.csv")
	fmt.Fprint(part, "category,brand,model,sku,quantity,price,delivery\n")
	fmt.Fprint(part, "electronics,apple,iphone 15,SKU-1,5,1000,100,color,black\n")
	writer.Close()

	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sellerToken)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	response := suite.decode(w)
	uploadID := response["id"].(string)
	suite.Equal("/upload/"+uploadID, response["result_check_endpoint"])

	require.Eventually(suite.T(), func() bool {
		w := suite.request("GET", "/upload/"+uploadID, sellerToken, nil)
		if w.Code != http.StatusOK {
			return false
		}
		result, ok := suite.decode(w)["upload_result"].(map[string]interface{})
		return ok && result["status"] == "parsed successfully"
	}, 5*time.Second, 20*time.Millisecond)

	// The parsed row is now publicly browsable
	w = suite.request("GET", "/products", "", nil)
	suite.Equal(http.StatusOK, w.Code)
	data := suite.decode(w)["data"].([]interface{})
	suite.Require().Len(data, 1)
	listing := data[0].(map[string]interface{})
	suite.Equal("SKU-1", listing["sku"])
	suite.Len(listing["prices"].([]interface{}), 1)
}

func (suite *APITestSuite) TestUploadResultHiddenFromOtherSellers() {
	sellerToken := suite.register("seller@example.com", "Seller Co", "seller")
	otherToken := suite.register("other@example.com", "Other Co", "seller")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "pricelist.csv")
	fmt.Fprint(part, "header\n")
	writer.Close()

	req, _ := http.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+sellerToken)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusCreated, w.Code)
	uploadID := suite.decode(w)["id"].(string)

	w2 := suite.request("GET", "/upload/"+uploadID, otherToken, nil)
	suite.Equal(http.StatusForbidden, w2.Code)
}

func (suite *APITestSuite) TestProductDetailNotFound() {
	w := suite.request("GET", "/products/no-such-variant", "", nil)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request("GET", "/products/"+uuid.New().String(), "", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestCartRequiresBuyerRole() {
	sellerToken := suite.register("seller@example.com", "Seller Co", "seller")
	w := suite.request("GET", "/cart", sellerToken, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func (suite *APITestSuite) TestCartCheckoutOrderFlow() {
	suite.register("seller@example.com", "Seller Co", "seller")
	sellerToken := suite.request("POST", "/users/login", "", gin.H{
		"email": "seller@example.com", "password": "password123",
	})
	suite.Require().Equal(http.StatusOK, sellerToken.Code)
	sellerJWT := suite.decode(sellerToken)["token"].(string)

	buyerJWT := suite.register("buyer@example.com", "Buyer Co", "buyer")
	pricelistID := suite.seedListing("seller@example.com", "SKU-1", "iphone 15", 1000, 100, 5)

	// Fill the cart
	w := suite.request("POST", "/cart", buyerJWT, gin.H{
		"items": []gin.H{{"pricelist": pricelistID, "quantity": 2}},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	cart := suite.decode(w)["data"].(map[string]interface{})
	suite.Equal(float64(2200), cart["summary"].(map[string]interface{})["total"])

	// Overselling is rejected with the offending line
	w = suite.request("POST", "/cart", buyerJWT, gin.H{
		"items": []gin.H{{"pricelist": pricelistID, "quantity": 99}},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	detail := suite.decode(w)["detail"].(map[string]interface{})
	suite.Equal(pricelistID, detail["pricelist_id"])
	suite.Equal(float64(5), detail["in_stock"])

	// Checkout needs an address
	w = suite.request("POST", "/cart/checkout", buyerJWT, gin.H{"address": "  "})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request("POST", "/cart/checkout", buyerJWT, gin.H{"address": "1 Main St"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	order := suite.decode(w)["data"].(map[string]interface{})
	orderID := order["id"].(string)
	suite.Equal("accepted", order["status"])
	suite.Len(order["items"].([]interface{}), 1)

	// Buyer sees the order, the seller sees it shaped for sellers
	w = suite.request("GET", "/orders", buyerJWT, nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Len(suite.decode(w)["data"].([]interface{}), 1)

	w = suite.request("GET", "/orders/"+orderID, sellerJWT, nil)
	suite.Equal(http.StatusOK, w.Code)
	sellerView := suite.decode(w)["data"].(map[string]interface{})
	suite.Equal("Doe Jane", sellerView["customer"])
	items := sellerView["items"].([]interface{})
	suite.Require().Len(items, 1)
	suite.Equal("SKU-1", items[0].(map[string]interface{})["sku"])

	// Only sellers can advance the status
	w = suite.request("PATCH", "/orders/"+orderID, buyerJWT, gin.H{"status": "sent"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request("PATCH", "/orders/"+orderID, sellerJWT, gin.H{"status": "sent"})
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("sent", suite.decode(w)["data"].(map[string]interface{})["status"])
}

func (suite *APITestSuite) TestOrderHiddenFromOtherBuyer() {
	suite.register("seller@example.com", "Seller Co", "seller")
	buyerJWT := suite.register("buyer@example.com", "Buyer Co", "buyer")
	strangerJWT := suite.register("stranger@example.com", "Stranger Co", "buyer")
	pricelistID := suite.seedListing("seller@example.com", "SKU-1", "iphone 15", 1000, 100, 5)

	w := suite.request("POST", "/cart", buyerJWT, gin.H{
		"items": []gin.H{{"pricelist": pricelistID, "quantity": 1}},
	})
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.request("POST", "/cart/checkout", buyerJWT, gin.H{"address": "1 Main St"})
	suite.Require().Equal(http.StatusCreated, w.Code)
	orderID := suite.decode(w)["data"].(map[string]interface{})["id"].(string)

	w = suite.request("GET", "/orders/"+orderID, strangerJWT, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
