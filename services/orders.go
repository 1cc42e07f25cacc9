package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"leadstore/models"
	"leadstore/utils"
	"leadstore/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderService struct {
	DB         *gorm.DB
	Mail       *workers.Mailer
	AdminEmail string
}

func NewOrderService(db *gorm.DB, mail *workers.Mailer, adminEmail string) *OrderService {
	return &OrderService{DB: db, Mail: mail, AdminEmail: adminEmail}
}

// CreateOrder debits the user's balance and inserts the order in one
// transaction. Either both effects land or neither does; a balance that
// cannot cover creditsUsed fails with ErrInsufficientCredits and leaves
// no order row behind. The admin alert is queued after commit and never
// affects the outcome.
func (s *OrderService) CreateOrder(userID, sourceURL string, creditsUsed, estimatedLeads int64, deliveryEmail string) (*models.Order, error) {
	if strings.TrimSpace(sourceURL) == "" {
		return nil, fmt.Errorf("source_url is required")
	}
	if creditsUsed <= 0 {
		return nil, fmt.Errorf("credits_used must be positive")
	}
	if strings.TrimSpace(deliveryEmail) == "" {
		return nil, fmt.Errorf("delivery_email is required")
	}

	order := &models.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		SourceURL:      sourceURL,
		CreditsUsed:    creditsUsed,
		EstimatedLeads: estimatedLeads,
		DeliveryEmail:  deliveryEmail,
		Status:         models.OrderStatusPending,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := DebitCredits(tx, userID, creditsUsed); err != nil {
			return err
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	s.Mail.Enqueue(workers.Message{
		To:      s.AdminEmail,
		Subject: "New lead export order",
		Body: fmt.Sprintf(
			"Order %s\nUser: %s\nSource: %s\nCredits: %d\nEstimated leads: %d\n",
			order.ID, userID, sourceURL, creditsUsed, estimatedLeads,
		),
	})

	return order, nil
}

// FulfillOrder closes an order with its delivery artifact and notifies
// the customer. deliveryURL must already point at the uploaded CSV or
// shared sheet.
func (s *OrderService) FulfillOrder(orderID string, deliveryType models.DeliveryType, deliveryURL, notes string) (*models.Order, error) {
	if strings.TrimSpace(deliveryURL) == "" {
		return nil, fmt.Errorf("delivery_url is required")
	}

	var order models.Order
	if err := s.DB.First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order.Status = models.OrderStatusCompleted
	order.DeliveryType = deliveryType
	order.DeliveryURL = deliveryURL
	order.Notes = notes
	order.CompletedAt = &now

	if err := s.DB.Save(&order).Error; err != nil {
		return nil, err
	}

	s.Mail.Enqueue(workers.Message{
		To:      order.DeliveryEmail,
		Subject: "Your lead export is ready",
		Body: fmt.Sprintf(
			"Your order %s has been completed.\n\nDownload: %s\n\n%s\n",
			order.ID, deliveryURL, notes,
		),
	})

	return &order, nil
}

// RejectOrder marks an order failed and refunds the debited credits in
// the same transaction. Terminal orders cannot be rejected.
func (s *OrderService) RejectOrder(orderID, reason string) (*models.Order, error) {
	var order models.Order
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Status == models.OrderStatusCompleted || order.Status == models.OrderStatusFailed {
			return fmt.Errorf("order %s is already %s", order.ID, order.Status)
		}
		if err := AddCredits(tx, order.UserID, order.CreditsUsed); err != nil {
			return err
		}
		order.Status = models.OrderStatusFailed
		order.Notes = reason
		return tx.Save(&order).Error
	})
	if err != nil {
		return nil, err
	}

	s.Mail.Enqueue(workers.Message{
		To:      order.DeliveryEmail,
		Subject: "Your lead export order could not be fulfilled",
		Body: fmt.Sprintf(
			"Order %s was cancelled and %d credits were returned to your balance.\n\nReason: %s\n",
			order.ID, order.CreditsUsed, reason,
		),
	})

	return &order, nil
}

// MarkProcessing moves a pending order into the processing state.
func (s *OrderService) MarkProcessing(orderID string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, fmt.Errorf("order %s is %s, not pending", order.ID, order.Status)
	}
	order.Status = models.OrderStatusProcessing
	if err := s.DB.Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UserOrders lists a user's orders, newest first.
func (s *OrderService) UserOrders(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// AllOrders lists every order, newest first.
func (s *OrderService) AllOrders() ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

// --- Fiber handlers ---

// SubmitOrder handles POST /s/orders for the authenticated user.
func (s *OrderService) SubmitOrder(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		SourceURL      string `json:"source_url"`
		CreditsUsed    int64  `json:"credits_used"`
		EstimatedLeads int64  `json:"estimated_leads"`
		DeliveryEmail  string `json:"delivery_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	order, err := s.CreateOrder(userID, req.SourceURL, req.CreditsUsed, req.EstimatedLeads, req.DeliveryEmail)
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "insufficient credits"})
		}
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetMyOrders handles GET /s/orders.
func (s *OrderService) GetMyOrders(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	orders, err := s.UserOrders(userID)
	if err != nil {
		log.Printf("DB Error fetching user orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}
	return c.JSON(orders)
}

// GetOrder handles GET /s/orders/:id (owner or admin).
func (s *OrderService) GetOrder(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var order models.Order
	if err := s.DB.First(&order, "id = ?", id).Error; err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	userID := c.Locals("user_id").(string)
	roles, _ := c.Locals("user_roles").([]string)
	if order.UserID != userID && !hasRole(roles, "admin") {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
	}

	return c.JSON(order)
}

// GetAllOrders handles GET /s/admin/orders.
func (s *OrderService) GetAllOrders(c *fiber.Ctx) error {
	orders, err := s.AllOrders()
	if err != nil {
		log.Printf("DB Error fetching all orders: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch orders"})
	}
	return c.JSON(orders)
}

// Fulfill handles POST /s/admin/orders/:id/fulfill. The artifact is
// either an uploaded CSV (multipart "file", pushed to R2 here) or a
// delivery_url form value pointing at a shared sheet.
func (s *OrderService) Fulfill(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	deliveryType := models.DeliveryType(c.FormValue("delivery_type", string(models.DeliveryTypeCSV)))
	deliveryURL := c.FormValue("delivery_url")
	notes := c.FormValue("notes")

	if fileHeader, err := c.FormFile("file"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to open uploaded file"})
		}
		defer file.Close()

		key := utils.DeliveryKey(id, fileHeader.Filename)
		url, err := utils.UploadDelivery(c.Context(), key, file)
		if err != nil {
			log.Printf("R2 upload failed for order %s: %v", id, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to store delivery file"})
		}
		deliveryType = models.DeliveryTypeCSV
		deliveryURL = url
	}

	order, err := s.FulfillOrder(id, deliveryType, deliveryURL, notes)
	if err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Order fulfilled", "order": order})
}

// Reject handles POST /s/admin/orders/:id/reject.
func (s *OrderService) Reject(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "reason is required"})
	}

	order, err := s.RejectOrder(id, req.Reason)
	if err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Order rejected, credits refunded", "order": order})
}

// StartProcessing handles POST /s/admin/orders/:id/processing.
func (s *OrderService) StartProcessing(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := s.MarkProcessing(id)
	if err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Order not found"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(order)
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
