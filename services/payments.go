package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"time"

	"leadstore/config"
	"leadstore/models"
	"leadstore/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutProvider is the external payment processor, consumed as an
// interface: the core never touches provider SDK types directly.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

type CheckoutRequest struct {
	UserID      string `json:"user_id"`
	PackageID   string `json:"package_id"`
	Credits     int64  `json:"credits"`
	AmountCents int64  `json:"amount_cents"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
}

type CheckoutSession struct {
	PaymentRef  string `json:"payment_ref"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentClient talks to the payment provider's HTTP API.
type PaymentClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewPaymentClient(baseURL, token string) *PaymentClient {
	return &PaymentClient{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *PaymentClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	jsonData, _ := json.Marshal(req)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/v1/checkout/sessions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("payment provider returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("checkout session creation failed: %d", resp.StatusCode)
	}

	var out CheckoutSession
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type PaymentService struct {
	DB       *gorm.DB
	Mail     *workers.Mailer
	Cfg      *config.Config
	Provider CheckoutProvider
}

func NewPaymentService(db *gorm.DB, mail *workers.Mailer, cfg *config.Config, provider CheckoutProvider) *PaymentService {
	return &PaymentService{DB: db, Mail: mail, Cfg: cfg, Provider: provider}
}

// CreateCheckout opens a provider checkout session for a catalog
// package and records the purchase as pending under the provider's
// payment reference. Provider failures surface to the caller.
func (s *PaymentService) CreateCheckout(ctx context.Context, userID, packageID string) (*CheckoutSession, error) {
	pkg, ok := s.Cfg.PackageByID(packageID)
	if !ok {
		return nil, ErrUnknownPackage
	}

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	session, err := s.Provider.CreateCheckoutSession(ctx, CheckoutRequest{
		UserID:      userID,
		PackageID:   pkg.ID,
		Credits:     pkg.Credits,
		AmountCents: int64(math.Round(pkg.Price * 100)),
		SuccessURL:  s.Cfg.StoreBaseURL + "/credits/success",
		CancelURL:   s.Cfg.StoreBaseURL + "/credits",
	})
	if err != nil {
		return nil, err
	}

	purchase := &models.CreditPurchase{
		ID:         uuid.NewString(),
		UserID:     userID,
		PackageID:  pkg.ID,
		Amount:     pkg.Price,
		Credits:    pkg.Credits,
		PaymentRef: session.PaymentRef,
		Status:     models.PurchaseStatusPending,
	}
	if err := s.DB.Create(purchase).Error; err != nil {
		return nil, err
	}

	return session, nil
}

// CompletePayment applies a "payment completed" event. Delivery is
// at-least-once, so the whole effect is keyed on the payment reference:
// the pending→completed flip is a conditional update, and the credit
// grant plus commission insert ride in the same transaction. A replay
// finds zero rows to flip and changes nothing.
func (s *PaymentService) CompletePayment(paymentRef string, amountCharged float64) error {
	var purchase models.CreditPurchase
	var commission *models.AffiliateCommission

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		res := tx.Model(&models.CreditPurchase{}).
			Where("payment_ref = ? AND status = ?", paymentRef, models.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"status":       models.PurchaseStatusCompleted,
				"completed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already processed, or a reference we never issued.
			log.Printf("payment %s: nothing to complete (replay or unknown ref)", paymentRef)
			return nil
		}

		if err := tx.First(&purchase, "payment_ref = ?", paymentRef).Error; err != nil {
			return err
		}

		if err := AddCredits(tx, purchase.UserID, purchase.Credits); err != nil {
			return err
		}

		var user models.User
		if err := tx.First(&user, "id = ?", purchase.UserID).Error; err != nil {
			return err
		}

		saleAmount := purchase.Amount
		if amountCharged > 0 {
			saleAmount = amountCharged
		}

		if user.ReferredBy != nil && *user.ReferredBy != user.ID {
			commission = &models.AffiliateCommission{
				ID:               uuid.NewString(),
				AffiliateUserID:  *user.ReferredBy,
				ReferredUserID:   user.ID,
				PurchaseID:       purchase.ID,
				SaleAmount:       saleAmount,
				CommissionAmount: Round2(saleAmount * models.CommissionRate),
				Rate:             models.CommissionRate,
				Status:           models.CommissionStatusPending,
			}
			if err := tx.Create(commission).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if purchase.ID != "" {
		var user models.User
		if err := s.DB.First(&user, "id = ?", purchase.UserID).Error; err == nil {
			s.Mail.Enqueue(workers.Message{
				To:      user.Email,
				Subject: "Credits added to your account",
				Body: fmt.Sprintf(
					"Your payment of $%.2f was received. %d credits were added to your balance.\n",
					purchase.Amount, purchase.Credits,
				),
			})
		}
	}

	return nil
}

// FailPayment marks a pending purchase failed after a non-successful
// provider event. Completed purchases are left alone.
func (s *PaymentService) FailPayment(paymentRef string) error {
	return s.DB.Model(&models.CreditPurchase{}).
		Where("payment_ref = ? AND status = ?", paymentRef, models.PurchaseStatusPending).
		Update("status", models.PurchaseStatusFailed).Error
}

// Round2 rounds a dollar amount to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// --- Fiber handlers ---

// ListPackages handles GET /packages — the public catalog.
func (s *PaymentService) ListPackages(c *fiber.Ctx) error {
	return c.JSON(s.Cfg.Packages)
}

// Checkout handles POST /s/checkout.
func (s *PaymentService) Checkout(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		PackageID string `json:"package_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := s.CreateCheckout(c.Context(), userID, req.PackageID)
	if err != nil {
		if errors.Is(err, ErrUnknownPackage) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown credit package"})
		}
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("checkout failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "payment provider unavailable"})
	}

	return c.JSON(session)
}

// Webhook handles POST /payments/webhook. The gateway has already
// verified the provider signature; the event is at-least-once, so
// processing errors return 500 to trigger redelivery while no-ops
// return 200.
func (s *PaymentService) Webhook(c *fiber.Ctx) error {
	var event struct {
		PaymentRef string  `json:"payment_ref"`
		Status     string  `json:"status"`
		Amount     float64 `json:"amount"`
	}
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event body"})
	}
	if event.PaymentRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_ref is required"})
	}

	if event.Status != "succeeded" {
		if err := s.FailPayment(event.PaymentRef); err != nil {
			log.Printf("failed to mark payment %s failed: %v", event.PaymentRef, err)
		}
		return c.SendStatus(fiber.StatusOK)
	}

	if err := s.CompletePayment(event.PaymentRef, event.Amount); err != nil {
		log.Printf("payment completion failed for %s: %v", event.PaymentRef, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "completion processing failed"})
	}

	return c.SendStatus(fiber.StatusOK)
}

// MyPurchases handles GET /s/purchases.
func (s *PaymentService) MyPurchases(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var purchases []models.CreditPurchase
	if err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&purchases).Error; err != nil {
		log.Printf("DB Error fetching purchases: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch purchases"})
	}
	return c.JSON(purchases)
}
