package services

import (
	"crypto/rand"
	"log"
	"strings"
	"time"

	"leadstore/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RefCookieName carries the pending referral code between the /ref/:code
// hit and registration.
const RefCookieName = "ref_code"

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 8

type AffiliateService struct {
	DB           *gorm.DB
	StoreBaseURL string
}

func NewAffiliateService(db *gorm.DB, storeBaseURL string) *AffiliateService {
	return &AffiliateService{DB: db, StoreBaseURL: storeBaseURL}
}

func randomCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failure means the process is unusable
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}

// GenerateCode assigns a referral code to a user who has none. A user
// who already holds one keeps it: published links must not die. The
// unique index is the collision authority; a bounded retry absorbs the
// rare clash.
func (s *AffiliateService) GenerateCode(userID string) (string, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	if user.AffiliateCode != nil {
		return "", ErrCodeExists
	}

	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		code := randomCode()
		err := s.DB.Model(&models.User{}).
			Where("id = ?", userID).
			Update("affiliate_code", code).Error
		if err == nil {
			return code, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// TrackClick records a referral link hit. The code is not validated:
// clicks on dead codes are still telemetry.
func (s *AffiliateService) TrackClick(code, ip, userAgent, referrer string) error {
	return s.DB.Create(&models.AffiliateClick{
		AffiliateCode: code,
		ClientIP:      ip,
		UserAgent:     userAgent,
		Referrer:      referrer,
	}).Error
}

// ResolveCode maps a referral code to its owner.
func (s *AffiliateService) ResolveCode(code string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "affiliate_code = ?", code).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AffiliateStats aggregates an affiliate's performance.
type AffiliateStats struct {
	Clicks           int64              `json:"clicks"`
	ReferredUsers    int64              `json:"referred_users"`
	TotalSales       float64            `json:"total_sales"`
	TotalCommissions float64            `json:"total_commissions"`
	PendingAmount    float64            `json:"pending_amount"`
	Monthly          []MonthlyStatsLine `json:"monthly"`
}

// MonthlyStatsLine is one payment-month/status bucket. Commissions not
// yet assigned a payment month are excluded until paid.
type MonthlyStatsLine struct {
	PaymentMonth string  `json:"payment_month"`
	Status       string  `json:"status"`
	Total        float64 `json:"total"`
}

// Stats computes the affiliate dashboard numbers for one user.
func (s *AffiliateService) Stats(userID string) (*AffiliateStats, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}

	stats := &AffiliateStats{}

	if user.AffiliateCode != nil {
		if err := s.DB.Model(&models.AffiliateClick{}).
			Where("affiliate_code = ?", *user.AffiliateCode).
			Count(&stats.Clicks).Error; err != nil {
			return nil, err
		}
	}

	if err := s.DB.Model(&models.User{}).
		Where("referred_by = ?", userID).
		Count(&stats.ReferredUsers).Error; err != nil {
		return nil, err
	}

	type sums struct {
		Sales       float64
		Commissions float64
	}
	var total sums
	if err := s.DB.Model(&models.AffiliateCommission{}).
		Select("COALESCE(SUM(sale_amount),0) as sales, COALESCE(SUM(commission_amount),0) as commissions").
		Where("affiliate_user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return nil, err
	}
	stats.TotalSales = total.Sales
	stats.TotalCommissions = total.Commissions

	if err := s.DB.Model(&models.AffiliateCommission{}).
		Select("COALESCE(SUM(commission_amount),0)").
		Where("affiliate_user_id = ? AND status = ?", userID, models.CommissionStatusPending).
		Scan(&stats.PendingAmount).Error; err != nil {
		return nil, err
	}

	if err := s.DB.Model(&models.AffiliateCommission{}).
		Select("payment_month, status, SUM(commission_amount) as total").
		Where("affiliate_user_id = ? AND payment_month IS NOT NULL", userID).
		Group("payment_month, status").
		Order("payment_month DESC").
		Scan(&stats.Monthly).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// --- Fiber handlers ---

// RefRedirect handles GET /ref/:code — logs the click, parks the code
// in a cookie for registration, and bounces to the storefront.
func (s *AffiliateService) RefRedirect(c *fiber.Ctx) error {
	code := strings.ToUpper(strings.TrimSpace(c.Params("code")))
	if code == "" {
		return c.Redirect(s.StoreBaseURL, fiber.StatusFound)
	}

	if err := s.TrackClick(code, c.IP(), c.Get("User-Agent"), c.Get("Referer")); err != nil {
		log.Printf("DB Error recording affiliate click: %v", err)
		// Telemetry only; the visitor still gets redirected.
	}

	c.Cookie(&fiber.Cookie{
		Name:     RefCookieName,
		Value:    code,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(s.StoreBaseURL, fiber.StatusFound)
}

// CreateCode handles POST /s/affiliate/code.
func (s *AffiliateService) CreateCode(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	code, err := s.GenerateCode(userID)
	if err != nil {
		if err == ErrCodeExists {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "affiliate code already assigned"})
		}
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("DB Error generating affiliate code: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate code"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"affiliate_code": code})
}

// GetStats handles GET /s/affiliate/stats.
func (s *AffiliateService) GetStats(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	stats, err := s.Stats(userID)
	if err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		log.Printf("DB Error computing affiliate stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute stats"})
	}

	return c.JSON(stats)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
