package services

import (
	"fmt"
	"log"
	"strings"

	"leadstore/models"
	"leadstore/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AccountService struct {
	DB         *gorm.DB
	Mail       *workers.Mailer
	Affiliates *AffiliateService
	BaseURL    string
}

func NewAccountService(db *gorm.DB, mail *workers.Mailer, affiliates *AffiliateService, baseURL string) *AccountService {
	return &AccountService{DB: db, Mail: mail, Affiliates: affiliates, BaseURL: baseURL}
}

// Register creates a user, attributing them to an affiliate when a
// pending referral code resolves. An unknown code is not an error:
// registration proceeds unattributed. ReferredBy is written here and
// never again.
func (s *AccountService) Register(email, username, password, refCode string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("valid email is required")
	}
	if username = strings.TrimSpace(username); username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var referredBy *string
	if refCode != "" {
		if affiliate, err := s.Affiliates.ResolveCode(refCode); err == nil {
			referredBy = &affiliate.ID
		} else if !IsNotFound(err) {
			return nil, err
		}
	}

	token := uuid.NewString()
	user := &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		PasswordHash:      string(hash),
		ReferredBy:        referredBy,
		VerificationToken: &token,
	}
	if err := s.DB.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email already registered")
		}
		return nil, err
	}

	s.Mail.Enqueue(workers.Message{
		To:      email,
		Subject: "Verify your email",
		Body: fmt.Sprintf(
			"Welcome, %s!\n\nConfirm your address: %s/verify/%s\n",
			username, s.BaseURL, token,
		),
	})

	return user, nil
}

// VerifyEmail flips the verification flag for a matching token.
func (s *AccountService) VerifyEmail(token string) error {
	res := s.DB.Model(&models.User{}).
		Where("verification_token = ?", token).
		Updates(map[string]interface{}{
			"email_verified":     true,
			"verification_token": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RequestPasswordReset issues a reset token and mails the link. An
// unknown email is not reported to the caller: the endpoint always
// claims success so addresses cannot be probed.
func (s *AccountService) RequestPasswordReset(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.DB.First(&user, "email = ?", email).Error; err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.DB.Model(&user).Update("password_reset_token", token).Error; err != nil {
		return err
	}

	s.Mail.Enqueue(workers.Message{
		To:      user.Email,
		Subject: "Reset your password",
		Body: fmt.Sprintf(
			"A password reset was requested for your account.\n\nReset link: %s/reset/%s\n\nIf this wasn't you, ignore this email.\n",
			s.BaseURL, token,
		),
	})

	return nil
}

// ResetPassword consumes a reset token and stores the new hash.
func (s *AccountService) ResetPassword(token, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	res := s.DB.Model(&models.User{}).
		Where("password_reset_token = ?", token).
		Updates(map[string]interface{}{
			"password_hash":        string(hash),
			"password_reset_token": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetPaypalEmail updates the payout destination for commission payouts.
func (s *AccountService) SetPaypalEmail(userID, paypalEmail string) error {
	paypalEmail = strings.ToLower(strings.TrimSpace(paypalEmail))
	if paypalEmail == "" || !strings.Contains(paypalEmail, "@") {
		return fmt.Errorf("valid paypal_email is required")
	}
	res := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("paypal_email", paypalEmail)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Fiber handlers ---

// RegisterHandler handles POST /register. The pending referral cookie
// set by /ref/:code is consumed here.
func (s *AccountService) RegisterHandler(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	refCode := c.Cookies(RefCookieName)

	user, err := s.Register(req.Email, req.Username, req.Password, refCode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	c.ClearCookie(RefCookieName)

	return c.Status(fiber.StatusCreated).JSON(user)
}

// VerifyEmailHandler handles GET /verify/:token.
func (s *AccountService) VerifyEmailHandler(c *fiber.Ctx) error {
	if err := s.VerifyEmail(c.Params("token")); err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown verification token"})
		}
		log.Printf("DB Error verifying email: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Verification failed"})
	}
	return c.JSON(fiber.Map{"message": "Email verified"})
}

// RequestPasswordResetHandler handles POST /password-reset.
func (s *AccountService) RequestPasswordResetHandler(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.RequestPasswordReset(req.Email); err != nil {
		log.Printf("DB Error issuing password reset: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Reset request failed"})
	}

	return c.JSON(fiber.Map{"message": "If the address is registered, a reset email is on its way"})
}

// ResetPasswordHandler handles POST /password-reset/:token.
func (s *AccountService) ResetPasswordHandler(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.ResetPassword(c.Params("token"), req.Password); err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown or used reset token"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Password updated"})
}

// Me handles GET /s/profile.
func (s *AccountService) Me(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(user)
}

// UpdatePaypalEmail handles PUT /s/profile/paypal.
func (s *AccountService) UpdatePaypalEmail(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		PaypalEmail string `json:"paypal_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.SetPaypalEmail(userID, req.PaypalEmail); err != nil {
		if IsNotFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "PayPal email updated"})
}
