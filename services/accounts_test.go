package services

import (
	"testing"

	"leadstore/models"

	"golang.org/x/crypto/bcrypt"
)

func newAccountService(t *testing.T) (*AccountService, *AffiliateService) {
	t.Helper()
	db := newTestDB(t)
	affiliates := NewAffiliateService(db, "http://localhost:3000")
	return NewAccountService(db, newTestMailer(), affiliates, "http://localhost:3000"), affiliates
}

func TestRegisterWithReferralCode(t *testing.T) {
	accounts, affiliates := newAccountService(t)
	db := accounts.DB

	affiliate := createUser(t, db, 0)
	code, err := affiliates.GenerateCode(affiliate.ID)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	user, err := accounts.Register("buyer@example.com", "buyer", "correct-horse", code)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ReferredBy == nil || *user.ReferredBy != affiliate.ID {
		t.Errorf("referred_by = %v, want %s", user.ReferredBy, affiliate.ID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")); err != nil {
		t.Error("password hash does not verify")
	}
	if user.EmailVerified {
		t.Error("new user already verified")
	}
}

func TestRegisterUnknownCodeProceedsUnattributed(t *testing.T) {
	accounts, _ := newAccountService(t)

	user, err := accounts.Register("buyer@example.com", "buyer", "correct-horse", "GHOSTREF")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ReferredBy != nil {
		t.Errorf("referred_by = %v, want nil for unknown code", user.ReferredBy)
	}
}

func TestRegisterValidation(t *testing.T) {
	accounts, _ := newAccountService(t)

	tests := []struct {
		desc     string
		email    string
		username string
		password string
	}{
		{"no email", "", "u", "longenough"},
		{"bad email", "not-an-email", "u", "longenough"},
		{"no username", "a@b.com", "", "longenough"},
		{"short password", "a@b.com", "u", "short"},
	}
	for _, tt := range tests {
		if _, err := accounts.Register(tt.email, tt.username, tt.password, ""); err == nil {
			t.Errorf("%s: expected validation error", tt.desc)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	accounts, _ := newAccountService(t)

	if _, err := accounts.Register("dup@example.com", "first", "longenough", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := accounts.Register("dup@example.com", "second", "longenough", ""); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestVerifyEmail(t *testing.T) {
	accounts, _ := newAccountService(t)

	user, err := accounts.Register("v@example.com", "v", "longenough", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := accounts.VerifyEmail(*user.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	var stored models.User
	accounts.DB.First(&stored, "id = ?", user.ID)
	if !stored.EmailVerified {
		t.Error("user not marked verified")
	}
	if stored.VerificationToken != nil {
		t.Error("verification token not cleared")
	}

	if err := accounts.VerifyEmail("bogus-token"); !IsNotFound(err) {
		t.Errorf("bogus token: got %v, want not-found", err)
	}
}

func TestSetPaypalEmail(t *testing.T) {
	accounts, _ := newAccountService(t)
	user := createUser(t, accounts.DB, 0)

	if err := accounts.SetPaypalEmail(user.ID, "Payout@Example.com"); err != nil {
		t.Fatalf("SetPaypalEmail: %v", err)
	}

	var stored models.User
	accounts.DB.First(&stored, "id = ?", user.ID)
	if stored.PaypalEmail == nil || *stored.PaypalEmail != "payout@example.com" {
		t.Errorf("paypal email = %v, want payout@example.com", stored.PaypalEmail)
	}

	if err := accounts.SetPaypalEmail(user.ID, "not-an-email"); err == nil {
		t.Error("invalid paypal email accepted")
	}
}

func TestPasswordReset(t *testing.T) {
	accounts, _ := newAccountService(t)

	user, err := accounts.Register("buyer@example.com", "buyer", "correct-horse", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown addresses are not revealed.
	if err := accounts.RequestPasswordReset("nobody@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset unknown email: %v", err)
	}

	if err := accounts.RequestPasswordReset("Buyer@Example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}

	var stored models.User
	accounts.DB.First(&stored, "id = ?", user.ID)
	if stored.PasswordResetToken == nil {
		t.Fatal("no reset token issued")
	}

	if err := accounts.ResetPassword(*stored.PasswordResetToken, "short"); err == nil {
		t.Error("short password accepted")
	}

	if err := accounts.ResetPassword(*stored.PasswordResetToken, "battery-staple"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	accounts.DB.First(&stored, "id = ?", user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("battery-staple")); err != nil {
		t.Error("new password hash does not verify")
	}
	if stored.PasswordResetToken != nil {
		t.Error("reset token not cleared")
	}

	// A consumed token is dead.
	if err := accounts.ResetPassword("stale-token", "battery-staple"); !IsNotFound(err) {
		t.Errorf("stale token: err = %v, want not found", err)
	}
}
