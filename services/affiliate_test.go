package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"leadstore/models"

	"github.com/google/uuid"
)

func TestGenerateCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewAffiliateService(db, "http://localhost:3000")
	user := createUser(t, db, 0)

	code, err := svc.GenerateCode(user.ID)
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(code) != codeLength {
		t.Errorf("code length = %d, want %d", len(code), codeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("code %q contains %q outside the alphabet", code, r)
		}
	}

	// A user who already holds a code keeps it.
	if _, err := svc.GenerateCode(user.ID); !errors.Is(err, ErrCodeExists) {
		t.Errorf("second generation: got %v, want ErrCodeExists", err)
	}
	var stored models.User
	db.First(&stored, "id = ?", user.ID)
	if stored.AffiliateCode == nil || *stored.AffiliateCode != code {
		t.Errorf("stored code = %v, want %s", stored.AffiliateCode, code)
	}
}

func TestGenerateCodeUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAffiliateService(db, "http://localhost:3000")

	if _, err := svc.GenerateCode(uuid.NewString()); !IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestTrackClickDoesNotValidateCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewAffiliateService(db, "http://localhost:3000")

	// No user owns this code; the click is still telemetry.
	if err := svc.TrackClick("DEADCODE", "203.0.113.9", "Mozilla/5.0", "https://blog.example.com"); err != nil {
		t.Fatalf("TrackClick: %v", err)
	}

	var click models.AffiliateClick
	if err := db.First(&click, "affiliate_code = ?", "DEADCODE").Error; err != nil {
		t.Fatalf("click not recorded: %v", err)
	}
	if click.ClientIP != "203.0.113.9" || click.UserAgent != "Mozilla/5.0" {
		t.Errorf("click fields wrong: %+v", click)
	}
}

func TestResolveCode(t *testing.T) {
	db := newTestDB(t)
	svc := NewAffiliateService(db, "http://localhost:3000")
	user := createUser(t, db, 0)

	code, _ := svc.GenerateCode(user.ID)

	got, err := svc.ResolveCode(code)
	if err != nil {
		t.Fatalf("ResolveCode: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("resolved %s, want %s", got.ID, user.ID)
	}

	if _, err := svc.ResolveCode("NOPE1234"); !IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestAffiliateStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewAffiliateService(db, "http://localhost:3000")

	affiliate := createUser(t, db, 0)
	code, _ := svc.GenerateCode(affiliate.ID)

	for i := 0; i < 3; i++ {
		if err := svc.TrackClick(code, "203.0.113.9", "ua", ""); err != nil {
			t.Fatalf("TrackClick: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		referred := createUser(t, db, 0)
		db.Model(&models.User{}).Where("id = ?", referred.ID).Update("referred_by", affiliate.ID)
	}

	june := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	pending := seedCommission(t, db, affiliate.ID, 19, june)
	paid := seedCommission(t, db, affiliate.ID, 90, june)

	billing := NewBillingService(db)
	if _, err := billing.MarkCommissionsPaid([]string{paid.ID}, "2025-06"); err != nil {
		t.Fatalf("MarkCommissionsPaid: %v", err)
	}

	stats, err := svc.Stats(affiliate.ID)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Clicks != 3 {
		t.Errorf("clicks = %d, want 3", stats.Clicks)
	}
	if stats.ReferredUsers != 2 {
		t.Errorf("referred users = %d, want 2", stats.ReferredUsers)
	}
	if stats.TotalSales != 109 {
		t.Errorf("total sales = %.2f, want 109.00", stats.TotalSales)
	}
	if stats.TotalCommissions != 16.35 {
		t.Errorf("total commissions = %.2f, want 16.35", stats.TotalCommissions)
	}
	if stats.PendingAmount != pending.CommissionAmount {
		t.Errorf("pending = %.2f, want %.2f", stats.PendingAmount, pending.CommissionAmount)
	}

	// Only the paid row carries a payment month, so the grouped view
	// has exactly one line.
	if len(stats.Monthly) != 1 {
		t.Fatalf("monthly lines = %d, want 1", len(stats.Monthly))
	}
	line := stats.Monthly[0]
	if line.PaymentMonth != "2025-06" || line.Status != string(models.CommissionStatusPaid) {
		t.Errorf("monthly line = %+v", line)
	}
	if line.Total != 13.5 {
		t.Errorf("monthly total = %.2f, want 13.50", line.Total)
	}
}
