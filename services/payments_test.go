package services

import (
	"context"
	"errors"
	"testing"

	"leadstore/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeProvider returns canned checkout sessions.
type fakeProvider struct {
	fail bool
	last CheckoutRequest
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if f.fail {
		return nil, errors.New("provider down")
	}
	f.last = req
	return &CheckoutSession{
		PaymentRef:  "pay_" + uuid.NewString()[:8],
		RedirectURL: "https://pay.example.com/session",
	}, nil
}

func newPaymentService(t *testing.T, db *gorm.DB) (*PaymentService, *fakeProvider) {
	t.Helper()
	provider := &fakeProvider{}
	return NewPaymentService(db, newTestMailer(), testConfig(), provider), provider
}

func TestCreateCheckout(t *testing.T) {
	db := newTestDB(t)
	svc, provider := newPaymentService(t, db)
	user := createUser(t, db, 0)

	session, err := svc.CreateCheckout(context.Background(), user.ID, "basic")
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if session.RedirectURL == "" {
		t.Error("no redirect URL")
	}
	if provider.last.AmountCents != 1900 {
		t.Errorf("amount cents = %d, want 1900", provider.last.AmountCents)
	}
	if provider.last.Credits != 10_000 {
		t.Errorf("credits = %d, want 10000", provider.last.Credits)
	}

	var purchase models.CreditPurchase
	if err := db.First(&purchase, "payment_ref = ?", session.PaymentRef).Error; err != nil {
		t.Fatalf("pending purchase not recorded: %v", err)
	}
	if purchase.Status != models.PurchaseStatusPending {
		t.Errorf("status = %s, want pending", purchase.Status)
	}
	if purchase.Amount != 19 {
		t.Errorf("amount = %.2f, want 19.00", purchase.Amount)
	}
}

func TestCreateCheckoutUnknownPackage(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)
	user := createUser(t, db, 0)

	if _, err := svc.CreateCheckout(context.Background(), user.ID, "mega"); !errors.Is(err, ErrUnknownPackage) {
		t.Errorf("got %v, want ErrUnknownPackage", err)
	}
}

func TestCreateCheckoutProviderFailure(t *testing.T) {
	db := newTestDB(t)
	svc, provider := newPaymentService(t, db)
	provider.fail = true
	user := createUser(t, db, 0)

	if _, err := svc.CreateCheckout(context.Background(), user.ID, "basic"); err == nil {
		t.Fatal("provider failure not surfaced")
	}
	var count int64
	db.Model(&models.CreditPurchase{}).Count(&count)
	if count != 0 {
		t.Errorf("purchase recorded despite provider failure")
	}
}

func checkoutFor(t *testing.T, db *gorm.DB, svc *PaymentService, userID, pkg string) string {
	t.Helper()
	session, err := svc.CreateCheckout(context.Background(), userID, pkg)
	if err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	return session.PaymentRef
}

func TestCompletePaymentGrantsCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)
	user := createUser(t, db, 500)

	ref := checkoutFor(t, db, svc, user.ID, "basic")

	if err := svc.CompletePayment(ref, 19); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}
	if got := balanceOf(t, db, user.ID); got != 10_500 {
		t.Fatalf("balance = %d, want 10500", got)
	}

	// At-least-once delivery: the replay must change nothing.
	if err := svc.CompletePayment(ref, 19); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := balanceOf(t, db, user.ID); got != 10_500 {
		t.Errorf("balance after replay = %d, want 10500", got)
	}

	var purchase models.CreditPurchase
	db.First(&purchase, "payment_ref = ?", ref)
	if purchase.Status != models.PurchaseStatusCompleted {
		t.Errorf("status = %s, want completed", purchase.Status)
	}
	if purchase.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

func TestCompletePaymentUnknownRef(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)

	if err := svc.CompletePayment("pay_never_issued", 19); err != nil {
		t.Errorf("unknown ref should be a no-op, got %v", err)
	}
}

func TestCompletePaymentCreatesCommission(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)

	affiliate := createUser(t, db, 0)
	referred := createUser(t, db, 0)
	db.Model(&models.User{}).Where("id = ?", referred.ID).Update("referred_by", affiliate.ID)

	ref := checkoutFor(t, db, svc, referred.ID, "basic")
	if err := svc.CompletePayment(ref, 19); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	var commissions []models.AffiliateCommission
	db.Find(&commissions)
	if len(commissions) != 1 {
		t.Fatalf("got %d commissions, want 1", len(commissions))
	}
	c := commissions[0]
	if c.AffiliateUserID != affiliate.ID || c.ReferredUserID != referred.ID {
		t.Errorf("commission parties wrong: %+v", c)
	}
	if c.SaleAmount != 19 {
		t.Errorf("sale amount = %.2f, want 19.00", c.SaleAmount)
	}
	if c.CommissionAmount != 2.85 {
		t.Errorf("commission amount = %.2f, want 2.85", c.CommissionAmount)
	}
	if c.Status != models.CommissionStatusPending {
		t.Errorf("status = %s, want pending", c.Status)
	}
	if c.PaymentMonth != nil || c.PaidAt != nil {
		t.Error("payment month / paid at set on a pending commission")
	}

	// Replay must not duplicate the commission either.
	if err := svc.CompletePayment(ref, 19); err != nil {
		t.Fatalf("replay: %v", err)
	}
	var count int64
	db.Model(&models.AffiliateCommission{}).Count(&count)
	if count != 1 {
		t.Errorf("commissions after replay = %d, want 1", count)
	}
}

func TestCompletePaymentNoCommissionWithoutReferral(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)
	user := createUser(t, db, 0)

	ref := checkoutFor(t, db, svc, user.ID, "starter")
	if err := svc.CompletePayment(ref, 10); err != nil {
		t.Fatalf("CompletePayment: %v", err)
	}

	var count int64
	db.Model(&models.AffiliateCommission{}).Count(&count)
	if count != 0 {
		t.Errorf("commissions = %d, want 0 for a non-referred purchase", count)
	}
}

func TestFailPayment(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newPaymentService(t, db)
	user := createUser(t, db, 0)

	ref := checkoutFor(t, db, svc, user.ID, "basic")
	if err := svc.FailPayment(ref); err != nil {
		t.Fatalf("FailPayment: %v", err)
	}

	var purchase models.CreditPurchase
	db.First(&purchase, "payment_ref = ?", ref)
	if purchase.Status != models.PurchaseStatusFailed {
		t.Errorf("status = %s, want failed", purchase.Status)
	}
	if got := balanceOf(t, db, user.ID); got != 0 {
		t.Errorf("credits granted on a failed payment: %d", got)
	}

	// A failed purchase is terminal; a late completion event is ignored.
	if err := svc.CompletePayment(ref, 19); err != nil {
		t.Fatalf("late completion: %v", err)
	}
	if got := balanceOf(t, db, user.ID); got != 0 {
		t.Errorf("late completion granted credits: %d", got)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{19 * 0.15, 2.85},
		{10 * 0.15, 1.5},
		{90 * 0.15, 13.5},
		{170 * 0.15, 25.5},
		{1400 * 0.15, 210},
		{0.004, 0},
		{0.005, 0.01},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
