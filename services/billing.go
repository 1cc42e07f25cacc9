package services

import (
	"fmt"
	"log"
	"sort"
	"time"

	"leadstore/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type BillingService struct {
	DB *gorm.DB
}

func NewBillingService(db *gorm.DB) *BillingService {
	return &BillingService{DB: db}
}

// AffiliateBill is one affiliate's share of a monthly bill.
type AffiliateBill struct {
	AffiliateUserID  string   `json:"affiliate_user_id"`
	TotalCommissions float64  `json:"total_commissions"`
	TotalSales       float64  `json:"total_sales"`
	TransactionCount int      `json:"transaction_count"`
	CommissionIDs    []string `json:"commission_ids"`
}

// MonthlyBill groups pending commissions by the calendar month they
// were earned in (row creation month, since payment_month is still
// null on pending rows).
type MonthlyBill struct {
	Month            string          `json:"month"` // YYYY-MM
	TotalCommissions float64         `json:"total_commissions"`
	TotalSales       float64         `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	Affiliates       []AffiliateBill `json:"affiliates"`
}

// MonthlyBills reduces the full pending set into per-month bills with
// nested per-affiliate sub-groups, most recent month first.
func (s *BillingService) MonthlyBills() ([]MonthlyBill, error) {
	var pending []models.AffiliateCommission
	if err := s.DB.
		Where("status = ?", models.CommissionStatusPending).
		Order("created_at DESC").
		Find(&pending).Error; err != nil {
		return nil, err
	}

	byMonth := make(map[string][]models.AffiliateCommission)
	for _, c := range pending {
		month := c.CreatedAt.UTC().Format("2006-01")
		byMonth[month] = append(byMonth[month], c)
	}

	bills := make([]MonthlyBill, 0, len(byMonth))
	for month, rows := range byMonth {
		bill := MonthlyBill{Month: month}

		byAffiliate := make(map[string]*AffiliateBill)
		for _, c := range rows {
			bill.TotalCommissions += c.CommissionAmount
			bill.TotalSales += c.SaleAmount
			bill.TransactionCount++

			ab, ok := byAffiliate[c.AffiliateUserID]
			if !ok {
				ab = &AffiliateBill{AffiliateUserID: c.AffiliateUserID}
				byAffiliate[c.AffiliateUserID] = ab
			}
			ab.TotalCommissions += c.CommissionAmount
			ab.TotalSales += c.SaleAmount
			ab.TransactionCount++
			ab.CommissionIDs = append(ab.CommissionIDs, c.ID)
		}

		bill.TotalCommissions = Round2(bill.TotalCommissions)
		bill.TotalSales = Round2(bill.TotalSales)
		for _, ab := range byAffiliate {
			ab.TotalCommissions = Round2(ab.TotalCommissions)
			ab.TotalSales = Round2(ab.TotalSales)
			bill.Affiliates = append(bill.Affiliates, *ab)
		}
		sort.Slice(bill.Affiliates, func(i, j int) bool {
			return bill.Affiliates[i].TotalCommissions > bill.Affiliates[j].TotalCommissions
		})

		bills = append(bills, bill)
	}

	sort.Slice(bills, func(i, j int) bool {
		return bills[i].Month > bills[j].Month
	})

	return bills, nil
}

// MarkCommissionsPaid bulk-stamps status, payment month, and paid-at
// for every id in the set. Re-running with the same ids is harmless:
// the rows end up paid either way, with the latest call's month and
// timestamps. paymentMonth is the month payment is processed in, which
// the caller computes; it need not match the month earned.
func (s *BillingService) MarkCommissionsPaid(ids []string, paymentMonth string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("commission_ids is required")
	}
	if _, err := time.Parse("2006-01", paymentMonth); err != nil {
		return 0, fmt.Errorf("payment_month must be YYYY-MM")
	}

	res := s.DB.Model(&models.AffiliateCommission{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":        models.CommissionStatusPaid,
			"payment_month": paymentMonth,
			"paid_at":       time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// --- Fiber handlers ---

// GetMonthlyBills handles GET /s/admin/commissions/bills.
func (s *BillingService) GetMonthlyBills(c *fiber.Ctx) error {
	bills, err := s.MonthlyBills()
	if err != nil {
		log.Printf("DB Error building monthly bills: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build bills"})
	}
	return c.JSON(bills)
}

// MarkPaid handles POST /s/admin/commissions/mark-paid.
func (s *BillingService) MarkPaid(c *fiber.Ctx) error {
	var req struct {
		CommissionIDs []string `json:"commission_ids"`
		PaymentMonth  string   `json:"payment_month"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updated, err := s.MarkCommissionsPaid(req.CommissionIDs, req.PaymentMonth)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"message": "Commissions marked paid", "updated": updated})
}
