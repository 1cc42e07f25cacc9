package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// CreditPackage is one fixed (credits, price) pair from the catalog.
// The catalog is configuration, not computed: it is loaded once at boot
// and handed to the services that need pricing.
type CreditPackage struct {
	ID      string  `json:"id"`
	Credits int64   `json:"credits"`
	Price   float64 `json:"price"` // USD
}

type Config struct {
	DatabaseURL  string
	ListenAddr   string
	StoreBaseURL string

	GatewayToken string

	PaymentAPIURL string
	PaymentToken  string

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	EmailFrom    string
	AdminEmail   string

	Packages []CreditPackage
}

// Load reads the environment (with .env fallback) and fails fast on
// missing criticals, as the rest of the system assumes a valid config.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":5300"),
		StoreBaseURL:  getEnv("STORE_BASE_URL", "http://localhost:3000"),
		GatewayToken:  os.Getenv("LEAD_SERVICE_TOKEN"),
		PaymentAPIURL: os.Getenv("PAYMENT_API_URL"),
		PaymentToken:  os.Getenv("PAYMENT_API_TOKEN"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		EmailFrom:     getEnv("EMAIL_FROM", "noreply@leadstore.io"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		Packages:      DefaultPackages(),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}
	if cfg.GatewayToken == "" {
		log.Fatal("LEAD_SERVICE_TOKEN is not set — service cannot authenticate Gateway")
	}

	return cfg
}

// DefaultPackages returns the fixed six-package catalog. Prices are the
// external contract published to storefront clients.
func DefaultPackages() []CreditPackage {
	return []CreditPackage{
		{ID: "starter", Credits: 5_000, Price: 10},
		{ID: "basic", Credits: 10_000, Price: 19},
		{ID: "growth", Credits: 50_000, Price: 90},
		{ID: "pro", Credits: 100_000, Price: 170},
		{ID: "scale", Credits: 500_000, Price: 750},
		{ID: "enterprise", Credits: 1_000_000, Price: 1400},
	}
}

// PackageByID looks a package up in the catalog.
func (c *Config) PackageByID(id string) (CreditPackage, bool) {
	for _, p := range c.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return CreditPackage{}, false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
