package database

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// SeedOptions controls the initial admin account created by Seed.
type SeedOptions struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

var seedCategories = []models.Category{
	{Name: "Staples", Description: "Rice, flour, pulses and oil"},
	{Name: "Dairy", Description: "Milk, curd, paneer and butter"},
	{Name: "Snacks", Description: "Biscuits, namkeen and chips"},
	{Name: "Beverages", Description: "Tea, coffee and juices"},
}

type seedProduct struct {
	category string
	product  models.Product
}

var seedProducts = []seedProduct{
	{"Staples", models.Product{Name: "Basmati Rice 5kg", SKU: "STP-RICE-5KG", Price: decimal.RequireFromString("649.00"), TaxRate: decimal.NewFromInt(5), Stock: 40}},
	{"Staples", models.Product{Name: "Whole Wheat Atta 10kg", SKU: "STP-ATTA-10KG", Price: decimal.RequireFromString("455.00"), TaxRate: decimal.NewFromInt(5), Stock: 30}},
	{"Dairy", models.Product{Name: "Toned Milk 1L", SKU: "DRY-MILK-1L", Price: decimal.RequireFromString("54.00"), TaxRate: decimal.Zero, Stock: 120}},
	{"Dairy", models.Product{Name: "Paneer 200g", SKU: "DRY-PNR-200G", Price: decimal.RequireFromString("90.00"), TaxRate: decimal.NewFromInt(5), Stock: 60}},
	{"Snacks", models.Product{Name: "Salted Cashews 250g", SKU: "SNK-CSH-250G", Price: decimal.RequireFromString("310.00"), TaxRate: decimal.NewFromInt(12), Stock: 25}},
	{"Beverages", models.Product{Name: "Assam Tea 500g", SKU: "BEV-TEA-500G", Price: decimal.RequireFromString("265.00"), TaxRate: decimal.NewFromInt(5), Stock: 50}},
	{"Beverages", models.Product{Name: "Cold Coffee 200ml", SKU: "BEV-CFE-200ML", Price: decimal.RequireFromString("45.00"), TaxRate: decimal.NewFromInt(28), Stock: 80}},
}

// Seed inserts the admin account, categories and a starter catalog. Existing rows are left untouched.
func Seed(db *gorm.DB, opts SeedOptions, log *logrus.Logger) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var admins int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
			return fmt.Errorf("failed to count admins: %w", err)
		}
		if admins == 0 {
			hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash admin password: %w", err)
			}
			admin := models.User{
				Username: opts.AdminUsername,
				Email:    opts.AdminEmail,
				Password: string(hash),
				Role:     models.RoleAdmin,
				FullName: "Store Administrator",
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("failed to create admin user: %w", err)
			}
			log.WithField("username", admin.Username).Info("created admin user")
		}

		categoryIDs := make(map[string]uint, len(seedCategories))
		for _, c := range seedCategories {
			category := c
			category.IsActive = true
			if err := tx.Where(models.Category{Name: c.Name}).FirstOrCreate(&category).Error; err != nil {
				return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
			}
			categoryIDs[c.Name] = category.ID
		}

		for _, sp := range seedProducts {
			product := sp.product
			product.IsActive = true
			categoryID := categoryIDs[sp.category]
			product.CategoryID = &categoryID
			if err := tx.Where(models.Product{SKU: product.SKU}).FirstOrCreate(&product).Error; err != nil {
				return fmt.Errorf("failed to seed product %s: %w", product.SKU, err)
			}
		}

		log.WithFields(logrus.Fields{
			"categories": len(seedCategories),
			"products":   len(seedProducts),
		}).Info("seed data applied")
		return nil
	})
}
