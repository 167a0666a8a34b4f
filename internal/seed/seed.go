// Package seed loads the demo catalogue, accounts and reviews into an empty
// database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/internal/reviews"
	"github.com/angelmondragon/cheetah-storefront/internal/users"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/security"
)

const placeholderImage = "https://via.placeholder.com/150"

// Result reports what a run inserted.
type Result struct {
	Categories int
	Products   int
	Users      int
	Reviews    int
}

type demoCategory struct {
	name, slug, description string
}

type demoProduct struct {
	name, description, price, category string
	stock                              int
}

type demoReview struct {
	email, product string
	rating         int
	comment        string
}

type demoUser struct {
	email, firstName, lastName, phone string
	role                              enums.UserRole
}

var categories = []demoCategory{
	{"Electronics", "electronics", "Electronic devices and accessories"},
	{"Clothing", "clothing", "Fashion and apparel"},
	{"Books", "books", "Books and literature"},
}

var products = []demoProduct{
	{"Wireless Headphones", "Over-ear headphones with noise cancellation", "129.99", "electronics", 25},
	{"Smart Watch", "Fitness tracking and notifications on your wrist", "199.00", "electronics", 12},
	{"USB-C Charger", "65W fast charger with two ports", "29.99", "electronics", 80},
	{"Denim Jacket", "Classic fit denim jacket", "59.90", "clothing", 30},
	{"Cotton T-Shirt", "Soft everyday t-shirt", "19.99", "clothing", 150},
	{"The Go Programming Language", "A thorough introduction to Go", "39.50", "books", 20},
	{"Designing Data-Intensive Applications", "The big ideas behind reliable systems", "45.00", "books", 0},
}

var demoReviews = []demoReview{
	{"demo@example.com", "Wireless Headphones", 5, "Great noise cancellation on the train."},
	{"demo@example.com", "Smart Watch", 4, "Battery easily lasts the week."},
	{"demo@example.com", "The Go Programming Language", 5, "Clear and thorough."},
	{"demo@example.com", "Cotton T-Shirt", 4, "Soft, runs slightly large."},
	{"admin@example.com", "Wireless Headphones", 4, "Comfortable for long calls."},
	{"admin@example.com", "USB-C Charger", 5, "Charges laptop and phone together."},
	{"admin@example.com", "Designing Data-Intensive Applications", 5, "Required reading."},
	{"delivery@example.com", "Smart Watch", 3, "Strap could be sturdier."},
	{"delivery@example.com", "Denim Jacket", 4, "Classic fit."},
}

var accounts = []demoUser{
	{"admin@example.com", "Admin", "User", "+1 234 567 8900", enums.UserRoleAdmin},
	{"demo@example.com", "Demo", "User", "+1 234 567 8901", enums.UserRoleUser},
	{"delivery@example.com", "Delivery", "User", "+1 234 567 8902", enums.UserRoleDelivery},
}

// Run inserts whatever part of the demo data is missing. Existing categories
// (by slug), products (by name), users (by email) and reviews (by user and
// product) are left untouched, so running it twice is harmless. Product
// ratings are derived from the reviews.
func Run(ctx context.Context, db *gorm.DB, hasher *security.Hasher, password string, logg *logger.Logger) (Result, error) {
	if db == nil {
		return Result{}, fmt.Errorf("db is required")
	}
	if hasher == nil {
		return Result{}, fmt.Errorf("password hasher is required")
	}

	var result Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalogue := product.NewRepository(tx)
		slugs := make(map[string]uuid.UUID, len(categories))
		for _, c := range categories {
			existing, err := catalogue.FindCategory(ctx, c.slug)
			switch {
			case err == nil:
				slugs[c.slug] = existing.ID
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("find category %s: %w", c.slug, err)
			}
			row := &models.Category{Name: c.name, Slug: c.slug, Description: c.description}
			if err := catalogue.CreateCategory(ctx, row); err != nil {
				return fmt.Errorf("create category %s: %w", c.slug, err)
			}
			slugs[c.slug] = row.ID
			result.Categories++
		}

		now := time.Now().UTC()
		base := now.Add(-time.Duration(len(products)) * time.Minute)
		productIDs := make(map[string]uuid.UUID, len(products))
		for i, p := range products {
			var existing models.Product
			err := tx.Where("name = ?", p.name).Limit(1).Find(&existing).Error
			if err != nil {
				return fmt.Errorf("find product %s: %w", p.name, err)
			}
			if existing.ID != uuid.Nil {
				productIDs[p.name] = existing.ID
				continue
			}
			categoryID := slugs[p.category]
			row := &models.Product{
				Name:        p.name,
				Description: p.description,
				Price:       decimal.RequireFromString(p.price),
				Image:       placeholderImage,
				CategoryID:  &categoryID,
				Stock:       p.stock,
				CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			}
			if err := catalogue.CreateProduct(ctx, row); err != nil {
				return fmt.Errorf("create product %s: %w", p.name, err)
			}
			productIDs[p.name] = row.ID
			result.Products++
		}

		people := users.NewRepository(tx)
		userIDs := make(map[string]uuid.UUID, len(accounts))
		for _, u := range accounts {
			existing, err := people.FindByEmail(ctx, u.email)
			switch {
			case err == nil:
				userIDs[u.email] = existing.ID
				continue
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("find user %s: %w", u.email, err)
			}
			hash, err := hasher.Hash(password)
			if err != nil {
				return fmt.Errorf("hash password for %s: %w", u.email, err)
			}
			created, err := people.Create(ctx, users.CreateUserDTO{
				Email:        u.email,
				PasswordHash: hash,
				FirstName:    u.firstName,
				LastName:     u.lastName,
				Phone:        u.phone,
				Role:         u.role,
			})
			if err != nil {
				return fmt.Errorf("create user %s: %w", u.email, err)
			}
			userIDs[u.email] = created.ID
			result.Users++
		}

		feedback := reviews.NewRepository(tx)
		touched := map[uuid.UUID]struct{}{}
		for _, r := range demoReviews {
			userID, productID := userIDs[r.email], productIDs[r.product]
			exists, err := feedback.Exists(ctx, userID, productID)
			if err != nil {
				return fmt.Errorf("find review %s/%s: %w", r.email, r.product, err)
			}
			if exists {
				continue
			}
			row := &models.Review{
				ProductID: productID,
				UserID:    userID,
				Rating:    r.rating,
				Comment:   r.comment,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := feedback.Create(ctx, row); err != nil {
				return fmt.Errorf("create review %s/%s: %w", r.email, r.product, err)
			}
			touched[productID] = struct{}{}
			result.Reviews++
		}
		for productID := range touched {
			if err := reviews.Refresh(ctx, tx, productID); err != nil {
				return fmt.Errorf("refresh rating %s: %w", productID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"categories": result.Categories,
			"products":   result.Products,
			"users":      result.Users,
			"reviews":    result.Reviews,
		})
		logg.Info(ctx, "demo data seeded")
	}
	return result, nil
}
