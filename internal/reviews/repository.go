package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
)

// Summary is the review aggregate of one product.
type Summary struct {
	Count   int
	Average *float64
}

// Repository persists reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a review, assigning an id when missing.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Product").Create(review).Error
}

// FindByID loads a review with its product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := r.db.WithContext(ctx).Preload("Product").First(&review, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// Exists reports whether userID already reviewed productID.
func (r *Repository) Exists(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error
	return count > 0, err
}

// ListByUser returns the user's reviews, most recently edited first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	var rows []models.Review
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// Update overwrites rating and comment.
func (r *Repository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("id = ?", review.ID).
		UpdateColumns(map[string]any{
			"rating":     review.Rating,
			"comment":    review.Comment,
			"updated_at": review.UpdatedAt,
		}).Error
}

// Delete removes a review.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id).Error
}

// Summarize computes the product's review count and average rating,
// rounded to two decimals.
func (r *Repository) Summarize(ctx context.Context, productID uuid.UUID) (Summary, error) {
	var row struct {
		Count int64
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS total").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Count: int(row.Count)}
	if row.Count > 0 {
		avg, _ := decimal.NewFromInt(row.Total).Div(decimal.NewFromInt(row.Count)).Round(2).Float64()
		summary.Average = &avg
	}
	return summary, nil
}
