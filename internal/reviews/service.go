// Package reviews stores customer product reviews and keeps each product's
// rating aggregate in step with them.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// Viewer is the authenticated caller.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (v *Viewer) canManage(owner uuid.UUID) bool {
	return v != nil && (v.UserID == owner || v.Role == enums.UserRoleAdmin)
}

// Service manages reviews. Every write recomputes the product's rating and
// review count in the same transaction.
type Service interface {
	ListByUser(ctx context.Context, viewer *Viewer, userID string) ([]types.Review, error)
	Create(ctx context.Context, viewer *Viewer, input types.ReviewInput) (*types.Review, error)
	Update(ctx context.Context, viewer *Viewer, id string, input types.ReviewInput) (*types.Review, error)
	Delete(ctx context.Context, viewer *Viewer, id string) error
}

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	DB     *db.Client
	Logger *logger.Logger
	Now    func() time.Time
}

type service struct {
	db       *db.Client
	logg     *logger.Logger
	now      func() time.Time
	validate *validator.Validate
}

type reviewFields struct {
	Rating  int    `validate:"min=1,max=5"`
	Comment string `validate:"max=2000"`
}

// NewService constructs the review service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		logg:     logg,
		now:      now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

func (s *service) ListByUser(ctx context.Context, viewer *Viewer, userID string) ([]types.Review, error) {
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	owner, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if !viewer.canManage(owner) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another user's reviews")
	}

	rows, err := NewRepository(s.db.DB()).ListByUser(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]types.Review, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, viewer *Viewer, input types.ReviewInput) (*types.Review, error) {
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	fields, err := s.check(input)
	if err != nil {
		return nil, err
	}
	productID, err := uuid.Parse(strings.TrimSpace(input.ProductID.String()))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid review").
			WithDetails(map[string]string{"productId": "required"})
	}

	var created *models.Review
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := product.NewRepository(tx).FindByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		repo := NewRepository(tx)
		exists, err := repo.Exists(ctx, viewer.UserID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup review")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
		}

		at := s.now().UTC()
		row := &models.Review{
			ProductID: productID,
			UserID:    viewer.UserID,
			Rating:    fields.Rating,
			Comment:   fields.Comment,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := repo.Create(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
		}
		if err := Refresh(ctx, tx, productID); err != nil {
			return err
		}
		created, err = repo.FindByID(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"review_id":  created.ID.String(),
		"product_id": productID.String(),
		"rating":     created.Rating,
	}), "review created")
	dto := FromModel(*created)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, viewer *Viewer, id string, input types.ReviewInput) (*types.Review, error) {
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	fields, err := s.check(input)
	if err != nil {
		return nil, err
	}
	reviewID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}

	var updated *models.Review
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := s.owned(ctx, repo, viewer, reviewID)
		if err != nil {
			return err
		}
		row.Rating = fields.Rating
		row.Comment = fields.Comment
		row.UpdatedAt = s.now().UTC()
		if err := repo.Update(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review")
		}
		if err := Refresh(ctx, tx, row.ProductID); err != nil {
			return err
		}
		updated, err = repo.FindByID(ctx, row.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload review")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := FromModel(*updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, viewer *Viewer, id string) error {
	if viewer == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	reviewID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		row, err := s.owned(ctx, repo, viewer, reviewID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, row.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete review")
		}
		return Refresh(ctx, tx, row.ProductID)
	})
}

// owned loads the review and hides it from callers who may not manage it.
func (s *service) owned(ctx context.Context, repo *Repository, viewer *Viewer, id uuid.UUID) (*models.Review, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load review")
	}
	if !viewer.canManage(row.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "review not found")
	}
	return row, nil
}

func (s *service) check(input types.ReviewInput) (reviewFields, error) {
	fields := reviewFields{Rating: input.Rating, Comment: strings.TrimSpace(input.Comment)}
	var verrs validator.ValidationErrors
	if err := s.validate.Struct(fields); errors.As(err, &verrs) {
		details := map[string]string{}
		for _, fe := range verrs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return fields, pkgerrors.New(pkgerrors.CodeValidation, "invalid review").WithDetails(details)
	} else if err != nil {
		return fields, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate review")
	}
	return fields, nil
}

// Refresh recomputes the product's rating and review count from its reviews.
func Refresh(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	summary, err := NewRepository(tx).Summarize(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize reviews")
	}
	if err := product.NewRepository(tx).SetRatingSummary(ctx, productID, summary.Average, summary.Count); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store rating summary")
	}
	return nil
}
