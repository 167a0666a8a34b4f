package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/pagination"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service exposes the read side of the catalogue.
type Service interface {
	List(ctx context.Context, input ListInput) (*types.ProductPage, error)
	Search(ctx context.Context, query string, input ListInput) (*types.ProductPage, error)
	Get(ctx context.Context, id string) (*types.Product, error)
	Categories(ctx context.Context) ([]types.Category, error)
	ByCategory(ctx context.Context, category string, page pagination.PageParams) (*types.ProductPage, error)
}

// ListInput captures the browse filters accepted by the products endpoints.
type ListInput struct {
	Category string
	Page     pagination.PageParams
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, q ListQuery) ([]models.Product, int64, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	FindCategory(ctx context.Context, ref string) (*models.Category, error)
}

type service struct {
	repo repository
}

// NewService builds the catalogue service.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*types.ProductPage, error) {
	return s.search(ctx, "", input)
}

func (s *service) Search(ctx context.Context, query string, input ListInput) (*types.ProductPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	return s.search(ctx, query, input)
}

func (s *service) Get(ctx context.Context, id string) (*types.Product, error) {
	productID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := FromModel(*row)
	return &dto, nil
}

func (s *service) Categories(ctx context.Context) ([]types.Category, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list categories")
	}
	out := make([]types.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, CategoryFromModel(row))
	}
	return out, nil
}

func (s *service) ByCategory(ctx context.Context, category string, page pagination.PageParams) (*types.ProductPage, error) {
	if strings.TrimSpace(category) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	resolved, err := s.resolveCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, ListQuery{CategoryID: &resolved.ID, Page: page.Normalize()})
}

func (s *service) search(ctx context.Context, term string, input ListInput) (*types.ProductPage, error) {
	page := input.Page.Normalize()
	q := ListQuery{Search: term, Page: page}

	if strings.TrimSpace(input.Category) != "" {
		category, err := s.resolveCategory(ctx, input.Category)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				return emptyPage(page), nil
			}
			return nil, err
		}
		q.CategoryID = &category.ID
	}
	return s.page(ctx, q)
}

func (s *service) page(ctx context.Context, q ListQuery) (*types.ProductPage, error) {
	rows, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	products := make([]types.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, FromModel(row))
	}
	return &types.ProductPage{
		Products: products,
		Total:    total,
		Page:     q.Page.Page,
		Pages:    pagination.Pages(total, q.Page.Limit),
	}, nil
}

func (s *service) resolveCategory(ctx context.Context, ref string) (*models.Category, error) {
	category, err := s.repo.FindCategory(ctx, ref)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return category, nil
}

func emptyPage(page pagination.PageParams) *types.ProductPage {
	return &types.ProductPage{Products: []types.Product{}, Page: page.Page, Pages: 1}
}
