package product

import (
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// FromModel maps a product row onto the catalogue document served to clients.
// The category is reported by slug.
func FromModel(p models.Product) types.Product {
	out := types.Product{
		ID:          types.ID(p.ID.String()),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
		Rating:      p.Rating,
	}
	if p.Category != nil {
		out.Category = p.Category.Slug
	}
	reviews := p.Reviews
	out.Reviews = &reviews
	return out
}

// CategoryFromModel maps a category row.
func CategoryFromModel(c models.Category) types.Category {
	return types.Category{
		ID:          types.ID(c.ID.String()),
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
	}
}
