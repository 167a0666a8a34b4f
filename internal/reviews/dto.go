package reviews

import (
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// FromModel maps a review row. The product must be preloaded for the name
// to be filled.
func FromModel(r models.Review) types.Review {
	out := types.Review{
		ID:        types.ID(r.ID.String()),
		ProductID: types.ID(r.ProductID.String()),
		UserID:    types.ID(r.UserID.String()),
		Rating:    r.Rating,
		Comment:   r.Comment,
		Date:      r.UpdatedAt,
	}
	if r.Product != nil {
		out.ProductName = r.Product.Name
	}
	return out
}
