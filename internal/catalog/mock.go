package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const placeholderImage = "https://via.placeholder.com/150"

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func mockProducts() []types.Product {
	return []types.Product{
		{
			ID:          "1",
			Name:        "Sample Product 1",
			Description: "A sample product description",
			Price:       decimal.RequireFromString("29.99"),
			Image:       placeholderImage,
			Category:    "electronics",
			Stock:       10,
			Rating:      ptrFloat(4.5),
			Reviews:     ptrInt(25),
		},
		{
			ID:          "2",
			Name:        "Sample Product 2",
			Description: "Another sample product description",
			Price:       decimal.RequireFromString("19.99"),
			Image:       placeholderImage,
			Category:    "clothing",
			Stock:       15,
			Rating:      ptrFloat(4.0),
			Reviews:     ptrInt(18),
		},
	}
}

func mockCategories() []types.Category {
	return []types.Category{
		{ID: "1", Name: "Electronics", Slug: "electronics", Description: "Electronic devices and accessories"},
		{ID: "2", Name: "Clothing", Slug: "clothing", Description: "Fashion and apparel"},
		{ID: "3", Name: "Books", Slug: "books", Description: "Books and literature"},
	}
}

// mockProduct answers a lookup in mock mode; unknown ids get the generic sample.
func mockProduct(id string) types.Product {
	for _, p := range mockProducts() {
		if string(p.ID) == id {
			return p
		}
	}
	return types.Product{
		ID:          types.ID(id),
		Name:        "Sample Product",
		Description: "A sample product description",
		Price:       decimal.RequireFromString("29.99"),
		Image:       placeholderImage,
		Category:    "electronics",
		Stock:       10,
		Rating:      ptrFloat(4.5),
		Reviews:     ptrInt(25),
	}
}

func pageOf(products []types.Product) types.ProductPage {
	return types.ProductPage{Products: products, Total: int64(len(products)), Page: 1, Pages: 1}
}

func mockListing(category string) types.ProductPage {
	category = strings.ToLower(strings.TrimSpace(category))
	products := mockProducts()
	if category == "" {
		return pageOf(products)
	}
	filtered := make([]types.Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return pageOf(filtered)
}

func mockSearch(query string) types.ProductPage {
	query = strings.ToLower(strings.TrimSpace(query))
	matches := []types.Product{}
	for _, p := range mockProducts() {
		if query == "" || strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.Description), query) {
			matches = append(matches, p)
		}
	}
	return pageOf(matches)
}

func mockByCategory(categoryID string) types.ProductPage {
	product := mockProducts()[0]
	product.Category = categoryID
	return pageOf([]types.Product{product})
}
