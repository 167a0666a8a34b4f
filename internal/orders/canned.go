package orders

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const placeholderImage = "https://via.placeholder.com/150"

// canned produces the locally synthesized responses served in mock mode and
// when the API is unreachable.
type canned struct {
	now func() time.Time
}

// MockOrderID formats a locally generated order id.
func MockOrderID(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d", now.UnixMilli(), rand.IntN(1000))
}

func (c canned) ack(order types.OrderRequest) types.Order {
	now := c.now().UTC()
	items := make([]types.OrderItem, len(order.Items))
	copy(items, order.Items)
	return types.Order{
		ID:        types.ID(MockOrderID(now)),
		Items:     items,
		Total:     order.Total,
		Shipping:  order.Shipping,
		Payment:   order.Payment,
		Status:    enums.OrderStatusPending,
		CreatedAt: now,
	}
}

func (c canned) order(orderID string) types.Order {
	item := types.OrderItem{
		ProductID: "1",
		Name:      "Sample Product",
		Image:     placeholderImage,
		Price:     decimal.RequireFromString("29.99"),
		Quantity:  2,
	}
	order := types.Order{
		ID:    types.ID(orderID),
		Items: []types.OrderItem{item},
		Shipping: types.ShippingAddress{
			Name:    "John Doe",
			Address: "123 Main St",
			City:    "Sample City",
			State:   "ST",
			ZipCode: "12345",
			Country: "Sample Country",
			Phone:   "123-456-7890",
		},
		Payment: types.PaymentSummary{
			Method:   enums.PaymentMethodCredit,
			CardName: "John Doe",
			LastFour: "4242",
		},
		Status:    enums.OrderStatusPending,
		CreatedAt: c.now().UTC(),
	}
	order.Total = order.ItemsTotal()
	return order
}

func (c canned) tracking() types.TrackingInfo {
	now := c.now().UTC()
	eta := now.Add(3 * 24 * time.Hour)
	return types.TrackingInfo{
		Status:            enums.OrderStatusInTransit,
		EstimatedDelivery: &eta,
		CurrentLocation:   "Local Distribution Center",
		Updates: []types.TrackingUpdate{
			{Status: "Order Placed", Timestamp: now, Location: "Online"},
			{Status: "Processing", Timestamp: now.Add(-time.Hour), Location: "Warehouse"},
		},
	}
}

func (c canned) history() []types.Order {
	now := c.now().UTC()
	shipping := types.ShippingAddress{
		Name:    "John Doe",
		Address: "123 Main St",
		City:    "Tirana",
		ZipCode: "1000",
		Country: "Albania",
		Phone:   "+355 69 123 4567",
	}
	payment := types.PaymentSummary{
		Method:   enums.PaymentMethodCredit,
		CardName: "John Doe",
		LastFour: "1234",
	}
	entry := func(id time.Time, productID, name, price string, qty int, status enums.OrderStatus, age time.Duration) types.Order {
		o := types.Order{
			ID: types.ID(MockOrderID(id)),
			Items: []types.OrderItem{{
				ProductID: types.ID(productID),
				Name:      name,
				Image:     placeholderImage,
				Price:     decimal.RequireFromString(price),
				Quantity:  qty,
			}},
			Shipping:  shipping,
			Payment:   payment,
			Status:    status,
			CreatedAt: now.Add(-age),
		}
		o.Total = o.ItemsTotal()
		return o
	}
	return []types.Order{
		entry(now, "mock-product-1", "Mock Product 1", "29.99", 1, enums.OrderStatusDelivered, 30*24*time.Hour),
		entry(now.Add(-time.Second), "mock-product-2", "Mock Product 2", "19.99", 2, enums.OrderStatusProcessing, 5*24*time.Hour),
	}
}
