package sales

import (
	"time"

	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const (
	deliveryWindow  = 5 * 24 * time.Hour
	defaultLocation = "Online"
)

var statusLabels = map[enums.OrderStatus]string{
	enums.OrderStatusPending:    "Order Placed",
	enums.OrderStatusProcessing: "Processing",
	enums.OrderStatusInTransit:  "In Transit",
	enums.OrderStatusDelivered:  "Delivered",
	enums.OrderStatusCompleted:  "Completed",
	enums.OrderStatusCancelled:  "Cancelled",
}

// StatusLabel is the timeline caption for status.
func StatusLabel(status enums.OrderStatus) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return string(status)
}

// OrderPage is one page of the administrative order listing.
type OrderPage struct {
	Orders     []types.Order `json:"orders"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

// FromModel maps an order row onto the canonical order document.
func FromModel(o models.Order) types.Order {
	out := types.Order{
		ID:     types.ID(o.ID.String()),
		Items:  make([]types.OrderItem, 0, len(o.Items)),
		Total:  o.Total,
		Status: o.Status,
		Shipping: types.ShippingAddress{
			Name:    o.ShipName,
			Address: o.ShipAddress,
			City:    o.ShipCity,
			State:   o.ShipState,
			ZipCode: o.ShipZipCode,
			Country: o.ShipCountry,
			Phone:   o.ShipPhone,
		},
		Payment: types.PaymentSummary{
			Method:   o.PaymentMethod,
			CardName: o.PaymentCardName,
			LastFour: o.PaymentLastFour,
		},
		CreatedAt: o.CreatedAt.UTC(),
	}
	if o.UserID != nil {
		out.UserID = types.ID(o.UserID.String())
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, types.OrderItem{
			ProductID: types.ID(item.ProductID.String()),
			Name:      item.Name,
			Image:     item.Image,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	if !o.UpdatedAt.IsZero() && o.UpdatedAt.After(o.CreatedAt) {
		updated := o.UpdatedAt.UTC()
		out.UpdatedAt = &updated
	}
	return out
}

// TrackingFromModel builds the delivery timeline, newest event first.
func TrackingFromModel(o models.Order) types.TrackingInfo {
	info := types.TrackingInfo{
		Status:  o.Status,
		Updates: make([]types.TrackingUpdate, 0, len(o.Events)),
	}
	for i := len(o.Events) - 1; i >= 0; i-- {
		event := o.Events[i]
		info.Updates = append(info.Updates, types.TrackingUpdate{
			Status:    StatusLabel(event.Status),
			Timestamp: event.CreatedAt.UTC(),
			Location:  event.Location,
		})
	}
	if len(o.Events) > 0 {
		info.CurrentLocation = o.Events[len(o.Events)-1].Location
	}
	switch o.Status {
	case enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusInTransit:
		eta := o.CreatedAt.UTC().Add(deliveryWindow)
		info.EstimatedDelivery = &eta
	}
	return info
}
