package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
)

// OrderItem is a snapshot of one cart line at submission time.
type OrderItem struct {
	ProductID ID              `json:"id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns price * quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UnmarshalJSON accepts legacy "productId" and "_id" keys.
func (i *OrderItem) UnmarshalJSON(data []byte) error {
	type plain OrderItem
	var aux struct {
		plain
		LegacyProductID ID `json:"productId"`
		LegacyID        ID `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = OrderItem(aux.plain)
	if i.ProductID.IsZero() {
		i.ProductID = aux.LegacyProductID
	}
	if i.ProductID.IsZero() {
		i.ProductID = aux.LegacyID
	}
	return nil
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// PaymentSummary is the only payment detail that leaves checkout. It never
// carries the full card number or the CVV.
type PaymentSummary struct {
	Method   enums.PaymentMethod `json:"method"`
	CardName string              `json:"cardName"`
	LastFour string              `json:"lastFour"`
}

// Order is the canonical order document.
type Order struct {
	ID        ID                `json:"id"`
	UserID    ID                `json:"userId,omitempty"`
	Items     []OrderItem       `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	Shipping  ShippingAddress   `json:"shipping"`
	Payment   PaymentSummary    `json:"payment"`
	Status    enums.OrderStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt *time.Time        `json:"updatedAt,omitempty"`
}

// ItemsTotal sums the line totals of every item.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type legacyShipping struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

type legacyPayment struct {
	Method       string `json:"method"`
	CardName     string `json:"cardName"`
	CardLastFour string `json:"cardLastFour"`
	LastFour     string `json:"lastFour"`
}

// UnmarshalJSON normalises the legacy order shape ("_id", "shippingInfo",
// "paymentInfo", "cardLastFour", display-label payment methods and
// non-canonical status spellings) into the canonical one.
func (o *Order) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID           ID               `json:"id"`
		LegacyID     ID               `json:"_id"`
		UserID       ID               `json:"userId"`
		Items        []OrderItem      `json:"items"`
		Total        decimal.Decimal  `json:"total"`
		Shipping     *ShippingAddress `json:"shipping"`
		ShippingInfo *legacyShipping  `json:"shippingInfo"`
		Payment      *legacyPayment   `json:"payment"`
		PaymentInfo  *legacyPayment   `json:"paymentInfo"`
		Status       string           `json:"status"`
		CreatedAt    time.Time        `json:"createdAt"`
		UpdatedAt    *time.Time       `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	out := Order{
		ID:        aux.ID,
		UserID:    aux.UserID,
		Items:     aux.Items,
		Total:     aux.Total,
		CreatedAt: aux.CreatedAt,
		UpdatedAt: aux.UpdatedAt,
	}
	if out.ID.IsZero() {
		out.ID = aux.LegacyID
	}

	switch {
	case aux.Shipping != nil:
		out.Shipping = *aux.Shipping
	case aux.ShippingInfo != nil:
		legacy := aux.ShippingInfo
		out.Shipping = ShippingAddress{
			Name:    strings.TrimSpace(legacy.FirstName + " " + legacy.LastName),
			Address: legacy.Address,
			City:    legacy.City,
			State:   legacy.State,
			ZipCode: legacy.ZipCode,
			Country: legacy.Country,
			Phone:   legacy.Phone,
		}
	}

	payment := aux.Payment
	if payment == nil {
		payment = aux.PaymentInfo
	}
	if payment != nil {
		out.Payment = PaymentSummary{
			CardName: payment.CardName,
			LastFour: payment.LastFour,
		}
		if out.Payment.LastFour == "" {
			out.Payment.LastFour = payment.CardLastFour
		}
		if method, err := enums.ParsePaymentMethod(payment.Method); err == nil {
			out.Payment.Method = method
		} else {
			out.Payment.Method = enums.PaymentMethod(payment.Method)
		}
	}

	if aux.Status != "" {
		if status, err := enums.ParseOrderStatus(aux.Status); err == nil {
			out.Status = status
		} else {
			out.Status = enums.OrderStatus(aux.Status)
		}
	}

	*o = out
	return nil
}

// OrderRequest is the payload submitted by checkout.
type OrderRequest struct {
	Items    []OrderItem     `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Shipping ShippingAddress `json:"shipping"`
	Payment  PaymentSummary  `json:"payment"`
}

// TrackingUpdate is one entry of an order's tracking timeline.
type TrackingUpdate struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location,omitempty"`
}

// TrackingInfo is the best-effort delivery progress of an order.
type TrackingInfo struct {
	Status            enums.OrderStatus `json:"status"`
	EstimatedDelivery *time.Time        `json:"estimatedDelivery,omitempty"`
	CurrentLocation   string            `json:"currentLocation,omitempty"`
	Updates           []TrackingUpdate  `json:"updates"`
}
