package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":" abc ","c":null}`), &payload))
	assert.Equal(t, ID("1"), payload.A)
	assert.Equal(t, ID("abc"), payload.B)
	assert.True(t, payload.C.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"1","b":"abc","c":""}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":true}`), &payload))
}

func TestProductLegacyID(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc","name":"Lamp","price":29.99,"stock":3}`), &p))
	assert.Equal(t, ID("abc"), p.ID)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("29.99")))

	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"_id":"ignored","name":"Lamp","price":"1.50"}`), &p))
	assert.Equal(t, ID("7"), p.ID)
}

func TestOrderNormalisesLegacyShape(t *testing.T) {
	legacy := `{
		"_id": "ORD-1-2",
		"items": [{"productId": "mock-product-2", "quantity": 2, "price": 19.99, "name": "Mock Product 2"}],
		"total": 39.98,
		"shippingInfo": {"firstName": "John", "lastName": "Doe", "address": "123 Main St", "city": "Tirana", "state": "", "zipCode": "1000", "country": "Albania", "phone": "+355 69 123 4567"},
		"paymentInfo": {"method": "credit", "cardName": "John Doe", "cardLastFour": "1234"},
		"status": "shipped",
		"createdAt": "2026-01-02T03:04:05Z"
	}`

	var order Order
	require.NoError(t, json.Unmarshal([]byte(legacy), &order))
	assert.Equal(t, ID("ORD-1-2"), order.ID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, ID("mock-product-2"), order.Items[0].ProductID)
	assert.Equal(t, "John Doe", order.Shipping.Name)
	assert.Equal(t, "Albania", order.Shipping.Country)
	assert.Equal(t, "1234", order.Payment.LastFour)
	assert.Equal(t, enums.PaymentMethodCredit, order.Payment.Method)
	assert.Equal(t, enums.OrderStatusInTransit, order.Status)
	assert.True(t, order.Total.Equal(order.ItemsTotal()))
}

func TestOrderCanonicalRoundTrip(t *testing.T) {
	canonical := `{
		"id": "o-1",
		"items": [{"id": 1, "quantity": 2, "price": 29.99, "name": "Sample Product"}],
		"total": 59.98,
		"shipping": {"name": "John Doe", "address": "123 Main St", "city": "Sample City", "zipCode": "12345", "country": "Sample Country", "phone": "123-456-7890"},
		"payment": {"method": "Credit Card", "cardName": "John Doe", "lastFour": "4242"},
		"status": "pending",
		"createdAt": "2026-01-02T03:04:05Z"
	}`

	var order Order
	require.NoError(t, json.Unmarshal([]byte(canonical), &order))
	assert.Equal(t, ID("1"), order.Items[0].ProductID)
	assert.Equal(t, enums.PaymentMethodCredit, order.Payment.Method)
	assert.Equal(t, enums.OrderStatusPending, order.Status)

	encoded, err := json.Marshal(order)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "shippingInfo")
	assert.NotContains(t, string(encoded), "_id")

	var again Order
	require.NoError(t, json.Unmarshal(encoded, &again))
	assert.Equal(t, order.ID, again.ID)
	assert.Equal(t, order.Shipping, again.Shipping)
}
