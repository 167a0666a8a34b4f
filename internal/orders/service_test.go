package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

var mockIDPattern = regexp.MustCompile(`^ORD-\d+-\d{1,3}$`)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func sampleRequest() types.OrderRequest {
	return types.OrderRequest{
		Items: []types.OrderItem{
			{ProductID: "1", Name: "Sample Product 1", Price: decimal.RequireFromString("29.99"), Quantity: 2},
		},
		Total:    decimal.RequireFromString("59.98"),
		Shipping: types.ShippingAddress{Name: "Ana Hoxha", Address: "Rruga 1", City: "Tirana", ZipCode: "1001", Country: "Albania", Phone: "+355"},
		Payment:  types.PaymentSummary{Method: enums.PaymentMethodCredit, CardName: "Ana Hoxha", LastFour: "4242"},
	}
}

// unreachable returns a client pointed at a server that has already shut down.
func unreachable(t *testing.T) *apiclient.Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return apiclient.New(url, apiclient.WithTimeout(time.Second))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestNewServiceRequiresClient(t *testing.T) {
	_, err := NewService(nil, Options{})
	require.Error(t, err)
}

func TestSubmitPostsOrderWithIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/orders", r.URL.Path)
		gotKey = r.Header.Get(IdempotencyHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeJSON(w, http.StatusCreated, `{"data":{"id":"srv-1","items":[],"total":"59.98","status":"pending","createdAt":"2026-03-01T12:00:00Z"}}`)
	}))
	defer srv.Close()

	svc, err := NewService(apiclient.New(srv.URL+"/api"), Options{FallbackOnTransportError: true})
	require.NoError(t, err)

	ack, err := svc.Submit(context.Background(), sampleRequest(), "attempt-1")
	require.NoError(t, err)
	assert.False(t, ack.IsMock)
	assert.Equal(t, enums.OutcomeSuccess, ack.Outcome)
	assert.Equal(t, types.ID("srv-1"), ack.Order.ID)
	assert.Equal(t, "attempt-1", gotKey)

	payment, ok := gotBody["payment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "4242", payment["lastFour"])
	assert.NotContains(t, payment, "cardNumber")
}

func TestSubmitGeneratesKeyWhenMissing(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(IdempotencyHeader)
		writeJSON(w, http.StatusCreated, `{"data":{"id":"srv-2"}}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{})
	_, err := svc.Submit(context.Background(), sampleRequest(), "")
	require.NoError(t, err)
	assert.Len(t, gotKey, 36)
}

func TestSubmitFallsBackOnTransportError(t *testing.T) {
	svc, _ := NewService(unreachable(t), Options{FallbackOnTransportError: true, Now: fixedNow})

	req := sampleRequest()
	ack, err := svc.Submit(context.Background(), req, "k")
	require.NoError(t, err)
	assert.True(t, ack.IsMock)
	assert.Equal(t, enums.OutcomeDegraded, ack.Outcome)
	assert.Equal(t, enums.OrderStatusPending, ack.Order.Status)
	assert.Regexp(t, mockIDPattern, ack.Order.ID.String())
	assert.Equal(t, fixedNow(), ack.Order.CreatedAt)
	assert.True(t, ack.Order.Total.Equal(req.Total))
	assert.Equal(t, req.Shipping, ack.Order.Shipping)
	assert.Equal(t, req.Items, ack.Order.Items)
}

func TestSubmitDoesNotMaskRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, `{"error":{"code":"VALIDATION_ERROR","message":"insufficient stock"}}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{FallbackOnTransportError: true})
	ack, err := svc.Submit(context.Background(), sampleRequest(), "k")
	require.Error(t, err)
	assert.False(t, ack.IsMock)
	assert.Equal(t, enums.OutcomeFailed, ack.Outcome)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSubmitWithoutFallbackReturnsTransportError(t *testing.T) {
	svc, _ := NewService(unreachable(t), Options{})
	_, err := svc.Submit(context.Background(), sampleRequest(), "k")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransport(err))
}

func TestSubmitRejectsEmptyOrder(t *testing.T) {
	svc, _ := NewService(nil, Options{Mock: true})
	_, err := svc.Submit(context.Background(), types.OrderRequest{}, "")
	require.Error(t, err)
}

func TestMockModeNeverCallsNetwork(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{Mock: true, Now: fixedNow})
	ctx := context.Background()

	ack, err := svc.Submit(ctx, sampleRequest(), "")
	require.NoError(t, err)
	assert.True(t, ack.IsMock)

	order, outcome, err := svc.FetchByID(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Equal(t, types.ID("ORD-1"), order.ID)

	_, _, err = svc.Track(ctx, "ORD-1")
	require.NoError(t, err)
	_, _, err = svc.ListMine(ctx)
	require.NoError(t, err)

	assert.Zero(t, calls.Load())
}

func TestFetchByIDCannedOrderIsConsistent(t *testing.T) {
	svc, _ := NewService(unreachable(t), Options{FallbackOnTransportError: true, Now: fixedNow})

	order, outcome, err := svc.FetchByID(context.Background(), "ORD-9")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	require.NotEmpty(t, order.Items)
	assert.True(t, order.Total.Equal(order.ItemsTotal()))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("59.98")))
	assert.NotEmpty(t, order.Shipping.Name)
	assert.Equal(t, "4242", order.Payment.LastFour)
	assert.True(t, order.Status.IsValid())
}

func TestFetchByIDNormalizesLegacyShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/legacy-1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"_id":"legacy-1","items":[{"productId":"p","price":10,"quantity":1,"name":"P"}],"total":10,
			"shippingInfo":{"firstName":"John","lastName":"Doe","city":"Tirana"},
			"paymentInfo":{"method":"Credit Card","cardLastFour":"1234"},"status":"shipped"}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{})
	order, outcome, err := svc.FetchByID(context.Background(), "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, types.ID("legacy-1"), order.ID)
	assert.Equal(t, "John Doe", order.Shipping.Name)
	assert.Equal(t, "1234", order.Payment.LastFour)
	assert.Equal(t, enums.PaymentMethodCredit, order.Payment.Method)
	assert.Equal(t, enums.OrderStatusInTransit, order.Status)
	assert.Equal(t, types.ID("p"), order.Items[0].ProductID)
}

func TestFetchByIDNotFoundIsNotMasked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"order not found"}}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{FallbackOnTransportError: true})
	_, outcome, err := svc.FetchByID(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestTrackFallbackTimeline(t *testing.T) {
	svc, _ := NewService(unreachable(t), Options{FallbackOnTransportError: true, Now: fixedNow})

	info, outcome, err := svc.Track(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Equal(t, enums.OrderStatusInTransit, info.Status)
	assert.Equal(t, "Local Distribution Center", info.CurrentLocation)
	require.Len(t, info.Updates, 2)
	assert.Equal(t, "Order Placed", info.Updates[0].Status)
	assert.Equal(t, fixedNow().Add(-time.Hour), info.Updates[1].Timestamp)
}

func TestListMineFallback(t *testing.T) {
	svc, _ := NewService(unreachable(t), Options{FallbackOnTransportError: true, Now: fixedNow})

	list, outcome, err := svc.ListMine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	require.Len(t, list, 2)
	assert.Equal(t, enums.OrderStatusDelivered, list[0].Status)
	assert.Equal(t, enums.OrderStatusProcessing, list[1].Status)
	assert.True(t, list[1].Total.Equal(decimal.RequireFromString("39.98")))
	assert.Equal(t, "Albania", list[0].Shipping.Country)
}

func TestConfirmationTrackingFailureDoesNotAffectOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/o-1":
			writeJSON(w, http.StatusOK, `{"data":{"id":"o-1","status":"processing","items":[{"id":"1","price":"5","quantity":1}],"total":"5"}}`)
		default:
			writeJSON(w, http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`)
		}
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{FallbackOnTransportError: true})
	details, err := svc.Confirmation(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, types.ID("o-1"), details.Order.ID)
	assert.Equal(t, enums.OutcomeSuccess, details.OrderOutcome)
	assert.Nil(t, details.Tracking)
	assert.Error(t, details.TrackingErr)
	assert.Equal(t, enums.OutcomeFailed, details.TrackingOutcome)
}

func TestConfirmationOrderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"missing"}}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{})
	_, err := svc.Confirmation(context.Background(), "o-2")
	require.Error(t, err)
}

func TestPollStatusStopsAtTerminalStatus(t *testing.T) {
	var hits atomic.Int32
	statuses := []string{"pending", "processing", "completed"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		writeJSON(w, http.StatusOK, `{"data":{"id":"o-1","status":"`+statuses[n]+`"}}`)
	}))
	defer srv.Close()

	svc, _ := NewService(apiclient.New(srv.URL), Options{})
	var seen []enums.OrderStatus
	err := svc.PollStatus(context.Background(), "o-1", 5*time.Millisecond, func(s enums.OrderStatus) {
		seen = append(seen, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing, enums.OrderStatusCompleted}, seen)
}

func TestPollStatusHonoursContext(t *testing.T) {
	svc, _ := NewService(nil, Options{Mock: true})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	var polls int
	err := svc.PollStatus(ctx, "o-1", 5*time.Millisecond, func(enums.OrderStatus) { polls++ })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, polls, 1)
}
