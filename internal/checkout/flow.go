package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/cheetah-storefront/internal/cart"
	"github.com/angelmondragon/cheetah-storefront/internal/orders"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// Navigation targets.
const (
	CartPath         = "/cart"
	ConfirmationPath = "/order-confirmation"
)

// Notification messages surfaced to the buyer.
const (
	MsgOrderPlaced  = "Order placed successfully!"
	MsgOrderFailed  = "Error placing order. Please try again."
	MsgUnpricedCart = "Some items in your cart could not be priced. Please try again."
)

// ErrEmptyCart is returned by Start and PlaceOrder when there is nothing to
// check out.
var ErrEmptyCart = errors.New("checkout: cart is empty")

type materializer interface {
	Materialize(ctx context.Context) cart.View
}

type cartClearer interface {
	Clear(ctx context.Context) enums.Outcome
}

type submitter interface {
	Submit(ctx context.Context, order types.OrderRequest, idempotencyKey string) (orders.Ack, error)
}

// Notification is a transient, user-facing failure. Flow state is left
// intact so the buyer can retry.
type Notification struct {
	Message string
	Err     error
}

func (n *Notification) Error() string {
	if n.Err == nil {
		return n.Message
	}
	return fmt.Sprintf("%s: %v", n.Message, n.Err)
}

func (n *Notification) Unwrap() error { return n.Err }

// Confirmation is returned by a successful PlaceOrder.
type Confirmation struct {
	OrderID types.ID
	Order   types.Order
	IsMock  bool
	Message string
}

// Path is the confirmation view location for the order.
func (c Confirmation) Path() string {
	return ConfirmationPath + "?orderId=" + url.QueryEscape(c.OrderID.String())
}

// Flow is the Shipping → Payment → Review state machine. It is not safe for
// concurrent use; one flow backs one checkout session.
type Flow struct {
	cart   materializer
	store  cartClearer
	orders submitter
	logg   *logger.Logger

	step     enums.CheckoutStep
	view     cart.View
	shipping ShippingInfo
	payment  PaymentInfo
	errs     FieldErrors
	redirect string
	started  bool
	attempt  string
}

// New builds a checkout flow.
func New(reconciler materializer, store cartClearer, submit submitter, logg *logger.Logger) (*Flow, error) {
	if reconciler == nil {
		return nil, fmt.Errorf("cart reconciler required")
	}
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if submit == nil {
		return nil, fmt.Errorf("order service required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Flow{
		cart:     reconciler,
		store:    store,
		orders:   submit,
		logg:     logg,
		errs:     FieldErrors{},
		shipping: ShippingInfo{Country: DefaultCountry},
		payment:  PaymentInfo{Method: enums.DefaultPaymentMethod},
	}, nil
}

// Start materializes the cart. An empty cart cannot be checked out: Start
// returns ErrEmptyCart and Redirect reports the cart page.
func (f *Flow) Start(ctx context.Context) error {
	f.view = f.cart.Materialize(ctx)
	f.step = enums.CheckoutStepShipping
	f.errs = FieldErrors{}
	if f.view.IsEmpty() {
		f.redirect = CartPath
		f.started = false
		return ErrEmptyCart
	}
	f.redirect = ""
	f.started = true
	f.attempt = uuid.NewString()
	return nil
}

// Step is the active step.
func (f *Flow) Step() enums.CheckoutStep { return f.step }

// Redirect is the page the buyer should be sent to instead of a step, empty
// when the flow renders normally.
func (f *Flow) Redirect() string { return f.redirect }

// View is the cart snapshot the flow was started with.
func (f *Flow) View() cart.View { return f.view }

// Total is the snapshot's subtotal.
func (f *Flow) Total() string { return f.view.Total().StringFixed(2) }

// Errors holds the messages of the last failed validation.
func (f *Flow) Errors() FieldErrors {
	out := make(FieldErrors, len(f.errs))
	for k, v := range f.errs {
		out[k] = v
	}
	return out
}

// Shipping returns the shipping form.
func (f *Flow) Shipping() ShippingInfo { return f.shipping }

// Payment returns the payment form.
func (f *Flow) Payment() PaymentInfo { return f.payment }

// SetShipping replaces the shipping form.
func (f *Flow) SetShipping(info ShippingInfo) { f.shipping = info }

// SetPayment replaces the payment form.
func (f *Flow) SetPayment(info PaymentInfo) { f.payment = info }

// Next validates the active step and advances exactly one step when it is
// complete. It reports whether the step changed.
func (f *Flow) Next() bool {
	if !f.started {
		return false
	}
	f.errs = f.validateStep(f.step)
	if len(f.errs) > 0 {
		return false
	}
	next, ok := f.step.Next()
	if !ok {
		return false
	}
	f.step = next
	return true
}

// Back moves exactly one step back. It is a no-op at Shipping.
func (f *Flow) Back() bool {
	prev, ok := f.step.Prev()
	if !ok {
		return false
	}
	f.step = prev
	f.errs = FieldErrors{}
	return true
}

// PlaceOrder submits the order from Review. On success the cart is cleared
// and the confirmation carries the new order id. On failure the flow keeps
// its state and returns a *Notification; nothing is retried automatically.
func (f *Flow) PlaceOrder(ctx context.Context) (Confirmation, error) {
	if !f.started {
		return Confirmation{}, ErrEmptyCart
	}
	if f.step != enums.CheckoutStepReview {
		return Confirmation{}, pkgerrors.New(pkgerrors.CodeStateConflict, "orders can only be placed from the review step")
	}

	errs := f.validateStep(enums.CheckoutStepShipping)
	for k, v := range f.validateStep(enums.CheckoutStepPayment) {
		errs[k] = v
	}
	f.errs = errs
	if len(errs) > 0 {
		return Confirmation{}, pkgerrors.New(pkgerrors.CodeValidation, "checkout form is incomplete").WithDetails(errs)
	}

	if f.view.Outcome != enums.OutcomeSuccess {
		f.view = f.cart.Materialize(ctx)
	}
	if f.view.IsEmpty() {
		f.redirect = CartPath
		return Confirmation{}, ErrEmptyCart
	}
	for _, line := range f.view.Lines {
		if !line.Resolved {
			return Confirmation{}, &Notification{Message: MsgUnpricedCart}
		}
	}

	request := f.buildRequest()
	ctx = f.logg.WithFields(ctx, map[string]any{"items": len(request.Items), "total": request.Total.StringFixed(2)})

	ack, err := f.orders.Submit(ctx, request, f.attempt)
	if err != nil {
		f.logg.Error(ctx, "place order", err)
		if !pkgerrors.IsTransport(err) {
			// The server answered; a new attempt must not replay that answer.
			f.attempt = uuid.NewString()
		}
		return Confirmation{}, &Notification{Message: MsgOrderFailed, Err: err}
	}

	if outcome := f.store.Clear(ctx); outcome != enums.OutcomeSuccess {
		f.logg.Warn(ctx, "order placed but cart could not be cleared")
	}
	f.started = false
	f.attempt = ""
	f.logg.Info(f.logg.WithOrderID(ctx, ack.Order.ID.String()), "order placed")

	return Confirmation{
		OrderID: ack.Order.ID,
		Order:   ack.Order,
		IsMock:  ack.IsMock,
		Message: MsgOrderPlaced,
	}, nil
}

func (f *Flow) validateStep(step enums.CheckoutStep) FieldErrors {
	switch step {
	case enums.CheckoutStepShipping:
		f.shipping = f.shipping.normalized()
		return validateForm(f.shipping)
	case enums.CheckoutStepPayment:
		f.payment = f.payment.normalized()
		return validateForm(f.payment)
	default:
		return FieldErrors{}
	}
}

func (f *Flow) buildRequest() types.OrderRequest {
	items := make([]types.OrderItem, 0, len(f.view.Lines))
	for _, line := range f.view.Lines {
		items = append(items, types.OrderItem{
			ProductID: line.ID,
			Name:      line.Name,
			Image:     line.Image,
			Price:     line.Price,
			Quantity:  line.Quantity,
		})
	}
	return types.OrderRequest{
		Items: items,
		Total: f.view.Total(),
		Shipping: types.ShippingAddress{
			Name:    strings.TrimSpace(f.shipping.FirstName + " " + f.shipping.LastName),
			Address: f.shipping.Address,
			City:    f.shipping.City,
			State:   f.shipping.State,
			ZipCode: f.shipping.ZipCode,
			Country: f.shipping.Country,
			Phone:   f.shipping.Phone,
		},
		Payment: types.PaymentSummary{
			Method:   f.payment.Method,
			CardName: f.payment.CardName,
			LastFour: f.payment.LastFour(),
		},
	}
}
