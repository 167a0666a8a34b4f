package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const (
	serviceName = "orders"

	// IdempotencyHeader carries the per-checkout-attempt key on submission.
	IdempotencyHeader = "Idempotency-Key"

	defaultPollInterval = 5 * time.Second
)

type transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Do(ctx context.Context, req apiclient.Request, out any) error
}

// Service submits orders and reads them back.
type Service interface {
	Submit(ctx context.Context, order types.OrderRequest, idempotencyKey string) (Ack, error)
	FetchByID(ctx context.Context, orderID string) (types.Order, enums.Outcome, error)
	Track(ctx context.Context, orderID string) (types.TrackingInfo, enums.Outcome, error)
	ListMine(ctx context.Context) ([]types.Order, enums.Outcome, error)
	Confirmation(ctx context.Context, orderID string) (Details, error)
	PollStatus(ctx context.Context, orderID string, interval time.Duration, fn func(enums.OrderStatus)) error
}

// Ack is the result of a submission. IsMock marks an acknowledgment that was
// synthesized locally instead of returned by the server.
type Ack struct {
	Order   types.Order
	IsMock  bool
	Outcome enums.Outcome
}

// Details is what the confirmation view shows: the order plus best-effort
// tracking. A tracking failure is reported in TrackingErr and never affects
// the order.
type Details struct {
	Order           types.Order
	OrderOutcome    enums.Outcome
	Tracking        *types.TrackingInfo
	TrackingOutcome enums.Outcome
	TrackingErr     error
}

// Options selects mock and fallback behaviour.
type Options struct {
	Mock                     bool
	FallbackOnTransportError bool
	Logger                   *logger.Logger
	Metrics                  *metrics.ClientMetrics
	Now                      func() time.Time
}

type service struct {
	api      transport
	mock     bool
	fallback bool
	logg     *logger.Logger
	metrics  *metrics.ClientMetrics
	canned   canned
}

// NewService builds the order client.
func NewService(api transport, opts Options) (Service, error) {
	if api == nil && !opts.Mock {
		return nil, fmt.Errorf("api client required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		api:      api,
		mock:     opts.Mock,
		fallback: opts.FallbackOnTransportError,
		logg:     logg,
		metrics:  opts.Metrics,
		canned:   canned{now: now},
	}, nil
}

// Submit posts the order. When the API cannot be reached a pending
// acknowledgment is synthesized locally; server rejections are returned.
func (s *service) Submit(ctx context.Context, order types.OrderRequest, idempotencyKey string) (Ack, error) {
	if len(order.Items) == 0 {
		return Ack{Outcome: enums.OutcomeFailed}, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	ctx = s.logg.WithField(ctx, "items", len(order.Items))
	if s.mock {
		return s.mockAck(ctx, order, metrics.ReasonMock), nil
	}

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	s.logg.Debug(ctx, "submitting order")

	var saved types.Order
	err := s.api.Do(ctx, apiclient.Request{
		Method:  http.MethodPost,
		Path:    "/orders",
		Body:    order,
		Headers: map[string]string{IdempotencyHeader: key},
	}, &saved)
	if err == nil {
		s.logg.Debug(s.logg.WithOrderID(ctx, saved.ID.String()), "order saved")
		return Ack{Order: saved, Outcome: enums.OutcomeSuccess}, nil
	}
	if s.canFallback(err) {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "order api unreachable, synthesizing acknowledgment")
		return s.mockAck(ctx, order, metrics.ReasonTransport), nil
	}
	return Ack{Outcome: enums.OutcomeFailed}, err
}

func (s *service) mockAck(ctx context.Context, order types.OrderRequest, reason string) Ack {
	s.metrics.IncFallback(serviceName, "submit", reason)
	ack := s.canned.ack(order)
	s.logg.Debug(s.logg.WithOrderID(ctx, ack.ID.String()), "mock order acknowledged")
	return Ack{Order: ack, IsMock: true, Outcome: enums.OutcomeDegraded}
}

// FetchByID loads one order.
func (s *service) FetchByID(ctx context.Context, orderID string) (types.Order, enums.Outcome, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return types.Order{}, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if s.mock {
		s.metrics.IncFallback(serviceName, "fetch", metrics.ReasonMock)
		return s.canned.order(orderID), enums.OutcomeDegraded, nil
	}

	var order types.Order
	err := s.api.Get(ctx, "/orders/"+apiclient.PathEscape(orderID), nil, &order)
	if err == nil {
		return order, enums.OutcomeSuccess, nil
	}
	if s.canFallback(err) {
		s.warnFallback(ctx, "fetch", orderID, err)
		return s.canned.order(orderID), enums.OutcomeDegraded, nil
	}
	return types.Order{}, enums.OutcomeFailed, err
}

// Track loads the tracking timeline of an order.
func (s *service) Track(ctx context.Context, orderID string) (types.TrackingInfo, enums.Outcome, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return types.TrackingInfo{}, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if s.mock {
		s.metrics.IncFallback(serviceName, "track", metrics.ReasonMock)
		return s.canned.tracking(), enums.OutcomeDegraded, nil
	}

	var info types.TrackingInfo
	err := s.api.Get(ctx, "/orders/"+apiclient.PathEscape(orderID)+"/tracking", nil, &info)
	if err == nil {
		return info, enums.OutcomeSuccess, nil
	}
	if s.canFallback(err) {
		s.warnFallback(ctx, "track", orderID, err)
		return s.canned.tracking(), enums.OutcomeDegraded, nil
	}
	return types.TrackingInfo{}, enums.OutcomeFailed, err
}

// ListMine loads the signed-in user's order history.
func (s *service) ListMine(ctx context.Context) ([]types.Order, enums.Outcome, error) {
	if s.mock {
		s.metrics.IncFallback(serviceName, "list_mine", metrics.ReasonMock)
		return s.canned.history(), enums.OutcomeDegraded, nil
	}

	var list []types.Order
	err := s.api.Get(ctx, "/orders/user", nil, &list)
	if err == nil {
		if list == nil {
			list = []types.Order{}
		}
		return list, enums.OutcomeSuccess, nil
	}
	if s.canFallback(err) {
		s.warnFallback(ctx, "list_mine", "", err)
		return s.canned.history(), enums.OutcomeDegraded, nil
	}
	return nil, enums.OutcomeFailed, err
}

// Confirmation fetches the order and its tracking concurrently.
func (s *service) Confirmation(ctx context.Context, orderID string) (Details, error) {
	var (
		details  Details
		orderErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		details.Order, details.OrderOutcome, orderErr = s.FetchByID(ctx, orderID)
		return nil
	})
	g.Go(func() error {
		info, outcome, err := s.Track(ctx, orderID)
		details.TrackingOutcome = outcome
		if err != nil {
			details.TrackingErr = err
			return nil
		}
		details.Tracking = &info
		return nil
	})
	_ = g.Wait()

	if orderErr != nil {
		return Details{OrderOutcome: enums.OutcomeFailed}, orderErr
	}
	return details, nil
}

// PollStatus re-fetches the order every interval and reports each observed
// status to fn. It returns once the order reaches a terminal status, the
// server rejects the lookup or ctx is done. Transport errors are logged and
// polling continues.
func (s *service) PollStatus(ctx context.Context, orderID string, interval time.Duration, fn func(enums.OrderStatus)) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		order, _, err := s.FetchByID(ctx, orderID)
		switch {
		case err == nil:
			if fn != nil {
				fn(order.Status)
			}
			if order.Status.IsTerminal() {
				return nil
			}
		case pkgerrors.IsTransport(err):
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "error": err.Error()}), "poll order status")
		default:
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *service) canFallback(err error) bool {
	return s.fallback && pkgerrors.IsTransport(err)
}

func (s *service) warnFallback(ctx context.Context, operation, orderID string, err error) {
	fields := map[string]any{"operation": operation, "error": err.Error()}
	if orderID != "" {
		fields["order_id"] = orderID
	}
	s.logg.Warn(s.logg.WithFields(ctx, fields), "order api unreachable, serving canned data")
	s.metrics.IncFallback(serviceName, operation, metrics.ReasonTransport)
}
