// Package sales places orders against the catalogue and administers their
// lifecycle.
package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/pagination"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// Viewer is the authenticated caller, if any.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (v *Viewer) isStaff() bool {
	return v != nil && (v.Role == enums.UserRoleAdmin || v.Role == enums.UserRoleDelivery)
}

// StatusUpdate moves an order along its lifecycle.
type StatusUpdate struct {
	Status   string `json:"status" validate:"required"`
	Location string `json:"location,omitempty"`
}

// Service exposes order placement and administration.
type Service interface {
	Place(ctx context.Context, viewer *Viewer, req types.OrderRequest) (*types.Order, error)
	Get(ctx context.Context, viewer *Viewer, id string) (*types.Order, error)
	Tracking(ctx context.Context, viewer *Viewer, id string) (*types.TrackingInfo, error)
	ListMine(ctx context.Context, viewer *Viewer) ([]types.Order, error)
	ListAll(ctx context.Context, params pagination.Params) (*OrderPage, error)
	UpdateStatus(ctx context.Context, viewer *Viewer, id string, update StatusUpdate) (*types.Order, error)
}

// ServiceParams bundles the dependencies required to build the service.
type ServiceParams struct {
	DB      *db.Client
	Logger  *logger.Logger
	Metrics *metrics.HTTPMetrics
	Now     func() time.Time
}

type service struct {
	db       *db.Client
	logg     *logger.Logger
	metrics  *metrics.HTTPMetrics
	now      func() time.Time
	validate *validator.Validate
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:       params.DB,
		logg:     logg,
		metrics:  params.Metrics,
		now:      now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

type placementShipping struct {
	Name    string `validate:"required"`
	Address string `validate:"required"`
	City    string `validate:"required"`
	ZipCode string `validate:"required"`
	Country string `validate:"required"`
	Phone   string `validate:"required"`
}

type placementPayment struct {
	CardName string `validate:"required"`
	LastFour string `validate:"required,len=4,numeric"`
}

type line struct {
	productID uuid.UUID
	quantity  int
}

func (s *service) Place(ctx context.Context, viewer *Viewer, req types.OrderRequest) (*types.Order, error) {
	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if err := s.checkAddressAndPayment(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		ShipName:        strings.TrimSpace(req.Shipping.Name),
		ShipAddress:     strings.TrimSpace(req.Shipping.Address),
		ShipCity:        strings.TrimSpace(req.Shipping.City),
		ShipState:       strings.TrimSpace(req.Shipping.State),
		ShipZipCode:     strings.TrimSpace(req.Shipping.ZipCode),
		ShipCountry:     strings.TrimSpace(req.Shipping.Country),
		ShipPhone:       strings.TrimSpace(req.Shipping.Phone),
		PaymentMethod:   req.Payment.Method,
		PaymentCardName: strings.TrimSpace(req.Payment.CardName),
		PaymentLastFour: req.Payment.LastFour,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if viewer != nil {
		userID := viewer.UserID
		order.UserID = &userID
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		catalogue := product.NewRepository(tx)
		ids := make([]uuid.UUID, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.productID)
		}
		rows, err := catalogue.FindByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
		}

		total := decimal.Zero
		for position, l := range lines {
			row, ok := rows[l.productID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "product not found").
					WithDetails(map[string]any{"productId": l.productID.String()})
			}
			decremented, err := catalogue.DecrementStock(ctx, row.ID, l.quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
			}
			if !decremented {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
					WithDetails(map[string]any{
						"productId": row.ID.String(),
						"name":      row.Name,
						"available": row.Stock,
						"requested": l.quantity,
					})
			}
			order.Items = append(order.Items, models.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: row.ID,
				Name:      row.Name,
				Image:     row.Image,
				Price:     row.Price,
				Quantity:  l.quantity,
				Position:  position,
			})
			total = total.Add(row.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
		}
		order.Total = total
		order.Events = []models.OrderEvent{{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusPending,
			Location:  defaultLocation,
			CreatedAt: now,
		}}

		if err := NewRepository(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if !req.Total.IsZero() && !req.Total.Equal(order.Total) {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"client_total": req.Total.StringFixed(2),
			"server_total": order.Total.StringFixed(2),
		})
		s.logg.Warn(ctx, "client total differs from catalogue prices")
	}
	s.logg.Info(ctx, "order placed")
	s.metrics.IncOrderStatus(string(enums.OrderStatusPending))

	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, viewer *Viewer, id string) (*types.Order, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	dto := FromModel(*order)
	return &dto, nil
}

func (s *service) Tracking(ctx context.Context, viewer *Viewer, id string) (*types.TrackingInfo, error) {
	order, err := s.load(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	info := TrackingFromModel(*order)
	return &info, nil
}

func (s *service) ListMine(ctx context.Context, viewer *Viewer) ([]types.Order, error) {
	if viewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := NewRepository(s.db.DB()).ListByUser(ctx, viewer.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	out := make([]types.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) (*OrderPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := NewRepository(s.db.DB()).ListPage(ctx, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	page := &OrderPage{Orders: make([]types.Order, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		page.Orders = append(page.Orders, FromModel(row))
	}
	return page, nil
}

func (s *service) UpdateStatus(ctx context.Context, viewer *Viewer, id string, update StatusUpdate) (*types.Order, error) {
	if !viewer.isStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role")
	}
	next, err := enums.ParseOrderStatus(update.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	if next == enums.OrderStatusCancelled && viewer.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can cancel orders")
	}
	orderID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	location := strings.TrimSpace(update.Location)
	var updated *models.Order
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid status transition").
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		at := s.now().UTC()
		moved, err := repo.UpdateStatus(ctx, order.ID, order.Status, next, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update status")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if location == "" && len(order.Events) > 0 {
			location = order.Events[len(order.Events)-1].Location
		}
		if err := repo.AppendEvent(ctx, &models.OrderEvent{
			OrderID:   order.ID,
			Status:    next,
			Location:  location,
			CreatedAt: at,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "append tracking event")
		}

		if next == enums.OrderStatusCancelled {
			catalogue := product.NewRepository(tx)
			for _, item := range order.Items {
				if err := catalogue.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restock")
				}
			}
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, updated.ID.String())
	ctx = s.logg.WithFields(ctx, map[string]any{"status": next, "actor_role": viewer.Role})
	s.logg.Info(ctx, "order status updated")
	s.metrics.IncOrderStatus(string(next))

	dto := FromModel(*updated)
	return &dto, nil
}

// load fetches an order the viewer may see. Orders owned by an account are
// visible to that account and to staff; anonymous orders to anyone holding
// the id. Hidden orders look missing.
func (s *service) load(ctx context.Context, viewer *Viewer, id string) (*models.Order, error) {
	orderID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := NewRepository(s.db.DB()).FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != nil && !viewer.isStaff() && (viewer == nil || viewer.UserID != *order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) checkAddressAndPayment(req types.OrderRequest) error {
	shipping := placementShipping{
		Name:    strings.TrimSpace(req.Shipping.Name),
		Address: strings.TrimSpace(req.Shipping.Address),
		City:    strings.TrimSpace(req.Shipping.City),
		ZipCode: strings.TrimSpace(req.Shipping.ZipCode),
		Country: strings.TrimSpace(req.Shipping.Country),
		Phone:   strings.TrimSpace(req.Shipping.Phone),
	}
	payment := placementPayment{
		CardName: strings.TrimSpace(req.Payment.CardName),
		LastFour: req.Payment.LastFour,
	}

	fields := map[string]string{}
	collect := func(prefix string, err error) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[prefix+"."+lowerFirst(fe.Field())] = fe.Tag()
			}
		}
	}
	collect("shipping", s.validate.Struct(shipping))
	collect("payment", s.validate.Struct(payment))
	if !req.Payment.Method.IsValid() {
		fields["payment.method"] = "oneof"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid shipping or payment details").WithDetails(fields)
	}
	return nil
}

// mergeLines validates the submitted items and folds duplicate products
// into one line, keeping first-seen order.
func mergeLines(items []types.OrderItem) ([]line, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}
	index := make(map[uuid.UUID]int, len(items))
	lines := make([]line, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(strings.TrimSpace(string(item.ProductID)))
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not found").
				WithDetails(map[string]any{"productId": string(item.ProductID)})
		}
		if item.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"productId": id.String()})
		}
		if i, ok := index[id]; ok {
			lines[i].quantity += item.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, line{productID: id, quantity: item.Quantity})
	}
	return lines, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
