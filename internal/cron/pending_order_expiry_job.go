package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/internal/sales"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
)

const (
	pendingOrderExpiryJobName = "pending-order-expiry"
	defaultPendingOrderTTL    = 72 * time.Hour
	defaultExpiryBatchSize    = 100
	expiredLocation           = "Expired"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// PendingOrderExpiryJobParams configure the stale order sweep.
type PendingOrderExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Pending   pendingOrderReader
	Metrics   *metrics.CronJobMetrics
	TTL       time.Duration
	BatchSize int
	Now       func() time.Time
}

// NewPendingOrderExpiryJob builds the job that cancels orders left pending
// longer than the TTL and returns their stock to the catalogue.
func NewPendingOrderExpiryJob(params PendingOrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &pendingOrderExpiryJob{
		logg:    params.Logger,
		db:      params.DB,
		pending: params.Pending,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batch,
		now:     now,
	}, nil
}

type pendingOrderExpiryJob struct {
	logg    *logger.Logger
	db      txRunner
	pending pendingOrderReader
	metrics *metrics.CronJobMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *pendingOrderExpiryJob) Name() string { return pendingOrderExpiryJobName }

func (j *pendingOrderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	orders, err := j.pending.FindPendingBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range orders {
		ok, err := j.expire(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}
	j.metrics.AddAffected(pendingOrderExpiryJobName, expired)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(orders),
		"expired": expired,
	})
	j.logg.Info(logCtx, "pending order expiry complete")
	return errs
}

// expire cancels one order. It reports false when the order left pending
// between the scan and the update.
func (j *pendingOrderExpiryJob) expire(ctx context.Context, order models.Order) (bool, error) {
	moved := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		at := j.now().UTC()
		repo := sales.NewRepository(tx)
		ok, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, at)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := repo.AppendEvent(ctx, &models.OrderEvent{
			ID:        uuid.New(),
			OrderID:   order.ID,
			Status:    enums.OrderStatusCancelled,
			Location:  expiredLocation,
			CreatedAt: at,
		}); err != nil {
			return err
		}
		catalogue := product.NewRepository(tx)
		for _, item := range order.Items {
			if err := catalogue.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restock %s: %w", item.ProductID, err)
			}
		}
		moved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if moved {
		j.logg.Info(j.logg.WithOrderID(ctx, order.ID.String()), "pending order expired")
	}
	return moved, nil
}
