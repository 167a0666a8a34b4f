package cron_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/internal/cron"
	"github.com/angelmondragon/cheetah-storefront/internal/sales"
	"github.com/angelmondragon/cheetah-storefront/internal/seed"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/security"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time { return c.now }

func orderFor(t *testing.T, client *db.Client, name string, qty int) types.OrderRequest {
	t.Helper()
	var p models.Product
	require.NoError(t, client.DB().Where("name = ?", name).First(&p).Error)
	return types.OrderRequest{
		Items: []types.OrderItem{{
			ProductID: types.ID(p.ID.String()),
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  qty,
		}},
		Shipping: types.ShippingAddress{
			Name:    "John Doe",
			Address: "Rruga e Durresit 1",
			City:    "Tirana",
			ZipCode: "1001",
			Country: "Albania",
			Phone:   "+355 69 123 4567",
		},
		Payment: types.PaymentSummary{Method: enums.PaymentMethodCredit, CardName: "John Doe", LastFour: "4242"},
		Total:   decimal.Zero,
	}
}

func stockOf(t *testing.T, client *db.Client, name string) int {
	t.Helper()
	var p models.Product
	require.NoError(t, client.DB().Where("name = ?", name).First(&p).Error)
	return p.Stock
}

func TestPendingOrderExpiryCancelsStaleOrdersAndRestocks(t *testing.T) {
	ctx := context.Background()
	conn := dbtest.Open(t)
	hasher := security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16})
	_, err := seed.Run(ctx, conn, hasher, "password123", nil)
	require.NoError(t, err)
	client := db.Wrap(conn, config.DBDriverSQLite)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &manualClock{now: start}
	orders, err := sales.NewService(sales.ServiceParams{DB: client, Now: clock.Now})
	require.NoError(t, err)

	stale, err := orders.Place(ctx, nil, orderFor(t, client, "USB-C Charger", 2))
	require.NoError(t, err)
	shipped, err := orders.Place(ctx, nil, orderFor(t, client, "USB-C Charger", 1))
	require.NoError(t, err)
	admin := &sales.Viewer{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	_, err = orders.UpdateStatus(ctx, admin, string(shipped.ID), sales.StatusUpdate{Status: "processing"})
	require.NoError(t, err)

	clock.now = start.Add(80 * time.Hour)
	fresh, err := orders.Place(ctx, nil, orderFor(t, client, "USB-C Charger", 1))
	require.NoError(t, err)
	require.Equal(t, 76, stockOf(t, client, "USB-C Charger"))

	reg := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(reg)
	clock.now = start.Add(100 * time.Hour)
	job, err := cron.NewPendingOrderExpiryJob(cron.PendingOrderExpiryJobParams{
		Logger:  logger.Nop(),
		DB:      client,
		Pending: sales.NewRepository(conn),
		Metrics: cronMetrics,
		TTL:     72 * time.Hour,
		Now:     clock.Now,
	})
	require.NoError(t, err)
	assert.Equal(t, "pending-order-expiry", job.Name())

	require.NoError(t, job.Run(ctx))

	got, err := orders.Get(ctx, nil, string(stale.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)

	tracking, err := orders.Tracking(ctx, nil, string(stale.ID))
	require.NoError(t, err)
	require.Len(t, tracking.Updates, 2)
	assert.Equal(t, "Cancelled", tracking.Updates[0].Status)
	assert.Equal(t, "Expired", tracking.CurrentLocation)
	assert.Nil(t, tracking.EstimatedDelivery)

	got, err = orders.Get(ctx, nil, string(shipped.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, got.Status)

	got, err = orders.Get(ctx, nil, string(fresh.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, got.Status)

	assert.Equal(t, 78, stockOf(t, client, "USB-C Charger"))

	// a second sweep finds nothing left to expire
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, 78, stockOf(t, client, "USB-C Charger"))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var affected float64
	for _, mf := range mfs {
		if mf.GetName() == "cron_job_affected_rows_total" {
			affected = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), affected)
}

func TestNewPendingOrderExpiryJobValidates(t *testing.T) {
	_, err := cron.NewPendingOrderExpiryJob(cron.PendingOrderExpiryJobParams{})
	assert.Error(t, err)
	_, err = cron.NewPendingOrderExpiryJob(cron.PendingOrderExpiryJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
