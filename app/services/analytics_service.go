package services

import (
	"context"
	"sync"
	"time"

	"github.com/oliveedge/oliveedge/app/models"
	"github.com/oliveedge/oliveedge/app/repositories"
	"github.com/oliveedge/oliveedge/pkg/cache"
	"github.com/oliveedge/oliveedge/pkg/logger"
	"github.com/oliveedge/oliveedge/pkg/workerpool"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = 60 * time.Second
	lowStockThreshold = 5
)

// Dashboard is the admin analytics snapshot.
type Dashboard struct {
	TotalSales     float64          `json:"totalSales"`
	OrderCount     int64            `json:"orderCount"`
	UserCount      int64            `json:"userCount"`
	OrdersByStatus map[string]int64 `json:"ordersByStatus"`
	LowStock       []models.Product `json:"lowStock"`
	GeneratedAt    time.Time        `json:"generatedAt"`
}

type AnalyticsService struct {
	orders   *repositories.OrderRepository
	users    *repositories.UserRepository
	products *repositories.ProductRepository
	pool     *workerpool.Pool
}

func NewAnalyticsService(pool *workerpool.Pool) *AnalyticsService {
	return &AnalyticsService{
		orders:   repositories.NewOrderRepository(),
		users:    repositories.NewUserRepository(),
		products: repositories.NewProductRepository(),
		pool:     pool,
	}
}

// Dashboard computes the admin snapshot, fanning the aggregations out on the
// worker pool and caching the result for a minute.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var cached Dashboard
	if cache.Get(ctx, dashboardCacheKey, &cached) {
		return &cached, nil
	}

	d := &Dashboard{GeneratedAt: time.Now().UTC()}

	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	run := func(name string, fn func() error) {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if err := fn(); err != nil {
				logger.Error("analytics: aggregation failed", "name", name, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}
		// Fall back to inline execution under backpressure so the
		// dashboard never deadlocks on a saturated pool.
		if err := s.pool.Submit(task); err != nil {
			task()
		}
	}

	run("totalSales", func() error {
		v, err := s.orders.TotalSales(ctx)
		d.TotalSales = v
		return err
	})
	run("orderCount", func() error {
		v, err := s.orders.Count(ctx)
		d.OrderCount = v
		return err
	})
	run("userCount", func() error {
		v, err := s.users.Count(ctx)
		d.UserCount = v
		return err
	})
	run("ordersByStatus", func() error {
		v, err := s.orders.CountByStatus(ctx)
		d.OrdersByStatus = v
		return err
	})
	run("lowStock", func() error {
		v, err := s.products.LowStock(ctx, lowStockThreshold)
		d.LowStock = v
		return err
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	cache.Set(ctx, dashboardCacheKey, d, dashboardCacheTTL) //nolint:errcheck
	return d, nil
}
