package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Skotchmaster/storefront/internal/repo"
)

const (
	SalesWindowDays = 7
	dayLayout       = "2006-01-02"
)

type AnalyticsService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

type Summary struct {
	Users        int64 `json:"users"`
	Products     int64 `json:"products"`
	TotalSales   int64 `json:"total_sales"`
	TotalRevenue int64 `json:"total_revenue"`
}

type DailySales struct {
	Date    string `json:"date"`
	Sales   int64  `json:"sales"`
	Revenue int64  `json:"revenue"`
}

type Report struct {
	AnalyticsData  Summary      `json:"analytics_data"`
	DailySalesData []DailySales `json:"daily_sales_data"`
}

// Report runs its queries concurrently. Days are UTC calendar days, oldest first,
// ending today, with zeros for days without paid orders.
func (s *AnalyticsService) Report(ctx context.Context) (*Report, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(SalesWindowDays - 1))
	to := today.AddDate(0, 0, 1)

	var (
		out    Report
		totals repo.SalesTotals
		daily  []DailySales
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.Repo.CountUsers(gctx)
		out.AnalyticsData.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.Repo.CountProducts(gctx)
		out.AnalyticsData.Products = n
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.Repo.PaidSalesTotals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		daily, err = s.dailySales(gctx, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.AnalyticsData.TotalSales = totals.Sales
	out.AnalyticsData.TotalRevenue = totals.Revenue
	out.DailySalesData = daily
	return &out, nil
}

func (s *AnalyticsService) dailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	orders, err := s.Repo.PaidOrdersBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	days := make([]DailySales, 0, SalesWindowDays)
	index := make(map[string]int, SalesWindowDays)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		index[key] = len(days)
		days = append(days, DailySales{Date: key})
	}

	for _, o := range orders {
		if o.PaidAt == nil {
			continue
		}
		i, ok := index[o.PaidAt.UTC().Format(dayLayout)]
		if !ok {
			continue
		}
		days[i].Sales++
		days[i].Revenue += o.TotalAmount
	}
	return days, nil
}
