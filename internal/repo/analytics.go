package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

type SalesTotals struct {
	Sales   int64
	Revenue int64
}

func (r *GormRepo) PaidSalesTotals(ctx context.Context) (SalesTotals, error) {
	var out SalesTotals
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Select("COUNT(*) AS sales, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("status = ?", models.OrderPaid).
		Scan(&out).Error
	return out, err
}

// PaidOrdersBetween returns paid orders with from <= paid_at < to.
func (r *GormRepo) PaidOrdersBetween(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.DB.WithContext(ctx).
		Select("id", "total_amount", "paid_at").
		Where("status = ? AND paid_at >= ? AND paid_at < ?", models.OrderPaid, from, to).
		Order("paid_at ASC").
		Find(&orders).Error
	return orders, err
}
