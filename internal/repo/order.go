package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Create(o).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Preload("Items").
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CompleteOrder marks a pending order paid, deactivates the coupon it used,
// empties the cart and stores the coupon returned by reward, if any. An order
// that is already paid is returned as is with alreadyPaid set.
func (r *GormRepo) CompleteOrder(
	ctx context.Context,
	userID, orderID uuid.UUID,
	paidAt time.Time,
	reward func(*models.Order) *models.Coupon,
) (order *models.Order, granted *models.Coupon, alreadyPaid bool, err error) {
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var o models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", orderID, userID).
			First(&o).Error; err != nil {
			return err
		}
		order = &o
		if o.Status == models.OrderPaid {
			alreadyPaid = true
			return nil
		}

		if err := tx.Model(&o).Updates(map[string]any{"status": models.OrderPaid, "paid_at": paidAt}).Error; err != nil {
			return err
		}
		o.Status = models.OrderPaid
		o.PaidAt = &paidAt

		if o.CouponCode != "" {
			if err := tx.Model(&models.Coupon{}).
				Where("code = ? AND user_id = ?", o.CouponCode, userID).
				Update("is_active", false).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		if reward != nil {
			if c := reward(&o); c != nil {
				if err := replaceCoupon(tx, c); err != nil {
					return err
				}
				granted = c
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	if err := r.DB.WithContext(ctx).Where("order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
		return nil, nil, false, err
	}
	return order, granted, alreadyPaid, nil
}
