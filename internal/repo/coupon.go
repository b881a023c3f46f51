package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) ActiveCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	var c models.Coupon
	err := r.DB.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CouponByCode(ctx context.Context, userID uuid.UUID, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := r.DB.WithContext(ctx).
		Where("code = ? AND user_id = ? AND is_active = ?", code, userID, true).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) DeactivateCoupon(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&models.Coupon{}).Where("id = ?", id).Update("is_active", false).Error
}

// replaceCoupon drops any coupon the user holds and stores c in its place.
func replaceCoupon(tx *gorm.DB, c *models.Coupon) error {
	if err := tx.Where("user_id = ?", c.UserID).Delete(&models.Coupon{}).Error; err != nil {
		return err
	}
	return tx.Create(c).Error
}

func (r *GormRepo) ReplaceCoupon(ctx context.Context, c *models.Coupon) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceCoupon(tx, c)
	})
}
