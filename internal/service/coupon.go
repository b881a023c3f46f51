package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CouponService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

func (s *CouponService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Active returns the caller's active coupon, or nil when there is none.
func (s *CouponService) Active(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	c, err := s.Repo.ActiveCoupon(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Validate looks the code up among the caller's active coupons. An expired
// coupon is deactivated and reported as not found.
func (s *CouponService) Validate(ctx context.Context, userID uuid.UUID, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, invalid("code is required")
	}

	c, err := s.Repo.CouponByCode(ctx, userID, code)
	if err != nil {
		return nil, notFound(err, "coupon")
	}
	if !c.ExpiresAt.After(s.now()) {
		if err := s.Repo.DeactivateCoupon(ctx, c.ID); err != nil {
			logging.FromContext(ctx).Warn("coupon_deactivate_failed", "code", code, "error", err)
		}
		return nil, fmt.Errorf("%w: coupon expired", ErrNotFound)
	}
	return c, nil
}
