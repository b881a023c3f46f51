package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	DefaultRewardThreshold int64 = 20000
	RewardDiscount               = 10
	RewardTTL                    = 30 * 24 * time.Hour
	rewardPrefix                 = "GIFT"
)

type OrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Now    func() time.Time
	// RewardThreshold is the paid total, in cents, that earns a gift coupon.
	RewardThreshold int64
}

type CheckoutLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type CheckoutResult struct {
	Order       *models.Order
	Reward      *models.Coupon
	AlreadyPaid bool
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OrderService) threshold() int64 {
	if s.RewardThreshold > 0 {
		return s.RewardThreshold
	}
	return DefaultRewardThreshold
}

// Checkout prices the lines from the catalog, applies the coupon and stores a
// pending order.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, lines []CheckoutLine, couponCode string) (*models.Order, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout", "user_id", userID)

	if len(lines) == 0 {
		return nil, invalid("no products to check out")
	}

	qty := make(map[uuid.UUID]int, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, ln := range lines {
		if ln.Quantity < 1 {
			return nil, invalid("quantity must be positive")
		}
		if _, seen := qty[ln.ProductID]; !seen {
			ids = append(ids, ln.ProductID)
		}
		qty[ln.ProductID] += ln.Quantity
	}

	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &models.Order{UserID: userID, Status: models.OrderPending}
	var subtotal int64
	for _, id := range ids {
		p, ok := products[id]
		if !ok {
			l.Warn("checkout_failed", "status", 404, "product_id", id)
			return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		subtotal += p.Price * int64(qty[id])
		order.Items = append(order.Items, models.OrderItem{ProductID: id, Quantity: qty[id], Price: p.Price})
	}

	if code := strings.TrimSpace(couponCode); code != "" {
		c, err := s.Repo.CouponByCode(ctx, userID, code)
		if err != nil {
			return nil, notFound(err, "coupon")
		}
		if !c.ExpiresAt.After(s.now()) {
			return nil, fmt.Errorf("%w: coupon expired", ErrNotFound)
		}
		order.Discount = subtotal * int64(c.DiscountPercentage) / 100
		order.CouponCode = c.Code
	}
	order.TotalAmount = subtotal - order.Discount

	if err := s.Repo.CreateOrder(ctx, order); err != nil {
		l.Error("checkout_failed", "status", 500, "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicOrder, order.ID.String(), events.New("order_created", map[string]any{
		"order_id":     order.ID.String(),
		"user_id":      userID.String(),
		"total_amount": order.TotalAmount,
	}))
	return order, nil
}

// CheckoutSuccess marks the order paid. Repeating it is harmless: a paid order
// comes back with AlreadyPaid set and no new reward.
func (s *OrderService) CheckoutSuccess(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "order.checkout_success", "order_id", orderID)

	now := s.now().UTC()
	order, reward, alreadyPaid, err := s.Repo.CompleteOrder(ctx, userID, orderID, now, func(o *models.Order) *models.Coupon {
		if o.TotalAmount < s.threshold() {
			return nil
		}
		return &models.Coupon{
			Code:               newGiftCode(),
			DiscountPercentage: RewardDiscount,
			ExpiresAt:          now.Add(RewardTTL),
			IsActive:           true,
			UserID:             userID,
		}
	})
	if err != nil {
		return nil, notFound(err, "order")
	}

	if !alreadyPaid {
		data := map[string]any{
			"order_id":     order.ID.String(),
			"user_id":      userID.String(),
			"total_amount": order.TotalAmount,
		}
		if reward != nil {
			data["reward_coupon"] = reward.Code
		}
		publish(ctx, s.Events, events.TopicOrder, order.ID.String(), events.New("order_paid", data))
		l.Info("order_paid", "total_amount", order.TotalAmount, "reward", reward != nil)
	}
	return &CheckoutResult{Order: order, Reward: reward, AlreadyPaid: alreadyPaid}, nil
}

func newGiftCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return rewardPrefix + strings.ToUpper(id[:6])
}
