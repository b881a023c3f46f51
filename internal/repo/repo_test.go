package repo

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	r := New(gdb)
	require.NoError(t, r.Migrate(context.Background()))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return r
}

func seedProduct(t *testing.T, r *GormRepo, name string, price int64, featured bool) models.Product {
	t.Helper()
	p := models.Product{Name: name, Description: name + " description", Price: price, Category: "hats", IsFeatured: featured}
	require.NoError(t, r.CreateProduct(context.Background(), &p))
	return p
}

func TestUsers(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	u := models.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x", Role: "customer"}
	require.NoError(t, r.CreateUserIfNotExists(ctx, &u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	dup := models.User{Name: "Ann 2", Email: "ann@example.com", PasswordHash: "y", Role: "customer"}
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, &dup), ErrUserAlreadyExist)

	got, err := r.UserByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, r.SetUserRole(ctx, "ann@example.com", "admin"))
	got, err = r.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)

	assert.ErrorIs(t, r.SetUserRole(ctx, "nobody@example.com", "admin"), gorm.ErrRecordNotFound)

	n, err := r.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRotateRefreshToken(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now()
	userID := uuid.New()

	first := NewRefreshRecord("token-1", "jti-1", userID, now.Add(time.Hour))
	require.NoError(t, r.AddRefreshToken(ctx, first))

	second := NewRefreshRecord("token-2", "jti-2", userID, now.Add(time.Hour))
	require.NoError(t, r.RotateRefreshToken(ctx, "jti-1", "token-1", second, now))

	old, err := r.FindRefreshByJTI(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)

	reuse := NewRefreshRecord("token-3", "jti-3", userID, now.Add(time.Hour))
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "jti-1", "token-1", reuse, now), ErrRefreshRevoked)
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "jti-2", "forged", reuse, now), ErrRefreshRevoked)
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "missing", "token-2", reuse, now), ErrRefreshRevoked)
	assert.ErrorIs(t, r.RotateRefreshToken(ctx, "jti-2", "token-2", reuse, now.Add(2*time.Hour)), ErrRefreshRevoked)

	require.NoError(t, r.RevokeRefreshToken(ctx, "token-2"))
	cur, err := r.FindRefreshByJTI(ctx, "jti-2")
	require.NoError(t, err)
	assert.True(t, cur.Revoked)

	n, err := r.DeleteStaleRefreshTokens(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestProducts(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	hat := seedProduct(t, r, "hat", 1500, true)
	seedProduct(t, r, "cap", 900, false)
	seedProduct(t, r, "scarf", 2500, false)

	total, items, err := r.ListProducts(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 2)

	featured, err := r.FeaturedProducts(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, hat.ID, featured[0].ID)

	byCat, err := r.ProductsByCategory(ctx, "hats")
	require.NoError(t, err)
	assert.Len(t, byCat, 3)

	random, err := r.RandomProducts(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, random, 2)

	toggled, err := r.ToggleFeatured(ctx, hat.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFeatured)

	byID, err := r.ProductsByIDs(ctx, []uuid.UUID{hat.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	require.NoError(t, r.AddToCart(ctx, &models.CartItem{UserID: uuid.New(), ProductID: hat.ID, Quantity: 1}))
	require.NoError(t, r.DeleteProduct(ctx, hat.ID))
	assert.ErrorIs(t, r.DeleteProduct(ctx, hat.ID), gorm.ErrRecordNotFound)

	var lines int64
	require.NoError(t, r.DB.Model(&models.CartItem{}).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestCart(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()
	hat := seedProduct(t, r, "hat", 1500, false)
	beanie := seedProduct(t, r, "beanie", 900, false)

	item := models.CartItem{UserID: user, ProductID: hat.ID, Quantity: 1}
	require.NoError(t, r.AddToCart(ctx, &item))
	again := models.CartItem{UserID: user, ProductID: hat.ID, Quantity: 2}
	require.NoError(t, r.AddToCart(ctx, &again))
	assert.Equal(t, 3, again.Quantity)
	require.NoError(t, r.AddToCart(ctx, &models.CartItem{UserID: user, ProductID: beanie.ID, Quantity: 1}))

	lines, err := r.CartLines(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, hat.ID, lines[0].ProductID)
	assert.Equal(t, "hat", lines[0].Name)
	assert.EqualValues(t, 1500, lines[0].Price)
	assert.Equal(t, 3, lines[0].Quantity)

	require.NoError(t, r.SetQuantity(ctx, user, hat.ID, 5))
	require.NoError(t, r.SetQuantity(ctx, user, beanie.ID, 0))
	assert.ErrorIs(t, r.SetQuantity(ctx, user, beanie.ID, 1), ErrNotInCart)

	lines, err = r.CartLines(ctx, user)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	assert.ErrorIs(t, r.RemoveFromCart(ctx, user, beanie.ID), ErrNotInCart)
	require.NoError(t, r.RemoveFromCart(ctx, user, hat.ID))
	require.NoError(t, r.ClearCart(ctx, user))

	lines, err = r.CartLines(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCompleteOrder(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()
	hat := seedProduct(t, r, "hat", 15000, false)

	used := models.Coupon{Code: "SAVE10", DiscountPercentage: 10, ExpiresAt: time.Now().Add(time.Hour), IsActive: true, UserID: user}
	require.NoError(t, r.ReplaceCoupon(ctx, &used))
	require.NoError(t, r.AddToCart(ctx, &models.CartItem{UserID: user, ProductID: hat.ID, Quantity: 2}))

	order := models.Order{
		UserID:      user,
		Items:       []models.OrderItem{{ProductID: hat.ID, Quantity: 2, Price: 15000}},
		TotalAmount: 27000,
		Discount:    3000,
		CouponCode:  "SAVE10",
		Status:      models.OrderPending,
	}
	require.NoError(t, r.CreateOrder(ctx, &order))

	paidAt := time.Now().UTC().Truncate(time.Second)
	rewards := 0
	reward := func(o *models.Order) *models.Coupon {
		rewards++
		return &models.Coupon{Code: "GIFTABCDEF", DiscountPercentage: 10, ExpiresAt: paidAt.Add(24 * time.Hour), IsActive: true, UserID: o.UserID}
	}

	paid, granted, already, err := r.CompleteOrder(ctx, user, order.ID, paidAt, reward)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, models.OrderPaid, paid.Status)
	require.Len(t, paid.Items, 1)
	require.NotNil(t, granted)

	active, err := r.ActiveCoupon(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "GIFTABCDEF", active.Code)

	lines, err := r.CartLines(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, lines)

	_, granted, already, err = r.CompleteOrder(ctx, user, order.ID, paidAt, reward)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Nil(t, granted)
	assert.Equal(t, 1, rewards)

	_, _, _, err = r.CompleteOrder(ctx, uuid.New(), order.ID, paidAt, reward)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	totals, err := r.PaidSalesTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, SalesTotals{Sales: 1, Revenue: 27000}, totals)

	orders, err := r.PaidOrdersBetween(ctx, paidAt.Add(-time.Hour), paidAt.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.EqualValues(t, 27000, orders[0].TotalAmount)
}

func TestCoupons(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	user := uuid.New()

	_, err := r.ActiveCoupon(ctx, user)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	c := models.Coupon{Code: "GIFT123456", DiscountPercentage: 10, ExpiresAt: time.Now().Add(time.Hour), IsActive: true, UserID: user}
	require.NoError(t, r.ReplaceCoupon(ctx, &c))

	got, err := r.CouponByCode(ctx, user, "GIFT123456")
	require.NoError(t, err)
	assert.Equal(t, 10, got.DiscountPercentage)

	_, err = r.CouponByCode(ctx, uuid.New(), "GIFT123456")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, r.DeactivateCoupon(ctx, got.ID))
	_, err = r.CouponByCode(ctx, user, "GIFT123456")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
