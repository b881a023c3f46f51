package storeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/pkg/authclient"
)

func TestComputeTotals(t *testing.T) {
	t.Parallel()

	items := []CartItem{{Price: 1999, Quantity: 3}, {Price: 1, Quantity: 1}}

	cases := []struct {
		name   string
		coupon *Coupon
		want   Totals
	}{
		{name: "no coupon", want: Totals{Subtotal: 5998, Total: 5998}},
		{name: "rounds discount down", coupon: &Coupon{DiscountPercentage: 10}, want: Totals{Subtotal: 5998, Discount: 599, Total: 5399}},
		{name: "zero percent", coupon: &Coupon{}, want: Totals{Subtotal: 5998, Total: 5998}},
		{name: "full discount", coupon: &Coupon{DiscountPercentage: 100}, want: Totals{Subtotal: 5998, Discount: 5998}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ComputeTotals(items, tc.coupon))
		})
	}
	assert.Equal(t, Totals{}, ComputeTotals(nil, &Coupon{DiscountPercentage: 50}))
}

// fakeCart is an in-memory cart API speaking the same JSON as the server.
type fakeCart struct {
	mu       sync.Mutex
	prices   map[string]int64
	lines    []CartItem
	coupons  map[string]int
	checkout []CheckoutLine
	code     string
}

func newFakeCart() *fakeCart {
	return &fakeCart{
		prices:  map[string]int64{"hat": 1500, "scarf": 3000},
		coupons: map[string]int{"GIFT10": 10},
	}
}

func (f *fakeCart) line(id string) int {
	for i, l := range f.lines {
		if l.ProductID == id {
			return i
		}
	}
	return -1
}

func (f *fakeCart) Do(_ context.Context, req authclient.Request) (*authclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fail := func(code int) (*authclient.Response, error) {
		return nil, &authclient.StatusError{Code: code, Method: req.Method, Path: req.Path}
	}
	reply := func(v any) (*authclient.Response, error) {
		raw, err := json.Marshal(v)
		return &authclient.Response{StatusCode: http.StatusOK, Body: raw}, err
	}
	var body struct {
		ProductID string         `json:"product_id"`
		Quantity  int            `json:"quantity"`
		Code      string         `json:"code"`
		Products  []CheckoutLine `json:"products"`
		Coupon    string         `json:"coupon_code"`
	}
	if len(req.Body) > 0 {
		if err := json.Unmarshal(req.Body, &body); err != nil {
			return nil, err
		}
	}
	id := strings.TrimPrefix(req.Path, "/api/v1/cart/")

	switch {
	case req.Method == http.MethodGet && req.Path == "/api/v1/cart":
	case req.Method == http.MethodPost && req.Path == "/api/v1/cart":
		price, ok := f.prices[body.ProductID]
		if !ok {
			return fail(http.StatusNotFound)
		}
		if i := f.line(body.ProductID); i >= 0 {
			f.lines[i].Quantity += body.Quantity
		} else {
			f.lines = append(f.lines, CartItem{ProductID: body.ProductID, Price: price, Quantity: body.Quantity})
		}
	case req.Method == http.MethodPut:
		i := f.line(id)
		if i < 0 {
			return fail(http.StatusNotFound)
		}
		f.lines[i].Quantity = body.Quantity
	case req.Method == http.MethodDelete && req.Path == "/api/v1/cart":
		f.lines = nil
		return reply([]CartItem{})
	case req.Method == http.MethodDelete:
		i := f.line(id)
		if i < 0 {
			return fail(http.StatusNotFound)
		}
		f.lines = append(f.lines[:i], f.lines[i+1:]...)
	case req.Path == "/api/v1/coupons/validate":
		pct, ok := f.coupons[body.Code]
		if !ok {
			return fail(http.StatusNotFound)
		}
		return reply(Coupon{Code: body.Code, DiscountPercentage: pct})
	case req.Path == "/api/v1/payment/checkout":
		f.checkout, f.code = body.Products, body.Coupon
		return reply(CheckoutResult{OrderID: "o1"})
	case req.Path == "/api/v1/payment/checkout-success":
		f.lines = nil
		return reply(PaymentResult{Success: true, OrderID: "o1"})
	default:
		return fail(http.StatusNotFound)
	}
	out := append([]CartItem{}, f.lines...)
	return reply(out)
}

func TestCartStore_Flow(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	api := newFakeCart()
	store := NewCartStore(New(api))

	require.NoError(t, store.Load(ctx))
	assert.Empty(t, store.Items())
	assert.Equal(t, Totals{}, store.Totals())

	_, err := store.Checkout(ctx)
	require.ErrorIs(t, err, ErrEmptyCart)

	require.NoError(t, store.Add(ctx, "hat"))
	require.NoError(t, store.Add(ctx, "hat"))
	require.NoError(t, store.Add(ctx, "scarf"))
	assert.Equal(t, Totals{Subtotal: 6000, Total: 6000}, store.Totals())

	err = store.Add(ctx, "boots")
	assert.Equal(t, http.StatusNotFound, authclient.StatusCode(err))
	assert.Len(t, store.Items(), 2, "a failed mutation leaves the cart alone")

	require.NoError(t, store.ApplyCoupon(ctx, "GIFT10"))
	assert.Equal(t, Totals{Subtotal: 6000, Discount: 600, Total: 5400}, store.Totals())

	require.Error(t, store.ApplyCoupon(ctx, "NOPE"))
	assert.Equal(t, "GIFT10", store.Coupon().Code, "a rejected code keeps the applied coupon")

	require.NoError(t, store.UpdateQuantity(ctx, "scarf", 3))
	assert.Equal(t, Totals{Subtotal: 12000, Discount: 1200, Total: 10800}, store.Totals())

	res, err := store.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, []CheckoutLine{{ID: "hat", Quantity: 2}, {ID: "scarf", Quantity: 3}}, api.checkout)
	assert.Equal(t, "GIFT10", api.code)

	require.NoError(t, store.UpdateQuantity(ctx, "hat", 0))
	assert.Len(t, store.Items(), 1)

	store.RemoveCoupon()
	assert.Nil(t, store.Coupon())
	assert.Equal(t, Totals{Subtotal: 9000, Total: 9000}, store.Totals())

	paid, err := store.CompletePayment(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, paid.Success)
	assert.Empty(t, store.Items())
	assert.Equal(t, Totals{}, store.Totals())
}

func TestCartStore_Clear(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := NewCartStore(New(newFakeCart()))
	require.NoError(t, store.Add(ctx, "hat"))
	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.Items())
	assert.Zero(t, store.Totals().Total)

	err := store.Remove(ctx, "hat")
	assert.Equal(t, http.StatusNotFound, authclient.StatusCode(err))
}

func TestCartStore_ConcurrentAdds(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := NewCartStore(New(newFakeCart()))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Add(ctx, "hat"))
			_ = store.Totals()
		}()
	}
	wg.Wait()

	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].Quantity)
	assert.Equal(t, Totals{Subtotal: 30000, Total: 30000}, store.Totals())
}
