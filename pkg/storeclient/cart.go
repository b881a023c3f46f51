package storeclient

import (
	"context"
	"errors"
	"slices"
	"sync"
)

var ErrEmptyCart = errors.New("cart is empty")

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
}

// ComputeTotals sums the lines and applies the coupon percentage rounded down.
func ComputeTotals(items []CartItem, coupon *Coupon) Totals {
	var t Totals
	for _, it := range items {
		t.Subtotal += it.Price * int64(it.Quantity)
	}
	if coupon != nil && coupon.DiscountPercentage > 0 {
		t.Discount = t.Subtotal * int64(coupon.DiscountPercentage) / 100
	}
	t.Total = t.Subtotal - t.Discount
	return t
}

// CartStore mirrors the server cart. Mutations run one at a time and replace
// the local lines with the server's answer; readers never wait on the network.
type CartStore struct {
	api *Client

	op sync.Mutex

	mu     sync.RWMutex
	items  []CartItem
	coupon *Coupon
	totals Totals
}

func NewCartStore(api *Client) *CartStore {
	return &CartStore{api: api}
}

func (s *CartStore) Items() []CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *CartStore) Coupon() *Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.coupon == nil {
		return nil
	}
	c := *s.coupon
	return &c
}

func (s *CartStore) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

func (s *CartStore) set(items []CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.totals = ComputeTotals(s.items, s.coupon)
}

func (s *CartStore) setCoupon(c *Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = c
	s.totals = ComputeTotals(s.items, s.coupon)
}

func (s *CartStore) apply(fn func() ([]CartItem, error)) error {
	s.op.Lock()
	defer s.op.Unlock()

	items, err := fn()
	if err != nil {
		return err
	}
	s.set(items)
	return nil
}

func (s *CartStore) Load(ctx context.Context) error {
	return s.apply(func() ([]CartItem, error) { return s.api.Cart(ctx) })
}

func (s *CartStore) Add(ctx context.Context, productID string) error {
	return s.apply(func() ([]CartItem, error) { return s.api.AddToCart(ctx, productID, 1) })
}

func (s *CartStore) Remove(ctx context.Context, productID string) error {
	return s.apply(func() ([]CartItem, error) { return s.api.RemoveFromCart(ctx, productID) })
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, productID)
	}
	return s.apply(func() ([]CartItem, error) { return s.api.UpdateQuantity(ctx, productID, quantity) })
}

func (s *CartStore) Clear(ctx context.Context) error {
	return s.apply(func() ([]CartItem, error) {
		if err := s.api.ClearCart(ctx); err != nil {
			return nil, err
		}
		return []CartItem{}, nil
	})
}

// ApplyCoupon validates code on the server and, when accepted, discounts the totals.
func (s *CartStore) ApplyCoupon(ctx context.Context, code string) error {
	s.op.Lock()
	defer s.op.Unlock()

	c, err := s.api.ValidateCoupon(ctx, code)
	if err != nil {
		return err
	}
	s.setCoupon(c)
	return nil
}

func (s *CartStore) RemoveCoupon() {
	s.op.Lock()
	defer s.op.Unlock()
	s.setCoupon(nil)
}

// Checkout places a pending order for the current lines and applied coupon.
func (s *CartStore) Checkout(ctx context.Context) (*CheckoutResult, error) {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.RLock()
	lines := make([]CheckoutLine, 0, len(s.items))
	for _, it := range s.items {
		lines = append(lines, CheckoutLine{ID: it.ProductID, Quantity: it.Quantity})
	}
	var code string
	if s.coupon != nil {
		code = s.coupon.Code
	}
	s.mu.RUnlock()

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return s.api.Checkout(ctx, lines, code)
}

// CompletePayment confirms the order. The server empties the cart and used
// coupon, so the local copies are reset too.
func (s *CartStore) CompletePayment(ctx context.Context, orderID string) (*PaymentResult, error) {
	s.op.Lock()
	defer s.op.Unlock()

	res, err := s.api.CheckoutSuccess(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.items = []CartItem{}
	s.coupon = nil
	s.totals = Totals{}
	s.mu.Unlock()
	return res, nil
}
