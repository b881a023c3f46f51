package storeclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Skotchmaster/storefront/pkg/authclient"
)

const apiPrefix = "/api/v1"

var ErrEmptyQuery = errors.New("search query is empty")

// Client calls the storefront API. Pass it the coordinated transport of an
// authclient.Manager so that expired sessions are refreshed transparently.
type Client struct {
	t authclient.Transport
}

func New(t authclient.Transport) *Client {
	return &Client{t: t}
}

func (c *Client) send(ctx context.Context, req authclient.Request, in, out any) error {
	if in != nil {
		var err error
		if req, err = req.WithJSON(in); err != nil {
			return err
		}
	}
	resp, err := c.t.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func (c *Client) call(ctx context.Context, method string, path string, in, out any) error {
	return c.send(ctx, authclient.NewRequest(method, apiPrefix+path), in, out)
}

func paged(req authclient.Request, page, size int) authclient.Request {
	if page > 0 {
		req = req.WithQuery("page", strconv.Itoa(page))
	}
	if size > 0 {
		req = req.WithQuery("size", strconv.Itoa(size))
	}
	return req
}

func productPath(id string) string {
	return "/products/" + url.PathEscape(id)
}

func (c *Client) FeaturedProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.call(ctx, http.MethodGet, "/products/featured", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	var out struct {
		Products []Product `json:"products"`
	}
	path := "/products/category/" + url.PathEscape(strings.ToLower(strings.TrimSpace(category)))
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.call(ctx, http.MethodGet, productPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Recommendations(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.call(ctx, http.MethodGet, "/products/recommendations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SearchProducts(ctx context.Context, query string, page, size int) (*ProductPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	req := paged(authclient.NewRequest(http.MethodGet, apiPrefix+"/products/search"), page, size).WithQuery("q", query)

	var out ProductPage
	if err := c.send(ctx, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts pages through the whole catalog. Admin only.
func (c *Client) ListProducts(ctx context.Context, page, size int) (*ProductPage, error) {
	req := paged(authclient.NewRequest(http.MethodGet, apiPrefix+"/products"), page, size)

	var out ProductPage
	if err := c.send(ctx, req, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var out Product
	if err := c.call(ctx, http.MethodPost, "/products", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	var out Product
	if err := c.call(ctx, http.MethodPut, productPath(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleFeatured(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := c.call(ctx, http.MethodPatch, "/products/featured/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, productPath(id), nil, nil)
}

func (c *Client) Cart(ctx context.Context) ([]CartItem, error) {
	return c.cart(ctx, http.MethodGet, "/cart", nil)
}

func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) ([]CartItem, error) {
	in := struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity,omitempty"`
	}{productID, quantity}
	return c.cart(ctx, http.MethodPost, "/cart", in)
}

// UpdateQuantity sets the quantity of a line; zero removes it.
func (c *Client) UpdateQuantity(ctx context.Context, productID string, quantity int) ([]CartItem, error) {
	in := struct {
		Quantity int `json:"quantity"`
	}{quantity}
	return c.cart(ctx, http.MethodPut, "/cart/"+url.PathEscape(productID), in)
}

func (c *Client) RemoveFromCart(ctx context.Context, productID string) ([]CartItem, error) {
	return c.cart(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), nil)
}

func (c *Client) ClearCart(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/cart", nil, nil)
}

func (c *Client) cart(ctx context.Context, method, path string, in any) ([]CartItem, error) {
	out := []CartItem{}
	if err := c.call(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Coupon returns the caller's active coupon, or nil when there is none.
func (c *Client) Coupon(ctx context.Context) (*Coupon, error) {
	var out *Coupon
	if err := c.call(ctx, http.MethodGet, "/coupons", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ValidateCoupon(ctx context.Context, code string) (*Coupon, error) {
	in := struct {
		Code string `json:"code"`
	}{strings.TrimSpace(code)}

	var out Coupon
	if err := c.call(ctx, http.MethodPost, "/coupons/validate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Checkout(ctx context.Context, lines []CheckoutLine, couponCode string) (*CheckoutResult, error) {
	in := struct {
		Products   []CheckoutLine `json:"products"`
		CouponCode string         `json:"coupon_code,omitempty"`
	}{lines, couponCode}

	var out CheckoutResult
	if err := c.call(ctx, http.MethodPost, "/payment/checkout", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CheckoutSuccess(ctx context.Context, orderID string) (*PaymentResult, error) {
	in := struct {
		OrderID string `json:"order_id"`
	}{orderID}

	var out PaymentResult
	if err := c.call(ctx, http.MethodPost, "/payment/checkout-success", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Analytics(ctx context.Context) (*Analytics, error) {
	var out Analytics
	if err := c.call(ctx, http.MethodGet, "/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
