package storeclient

import "time"

// Amounts are integer cents throughout.

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	IsFeatured  bool      `json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput is the body of create and update. Image may be an http(s) URL,
// a data URL or bare base64; empty keeps the current image on update.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
	IsFeatured  bool   `json:"is_featured"`
}

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type ProductPage struct {
	Data []Product `json:"data"`
	Meta PageMeta  `json:"meta"`
}

type CartItem struct {
	ProductID   string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
}

type Coupon struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpiresAt          time.Time `json:"expiration_date"`
}

type CheckoutLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type CheckoutResult struct {
	OrderID     string `json:"order_id"`
	TotalAmount int64  `json:"total_amount"`
	Discount    int64  `json:"discount"`
}

type PaymentResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	OrderID      string  `json:"order_id"`
	TotalAmount  int64   `json:"total_amount"`
	RewardCoupon *Coupon `json:"reward_coupon,omitempty"`
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

type Analytics struct {
	Summary    Summary      `json:"analytics_data"`
	DailySales []DailySales `json:"daily_sales_data"`
}
