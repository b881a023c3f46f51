package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/util"
)

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Profile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func ProfileOf(u *models.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image"`
	IsFeatured  bool   `json:"is_featured"`
}

type ProductList struct {
	Data []models.Product `json:"data"`
	Meta util.Meta        `json:"meta"`
}

type CategoryProducts struct {
	Products []models.Product `json:"products"`
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type ValidateCouponRequest struct {
	Code string `json:"code"`
}

type Coupon struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpiresAt          time.Time `json:"expiration_date"`
}

func CouponOf(c *models.Coupon) *Coupon {
	if c == nil {
		return nil
	}
	return &Coupon{Code: c.Code, DiscountPercentage: c.DiscountPercentage, ExpiresAt: c.ExpiresAt}
}

type CheckoutProduct struct {
	ID       uuid.UUID `json:"id"`
	Quantity int       `json:"quantity"`
}

type CheckoutRequest struct {
	Products   []CheckoutProduct `json:"products"`
	CouponCode string            `json:"coupon_code"`
}

type CheckoutResponse struct {
	OrderID     uuid.UUID `json:"order_id"`
	TotalAmount int64     `json:"total_amount"`
	Discount    int64     `json:"discount"`
}

type CheckoutSuccessRequest struct {
	OrderID uuid.UUID `json:"order_id"`
}

type CheckoutSuccessResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	OrderID      uuid.UUID `json:"order_id"`
	TotalAmount  int64     `json:"total_amount"`
	RewardCoupon *Coupon   `json:"reward_coupon,omitempty"`
}
