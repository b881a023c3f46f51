package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	OrderPending = "pending"
	OrderPaid    = "paid"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name         string    `gorm:"not null"              json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Role         string    `gorm:"not null"              json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"            json:"id"`
	Token     string    `gorm:"uniqueIndex;not null"  json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index"       json:"user_id"`
	JTI       string    `gorm:"uniqueIndex;not null"  json:"jti"`
	ExpiresAt int64     `gorm:"not null"              json:"expires_at"`
	Revoked   bool      `gorm:"default:false"         json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Name        string    `gorm:"not null"              json:"name"`
	Description string    `gorm:"not null"              json:"description"`
	Price       int64     `gorm:"not null"              json:"price"`
	Image       string    `json:"image"`
	ImageKey    string    `json:"-"`
	Category    string    `gorm:"index;not null"        json:"category"`
	IsFeatured  bool      `gorm:"index;default:false"   json:"is_featured"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                   json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product"  json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product"  json:"product_id"`
	Quantity  int       `gorm:"not null"                                     json:"quantity"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

type Coupon struct {
	ID                 uint      `gorm:"primaryKey"                  json:"-"`
	Code               string    `gorm:"uniqueIndex;not null"        json:"code"`
	DiscountPercentage int       `gorm:"not null"                    json:"discount_percentage"`
	ExpiresAt          time.Time `gorm:"not null"                    json:"expiration_date"`
	IsActive           bool      `gorm:"default:true"                json:"is_active"`
	UserID             uuid.UUID `gorm:"type:uuid;uniqueIndex"       json:"-"`
	CreatedAt          time.Time `json:"-"`
}

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"  json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;index"       json:"user_id"`
	Items       []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount int64       `gorm:"not null"              json:"total_amount"`
	Discount    int64       `json:"discount"`
	CouponCode  string      `json:"coupon_code,omitempty"`
	Status      string      `gorm:"index;not null"        json:"status"`
	PaidAt      *time.Time  `gorm:"index"                 json:"paid_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"-"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderItem struct {
	ID        uint      `gorm:"primaryKey"       json:"-"`
	OrderID   uuid.UUID `gorm:"type:uuid;index"  json:"-"`
	ProductID uuid.UUID `gorm:"type:uuid"        json:"product_id"`
	Quantity  int       `gorm:"not null"         json:"quantity"`
	Price     int64     `gorm:"not null"         json:"price"`
}

func All() []any {
	return []any{&User{}, &RefreshToken{}, &Product{}, &CartItem{}, &Coupon{}, &Order{}, &OrderItem{}}
}

// CartLine is a cart row joined with its product.
type CartLine struct {
	ProductID   uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Image       string    `json:"image"`
	Category    string    `json:"category"`
	Quantity    int       `json:"quantity"`
}
