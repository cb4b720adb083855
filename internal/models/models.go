package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryElectronics = "electronics"
	CategoryFashion     = "fashion"
	CategoryFootwear    = "footwear"
	CategoryBooks       = "books"
	CategoryHome        = "home"
	CategorySports      = "sports"
)

// Categories is the fixed set a product may belong to, in display order.
var Categories = []string{
	CategoryElectronics,
	CategoryFashion,
	CategoryFootwear,
	CategoryBooks,
	CategoryHome,
	CategorySports,
}

const PlaceholderImage = "/static/placeholder.png"

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name        string          `gorm:"not null"                     json:"name"`
	Description string          `gorm:"not null"                     json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(8,2);not null"   json:"price"`
	Category    string          `gorm:"not null;default:electronics" json:"category"`
	Image       string          `json:"image"`
}

// ImageURL returns the stored image path or the placeholder when none was uploaded.
func (p Product) ImageURL() string {
	if p.Image == "" {
		return PlaceholderImage
	}
	return p.Image
}

const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

func (u User) IsStaff() bool { return u.Role == RoleStaff }

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// Cart is created lazily on the first cart action and never deleted.
// user_id is unique: one cart per user.
type Cart struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null"     json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem quantity is always >= 1; decreasing past 1 deletes the row.
// The composite unique index on (cart_id, product_id) is what keeps two
// racing adds from creating duplicate rows.
type CartItem struct {
	ID        uint `gorm:"primaryKey;autoIncrement"              json:"id"`
	CartID    uint `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  uint `gorm:"not null;default:1;check:quantity>0"   json:"quantity"`
}
