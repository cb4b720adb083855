package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/models"
)

// Action is the closed set of quantity adjustments. Anything the client
// sends outside of it parses to ActionNone, which leaves the item alone.
type Action int

const (
	ActionNone Action = iota
	ActionIncrease
	ActionDecrease
)

func ParseAction(s string) Action {
	switch s {
	case "increase":
		return ActionIncrease
	case "decrease":
		return ActionDecrease
	default:
		return ActionNone
	}
}

type ItemView struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity uint   `json:"quantity"`
	Total    string `json:"total"`
	ImageURL string `json:"image_url"`
}

// Snapshot is the full recomputed cart state returned after every
// operation. cart_count is the number of lines, not the summed quantity.
type Snapshot struct {
	Items []ItemView `json:"cart_items"`
	Total string     `json:"cart_total"`
	Count int        `json:"cart_count"`
}

// buildSnapshot re-reads every line and its product and recomputes the
// totals from scratch. Totals are never stored anywhere.
func buildSnapshot(db *gorm.DB, cartID uint) (Snapshot, error) {
	var items []models.CartItem
	if err := db.Where("cart_id = ?", cartID).Order("id ASC").Find(&items).Error; err != nil {
		return Snapshot{}, err
	}

	views := make([]ItemView, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		var product models.Product
		if err := db.First(&product, it.ProductID).Error; err != nil {
			return Snapshot{}, err
		}

		line := product.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)

		views = append(views, ItemView{
			ID:       it.ID,
			Name:     product.Name,
			Price:    product.Price.StringFixed(2),
			Quantity: it.Quantity,
			Total:    line.StringFixed(2),
			ImageURL: product.ImageURL(),
		})
	}

	return Snapshot{
		Items: views,
		Total: total.StringFixed(2),
		Count: len(views),
	}, nil
}

// getOrCreateCart resolves the user's single cart, creating it on first
// use. On a lost insert race the unique index on user_id rejects the
// create and the existing row is re-read.
func getOrCreateCart(db *gorm.DB, userID uint) (models.Cart, error) {
	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return cart, err
	}

	cart = models.Cart{UserID: userID}
	if createErr := db.Create(&cart).Error; createErr != nil {
		if err := db.Where("user_id = ?", userID).First(&cart).Error; err == nil {
			return cart, nil
		}
		return cart, createErr
	}
	return cart, nil
}

// findOwnedItem fetches a cart item only when it belongs to the given
// user's cart. The join is the ownership check: a foreign item is
// indistinguishable from a missing one.
func findOwnedItem(db *gorm.DB, itemID int, userID uint) (models.CartItem, error) {
	var item models.CartItem
	err := db.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	return item, err
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
