package cart

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront/internal/models"
	"storefront/internal/mykafka"
	"storefront/internal/service/token"
)

type CartHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

// GetCart returns the current snapshot without mutating anything. The
// cart itself is still created lazily here if the user never had one.
func (h *CartHandler) GetCart(c echo.Context) error {
	userID, _, err := token.Identity(c, h.JWTSecret)
	if err != nil {
		return err
	}

	cart, err := getOrCreateCart(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	snap, err := buildSnapshot(h.DB, cart.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, snap)
}

// AddToCart adds one unit of the product, folding repeated adds into the
// existing line instead of creating a second row.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, _, err := token.Identity(c, h.JWTSecret)
	if err != nil {
		return err
	}

	productID, err := strconv.Atoi(c.Param("product_id"))
	if err != nil || productID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.DB.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	cart, err := getOrCreateCart(h.DB, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var item models.CartItem
	tx := h.DB.Where("cart_id = ? AND product_id = ?", cart.ID, product.ID).First(&item)
	switch {
	case tx.Error == nil:
		item.Quantity += 1
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		item = models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: 1}
		if err := h.DB.Create(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	snap, err := buildSnapshot(h.DB, cart.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": product.ID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    fmt.Sprintf("%s added to cart!", product.Name),
		"cart_items": snap.Items,
		"cart_total": snap.Total,
		"cart_count": snap.Count,
	})
}

// UpdateCartItem applies an increase/decrease action to a line the caller
// owns. Decreasing a quantity-1 line deletes it; an unknown action is a
// no-op that still returns a fresh snapshot.
func (h *CartHandler) UpdateCartItem(c echo.Context) error {
	userID, _, err := token.Identity(c, h.JWTSecret)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := findOwnedItem(h.DB, itemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	action := ParseAction(c.FormValue("action"))

	switch action {
	case ActionIncrease:
		item.Quantity += 1
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case ActionDecrease:
		if item.Quantity > 1 {
			item.Quantity -= 1
			if err := h.DB.Save(&item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		} else {
			if err := h.DB.Delete(&item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
		}
	case ActionNone:
	}

	snap, err := buildSnapshot(h.DB, item.CartID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_updated",
		"userID": userID,
		"itemID": item.ID,
		"action": c.FormValue("action"),
	})

	return c.JSON(http.StatusOK, snap)
}

// RemoveCartItem deletes the line outright regardless of quantity.
func (h *CartHandler) RemoveCartItem(c echo.Context) error {
	userID, _, err := token.Identity(c, h.JWTSecret)
	if err != nil {
		return err
	}

	itemID, err := strconv.Atoi(c.Param("item_id"))
	if err != nil || itemID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	item, err := findOwnedItem(h.DB, itemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	snap, err := buildSnapshot(h.DB, item.CartID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"itemID": item.ID,
	})

	return c.JSON(http.StatusOK, snap)
}

// InvalidRequest answers cart mutation paths hit with the wrong method.
func (h *CartHandler) InvalidRequest(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"error": "Invalid request"})
}
