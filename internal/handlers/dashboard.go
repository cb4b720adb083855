package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/models"
	"storefront/internal/service/token"
)

type DashboardHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
}

// Dashboard shows aggregate stats to staff users. Everyone else,
// anonymous callers included, gets a redirect to the storefront instead
// of an error.
//
// total_value is the plain sum of unit prices, not weighted by any
// quantity.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	_, role, err := token.Identity(c, h.JWTSecret)
	if err != nil || role != models.RoleStaff {
		return c.Redirect(http.StatusFound, "/")
	}

	var totalProducts, totalUsers int64
	if err := h.DB.Model(&models.Product{}).Count(&totalProducts).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.DB.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	recent := make([]models.Product, 0, 5)
	if err := h.DB.Order("id DESC").Limit(5).Find(&recent).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var prices []decimal.Decimal
	if err := h.DB.Model(&models.Product{}).Pluck("price", &prices).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	totalValue := decimal.Zero
	for _, p := range prices {
		totalValue = totalValue.Add(p)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total_products":  totalProducts,
		"total_users":     totalUsers,
		"total_value":     totalValue.StringFixed(2),
		"recent_products": recent,
	})
}
