package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"storefront/internal/handlers"
	"storefront/internal/handlers/cart"
	"storefront/internal/service/token"
)

type Deps struct {
	DB               *gorm.DB
	AuthHandler      *handlers.AuthHandler
	ProductHandler   *handlers.ProductHandler
	DashboardHandler *handlers.DashboardHandler
	CartHandler      *cart.CartHandler
	SearchHandler    *handlers.SearchHandler
	TokenService     *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	e.GET("/", d.ProductHandler.ProductList)
	e.GET("/dashboard", d.DashboardHandler.Dashboard)
	e.GET("/search", d.SearchHandler.Search)

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/logout", d.AuthHandler.LogOut)

	e.GET("/products", d.ProductHandler.GetProducts)
	e.GET("/products/:id", d.ProductHandler.GetProduct)

	admin := e.Group("/admin", d.TokenService.StaffOnly)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	e.GET("/cart", d.CartHandler.GetCart, d.TokenService.AutoRefresh)
	e.POST("/add-to-cart/:product_id", d.CartHandler.AddToCart, d.TokenService.AutoRefresh)
	e.POST("/update-cart/:item_id", d.CartHandler.UpdateCartItem, d.TokenService.AutoRefresh)
	e.POST("/remove-cart/:item_id", d.CartHandler.RemoveCartItem, d.TokenService.AutoRefresh)

	// the mutation paths are POST-only; a GET on add-to-cart goes back to
	// the storefront, the other two answer with the invalid-request body
	e.GET("/add-to-cart/:product_id", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/")
	})
	e.GET("/update-cart/:item_id", d.CartHandler.InvalidRequest)
	e.GET("/remove-cart/:item_id", d.CartHandler.InvalidRequest)
}
