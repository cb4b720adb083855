package cart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/models"
	"storefront/internal/mykafka"
	"storefront/internal/service/token"
)

var jwtSecret = []byte("test_jwt_secret")

func newTestHandler(t *testing.T) *CartHandler {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return &CartHandler{DB: db, Producer: &mykafka.Producer{}, JWTSecret: jwtSecret}
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	user := models.User{Username: username, PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, name, price, category string) models.Product {
	p := models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		Category:    category,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func accessCookie(t *testing.T, user models.User) *http.Cookie {
	tok, err := token.SignAccessToken(user.ID, user.Role, jwtSecret)
	require.NoError(t, err)
	return &http.Cookie{Name: "accessToken", Value: tok, Path: "/"}
}

func newContext(t *testing.T, method, path string, form url.Values, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	return rec, c
}

func decodeSnapshot(t *testing.T, body []byte) Snapshot {
	t.Helper()
	var snap Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	return snap
}

func addToCart(t *testing.T, h *CartHandler, user models.User, productID string) (*httptest.ResponseRecorder, error) {
	rec, c := newContext(t, http.MethodPost, "/add-to-cart/"+productID, nil, accessCookie(t, user))
	c.SetParamNames("product_id")
	c.SetParamValues(productID)
	return rec, h.AddToCart(c)
}

func updateCart(t *testing.T, h *CartHandler, user models.User, itemID, action string) (*httptest.ResponseRecorder, error) {
	form := url.Values{"action": {action}}
	rec, c := newContext(t, http.MethodPost, "/update-cart/"+itemID, form, accessCookie(t, user))
	c.SetParamNames("item_id")
	c.SetParamValues(itemID)
	return rec, h.UpdateCartItem(c)
}

func TestAddToCartMergesRepeatedAdds(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	product := createProduct(t, h.DB, "Keyboard", "49.99", models.CategoryElectronics)

	rec, err := addToCart(t, h, user, "1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Snapshot
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Keyboard added to cart!", resp.Message)
	require.Len(t, resp.Items, 1)
	require.Equal(t, uint(1), resp.Items[0].Quantity)

	rec, err = addToCart(t, h, user, "1")
	require.NoError(t, err)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 1, "repeated add must not create a second line")
	require.Equal(t, uint(2), snap.Items[0].Quantity)
	require.Equal(t, "99.98", snap.Total)

	var count int64
	h.DB.Model(&models.CartItem{}).Where("product_id = ?", product.ID).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestAddToCartUnknownProduct(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")

	_, err := addToCart(t, h, user, "42")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestAddToCartRequiresAuth(t *testing.T) {
	h := newTestHandler(t)
	createProduct(t, h.DB, "Keyboard", "49.99", models.CategoryElectronics)

	_, c := newContext(t, http.MethodPost, "/add-to-cart/1", nil)
	c.SetParamNames("product_id")
	c.SetParamValues("1")

	err := h.AddToCart(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestUpdateCartIncrease(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, user, "1")
	require.NoError(t, err)

	rec, err := updateCart(t, h, user, "1", "increase")
	require.NoError(t, err)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, uint(2), snap.Items[0].Quantity)
	require.Equal(t, "11.00", snap.Total)
}

func TestUpdateCartDecreaseAboveOne(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, user, "1")
	require.NoError(t, err)
	_, err = addToCart(t, h, user, "1")
	require.NoError(t, err)
	_, err = addToCart(t, h, user, "1")
	require.NoError(t, err)

	rec, err := updateCart(t, h, user, "1", "decrease")
	require.NoError(t, err)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 1)
	require.Equal(t, uint(2), snap.Items[0].Quantity)
}

func TestUpdateCartDecreaseAtOneDeletes(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, user, "1")
	require.NoError(t, err)

	rec, err := updateCart(t, h, user, "1", "decrease")
	require.NoError(t, err)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 0)
	require.Equal(t, 0, snap.Count)
	require.Equal(t, "0.00", snap.Total)

	var count int64
	h.DB.Model(&models.CartItem{}).Count(&count)
	require.Equal(t, int64(0), count, "quantity must never persist at zero")
}

func TestUpdateCartUnknownActionIsNoOp(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, user, "1")
	require.NoError(t, err)

	rec, err := updateCart(t, h, user, "1", "explode")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 1)
	require.Equal(t, uint(1), snap.Items[0].Quantity)
}

func TestRemoveCartItem(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, user, "1")
	require.NoError(t, err)
	_, err = addToCart(t, h, user, "1")
	require.NoError(t, err)

	rec, c := newContext(t, http.MethodPost, "/remove-cart/1", nil, accessCookie(t, user))
	c.SetParamNames("item_id")
	c.SetParamValues("1")
	require.NoError(t, h.RemoveCartItem(c))

	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 0, "remove deletes the line regardless of quantity")
	require.Equal(t, "0.00", snap.Total)
}

func TestCartOwnershipIsolation(t *testing.T) {
	h := newTestHandler(t)
	alice := createUser(t, h.DB, "alice")
	bob := createUser(t, h.DB, "bob")
	createProduct(t, h.DB, "Mug", "5.50", models.CategoryHome)

	_, err := addToCart(t, h, alice, "1")
	require.NoError(t, err)

	_, err = updateCart(t, h, bob, "1", "increase")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)

	_, c := newContext(t, http.MethodPost, "/remove-cart/1", nil, accessCookie(t, bob))
	c.SetParamNames("item_id")
	c.SetParamValues("1")
	err = h.RemoveCartItem(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)

	// alice's line is untouched
	var item models.CartItem
	require.NoError(t, h.DB.First(&item, 1).Error)
	require.Equal(t, uint(1), item.Quantity)
}

func TestGetCartCreatesCartLazily(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")

	var count int64
	h.DB.Model(&models.Cart{}).Count(&count)
	require.Equal(t, int64(0), count)

	rec, c := newContext(t, http.MethodGet, "/cart", nil, accessCookie(t, user))
	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, 0, snap.Count)
	require.Equal(t, "0.00", snap.Total)

	h.DB.Model(&models.Cart{}).Count(&count)
	require.Equal(t, int64(1), count)

	// a second view reuses the same cart
	_, c = newContext(t, http.MethodGet, "/cart", nil, accessCookie(t, user))
	require.NoError(t, h.GetCart(c))
	h.DB.Model(&models.Cart{}).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestSnapshotTotalsMatchLineSums(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "Mug", "2.50", models.CategoryHome)
	createProduct(t, h.DB, "Book", "10.00", models.CategoryBooks)

	for i := 0; i < 3; i++ {
		_, err := addToCart(t, h, user, "1")
		require.NoError(t, err)
	}
	_, err := addToCart(t, h, user, "2")
	require.NoError(t, err)

	rec, c := newContext(t, http.MethodGet, "/cart", nil, accessCookie(t, user))
	require.NoError(t, h.GetCart(c))
	snap := decodeSnapshot(t, rec.Body.Bytes())

	require.Len(t, snap.Items, 2)
	sum := decimal.Zero
	for _, it := range snap.Items {
		line := decimal.RequireFromString(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		require.Equal(t, line.StringFixed(2), it.Total)
		sum = sum.Add(line)
	}
	require.Equal(t, sum.StringFixed(2), snap.Total)
	require.Equal(t, "17.50", snap.Total)
}

func TestCartScenarioWalk(t *testing.T) {
	h := newTestHandler(t)
	user := createUser(t, h.DB, "alice")
	createProduct(t, h.DB, "P1", "10.00", models.CategoryElectronics)

	rec, err := addToCart(t, h, user, "1")
	require.NoError(t, err)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, 1, snap.Count)
	require.Equal(t, uint(1), snap.Items[0].Quantity)
	require.Equal(t, "10.00", snap.Total)
	require.Equal(t, models.PlaceholderImage, snap.Items[0].ImageURL)

	rec, err = addToCart(t, h, user, "1")
	require.NoError(t, err)
	snap = decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, uint(2), snap.Items[0].Quantity)
	require.Equal(t, "20.00", snap.Total)

	rec, err = updateCart(t, h, user, "1", "decrease")
	require.NoError(t, err)
	snap = decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, uint(1), snap.Items[0].Quantity)
	require.Equal(t, "10.00", snap.Total)

	rec, err = updateCart(t, h, user, "1", "decrease")
	require.NoError(t, err)
	snap = decodeSnapshot(t, rec.Body.Bytes())
	require.Len(t, snap.Items, 0)
	require.Equal(t, 0, snap.Count)
}

func TestInvalidRequestBody(t *testing.T) {
	h := newTestHandler(t)

	rec, c := newContext(t, http.MethodGet, "/update-cart/1", nil)
	require.NoError(t, h.InvalidRequest(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"error": "Invalid request"}`, rec.Body.String())
}

func TestParseAction(t *testing.T) {
	require.Equal(t, ActionIncrease, ParseAction("increase"))
	require.Equal(t, ActionDecrease, ParseAction("decrease"))
	require.Equal(t, ActionNone, ParseAction(""))
	require.Equal(t, ActionNone, ParseAction("INCREASE"))
	require.Equal(t, ActionNone, ParseAction("drop"))
}
