package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/DATA-DOG/go-sqlmock"
)

var cartLineColumns = []string{"product_id", "name", "slug", "image", "price", "quantity", "stock_quantity"}

// expectCartRead expects loadCart for cart 7 holding one line.
func expectCartRead(mock sqlmock.Sqlmock, coupon any, price string, qty, stock int64) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, coupon_code FROM carts WHERE user_id = ?")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code"}).AddRow(int64(7), coupon))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items ci")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(cartLineColumns).
			AddRow(int64(12), "Ceramic Mug", "ceramic-mug", "/img/mug.jpg", price, qty, stock))
}

func TestCheckQuantity(t *testing.T) {
	cases := []struct {
		qty, stock int
		wantErr    bool
	}{
		{1, 5, false},
		{5, 5, false},
		{6, 5, true},
		{1, 0, true},
		{10, 50, false},
		{11, 50, true},
	}
	for _, tc := range cases {
		err := checkQuantity("Ceramic Mug", tc.qty, tc.stock)
		if (err != nil) != tc.wantErr {
			t.Errorf("checkQuantity(%d, stock %d) = %v, wantErr %v", tc.qty, tc.stock, err, tc.wantErr)
		}
		if err != nil && !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	}
}

func TestAddToCart_AddsAndReturnsSummary(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ? FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock_quantity FROM products")).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock_quantity"}).AddRow("Ceramic Mug", int64(5)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT quantity FROM cart_items")).
		WithArgs(int64(7), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cart_items")).
		WithArgs(int64(7), int64(12), int64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	expectCartRead(mock, nil, "120.00", 2, 5)

	w := serve(h.AddToCart, testRequest{
		method: http.MethodPost, route: "/cart/items", path: "/cart/items", userID: 1,
		body: map[string]any{"product_id": 12, "quantity": 2},
	})

	expectStatus(t, w, http.StatusCreated)
	body := decodeBody(t, w)
	if body["success"] != true || body["cart_count"] != float64(2) {
		t.Errorf("unexpected body: %v", body)
	}
	summary := body["summary"].(map[string]any)
	// 240 + 60 shipping + 36 VAT
	if summary["grand_total"] != "336.00" || summary["shipping_cost"] != "60.00" {
		t.Errorf("unexpected summary: %v", summary)
	}
	assertMet(t, mock)
}

func TestAddToCart_RejectsQuantityAboveStock(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock_quantity FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock_quantity"}).AddRow("Ceramic Mug", int64(2)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT quantity FROM cart_items")).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(int64(1)))
	mock.ExpectRollback()

	w := serve(h.AddToCart, testRequest{
		method: http.MethodPost, route: "/cart/items", path: "/cart/items", userID: 1,
		body: map[string]any{"product_id": 12, "quantity": 2},
	})

	expectStatus(t, w, http.StatusConflict)
	body := decodeBody(t, w)
	if body["success"] != false || body["message"] != "Only 2 of Ceramic Mug can be added to your cart" {
		t.Errorf("unexpected body: %v", body)
	}
	assertMet(t, mock)
}

func TestAddToCart_CreatesCartForFirstItem(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM carts WHERE user_id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO carts")).
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, stock_quantity FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock_quantity"}))
	mock.ExpectRollback()

	w := serve(h.AddToCart, testRequest{
		method: http.MethodPost, route: "/cart/items", path: "/cart/items", userID: 1,
		body: map[string]any{"product_id": 99, "quantity": 1},
	})

	expectStatus(t, w, http.StatusNotFound)
	assertMet(t, mock)
}

func TestUpdateCartItem_ZeroRemovesLine(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT ci.cart_id, p.name, p.stock_quantity")).
		WithArgs(int64(1), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"cart_id", "name", "stock_quantity"}).AddRow(int64(7), "Ceramic Mug", int64(5)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?")).
		WithArgs(int64(7), int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, coupon_code FROM carts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code"}).AddRow(int64(7), nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items ci")).
		WillReturnRows(sqlmock.NewRows(cartLineColumns))

	w := serve(h.UpdateCartItem, testRequest{
		method: http.MethodPut, route: "/cart/items/:product_id", path: "/cart/items/12", userID: 1,
		body: `{"quantity": 0}`,
	})

	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["message"] != "Item removed from cart" || body["cart_count"] != float64(0) {
		t.Errorf("unexpected body: %v", body)
	}
	// An empty cart costs nothing, not the flat shipping rate.
	if body["summary"].(map[string]any)["grand_total"] != "0.00" {
		t.Errorf("unexpected summary: %v", body["summary"])
	}
	assertMet(t, mock)
}

func TestUpdateCartItem_MissingQuantity(t *testing.T) {
	h, mock := newTestHandlers(t)

	w := serve(h.UpdateCartItem, testRequest{
		method: http.MethodPut, route: "/cart/items/:product_id", path: "/cart/items/12", userID: 1,
		body: `{}`,
	})

	expectStatus(t, w, http.StatusBadRequest)
	assertMet(t, mock)
}

func TestDeleteCartItem_NotInCart(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE ci FROM cart_items ci")).
		WithArgs(int64(1), int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	w := serve(h.DeleteCartItem, testRequest{
		method: http.MethodDelete, route: "/cart/items/:product_id", path: "/cart/items/12", userID: 1,
	})

	expectStatus(t, w, http.StatusNotFound)
	if decodeBody(t, w)["success"] != false {
		t.Error("expected success=false")
	}
	assertMet(t, mock)
}

func TestGetCart_WarnsAboutStockAndStaleCoupon(t *testing.T) {
	h, mock := newTestHandlers(t)

	expectCartRead(mock, "GONE", "100.00", 3, 2)
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons")).
		WithArgs("GONE", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "type", "value", "is_active", "expires_at"}))

	w := serve(h.GetCart, testRequest{method: http.MethodGet, route: "/cart", path: "/cart", userID: 1})

	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	warnings := body["warnings"].([]any)
	if len(warnings) != 1 || warnings[0] != "Only 2 of Ceramic Mug left in stock" {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if _, ok := body["coupon_message"]; !ok {
		t.Error("expected coupon_message for a coupon that no longer resolves")
	}
	if _, ok := body["coupon_code"]; ok {
		t.Error("did not expect coupon_code")
	}
	items := body["items"].([]any)
	line := items[0].(map[string]any)
	if line["line_total"] != "300.00" || line["in_stock"] != false || line["max_quantity"] != float64(2) {
		t.Errorf("unexpected line: %v", line)
	}
	assertMet(t, mock)
}

func TestGetCart_NoCartYet(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, coupon_code FROM carts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code"}))

	w := serve(h.GetCart, testRequest{method: http.MethodGet, route: "/cart", path: "/cart", userID: 1})

	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["cart_count"] != float64(0) || len(body["items"].([]any)) != 0 {
		t.Errorf("unexpected body: %v", body)
	}
	assertMet(t, mock)
}

func TestApplyCoupon_UnknownCodeKeepsSummary(t *testing.T) {
	h, mock := newTestHandlers(t)

	expectCartRead(mock, nil, "100.00", 1, 5)
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons")).
		WithArgs("NOPE", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "type", "value", "is_active", "expires_at"}))

	w := serve(h.ApplyCoupon, testRequest{
		method: http.MethodPost, route: "/cart/coupon", path: "/cart/coupon", userID: 1,
		body: map[string]any{"coupon_code": " nope "},
	})

	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body)
	}
	// 100 + 60 shipping + 15 VAT, no discount
	if body["summary"].(map[string]any)["grand_total"] != "175.00" {
		t.Errorf("unexpected summary: %v", body["summary"])
	}
	assertMet(t, mock)
}

func TestApplyCoupon_PercentCoupon(t *testing.T) {
	h, mock := newTestHandlers(t)

	expectCartRead(mock, nil, "150.00", 2, 5)
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons")).
		WithArgs("SAVE10", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "type", "value", "is_active", "expires_at"}).
			AddRow(int64(3), "SAVE10", "percent", "0.10", true, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE carts SET coupon_code = ?, updated_at = ? WHERE id = ?")).
		WithArgs("SAVE10", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := serve(h.ApplyCoupon, testRequest{
		method: http.MethodPost, route: "/cart/coupon", path: "/cart/coupon", userID: 1,
		body: map[string]any{"coupon_code": "save10"},
	})

	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["success"] != true || body["message"] != "Coupon SAVE10 applied. You saved R30.00" {
		t.Errorf("unexpected body: %v", body)
	}
	summary := body["summary"].(map[string]any)
	// 300 free shipping + 45 VAT - 30 discount
	if summary["discount_amount"] != "30.00" || summary["grand_total"] != "315.00" {
		t.Errorf("unexpected summary: %v", summary)
	}
	assertMet(t, mock)
}

func TestApplyCoupon_EmptyCart(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, coupon_code FROM carts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code"}))

	w := serve(h.ApplyCoupon, testRequest{
		method: http.MethodPost, route: "/cart/coupon", path: "/cart/coupon", userID: 1,
		body: map[string]any{"coupon_code": "SAVE10"},
	})

	expectStatus(t, w, http.StatusBadRequest)
	if decodeBody(t, w)["message"] != "Your cart is empty" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	assertMet(t, mock)
}

func TestClearCart_DropsItemsAndCoupon(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE ci FROM cart_items ci")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE carts SET coupon_code = NULL")).
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, coupon_code FROM carts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "coupon_code"}).AddRow(int64(7), nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items ci")).
		WillReturnRows(sqlmock.NewRows(cartLineColumns))

	w := serve(h.ClearCart, testRequest{method: http.MethodDelete, route: "/cart", path: "/cart", userID: 1})

	expectStatus(t, w, http.StatusOK)
	if decodeBody(t, w)["message"] != "Cart cleared" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	assertMet(t, mock)
}

func TestGetCartCount(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(ci.quantity), 0)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))

	w := serve(h.GetCartCount, testRequest{method: http.MethodGet, route: "/cart/count", path: "/cart/count", userID: 1})

	expectStatus(t, w, http.StatusOK)
	if decodeBody(t, w)["cart_count"] != float64(4) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	assertMet(t, mock)
}
