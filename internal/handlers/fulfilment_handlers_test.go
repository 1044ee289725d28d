package handlers

import (
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func expectOrderLock(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT user_id, status, reference FROM orders WHERE id = ? FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "reference"}).AddRow(int64(3), status, "HOT-0000BEEF"))
}

func TestUpdateOrderStatus_ShipsWithTracking(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	expectOrderLock(mock, "processing")
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, tracking_number = COALESCE(?, tracking_number)")).
		WithArgs("shipped", "TRK123", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(3), "order", "Your order HOT-0000BEEF has shipped. Tracking number: TRK123.", "/account/orders/5", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := serve(h.UpdateOrderStatus, testRequest{
		method: http.MethodPatch, route: "/manager/orders/:id/status", path: "/manager/orders/5/status", userID: 2,
		body: map[string]any{"status": "shipped", "tracking_number": " TRK123 "},
	})

	expectStatus(t, w, http.StatusOK)
	assertMet(t, mock)
}

func TestUpdateOrderStatus_ShippingNeedsTracking(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	expectOrderLock(mock, "processing")
	mock.ExpectRollback()

	w := serve(h.UpdateOrderStatus, testRequest{
		method: http.MethodPatch, route: "/manager/orders/:id/status", path: "/manager/orders/5/status", userID: 2,
		body: map[string]any{"status": "shipped"},
	})

	expectStatus(t, w, http.StatusBadRequest)
	if decodeBody(t, w)["field"] != "tracking_number" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	assertMet(t, mock)
}

func TestUpdateOrderStatus_RejectsSkippedSteps(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	expectOrderLock(mock, "pending")
	mock.ExpectRollback()

	w := serve(h.UpdateOrderStatus, testRequest{
		method: http.MethodPatch, route: "/manager/orders/:id/status", path: "/manager/orders/5/status", userID: 2,
		body: map[string]any{"status": "delivered"},
	})

	expectStatus(t, w, http.StatusConflict)
	assertMet(t, mock)
}

func TestUpdateOrderStatus_CancelRestocks(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	expectOrderLock(mock, "pending")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, reference FROM orders WHERE id = ? AND user_id = ? FOR UPDATE")).
		WithArgs(int64(5), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "reference"}).AddRow("pending", "HOT-0000BEEF"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products p")).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?")).
		WithArgs("cancelled", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notifications")).
		WithArgs(int64(3), "order", "Your order HOT-0000BEEF was cancelled by the store.", "/account/orders/5", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	w := serve(h.UpdateOrderStatus, testRequest{
		method: http.MethodPatch, route: "/manager/orders/:id/status", path: "/manager/orders/5/status", userID: 2,
		body: map[string]any{"status": "cancelled"},
	})

	expectStatus(t, w, http.StatusOK)
	assertMet(t, mock)
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	h, mock := newTestHandlers(t)

	w := serve(h.UpdateOrderStatus, testRequest{
		method: http.MethodPatch, route: "/manager/orders/:id/status", path: "/manager/orders/5/status", userID: 2,
		body: map[string]any{"status": "pending"},
	})

	expectStatus(t, w, http.StatusBadRequest)
	assertMet(t, mock)
}

func TestGetFulfilmentQueue_DefaultsToOpenOrders(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.status IN (?, ?) ORDER BY o.created_at ASC, o.id ASC LIMIT ?")).
		WithArgs("pending", "processing", int64(fulfilmentQueueLimit)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := serve(h.GetFulfilmentQueue, testRequest{method: http.MethodGet, route: "/manager/orders", path: "/manager/orders", userID: 2})

	expectStatus(t, w, http.StatusOK)
	if len(decodeBody(t, w)["orders"].([]any)) != 0 {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	assertMet(t, mock)
}

func TestGetCategories_ReturnsTree(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM categories ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "parent_id", "created_at", "updated_at"}).
			AddRow(int64(1), "Kitchen", "kitchen", nil, fixedNow, fixedNow).
			AddRow(int64(2), "Mugs", "mugs", int64(1), fixedNow, fixedNow))

	w := serve(h.GetCategories, testRequest{method: http.MethodGet, route: "/categories", path: "/categories"})

	expectStatus(t, w, http.StatusOK)
	roots := decodeBody(t, w)["categories"].([]any)
	if len(roots) != 1 {
		t.Fatalf("expected one root, got %v", roots)
	}
	children := roots[0].(map[string]any)["children"].([]any)
	if len(children) != 1 || children[0].(map[string]any)["slug"] != "mugs" {
		t.Errorf("unexpected children: %v", children)
	}
	assertMet(t, mock)
}
