package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/01moynul/homewareontap-golang/internal/address"
	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/auth"
	"github.com/01moynul/homewareontap-golang/internal/middleware"
	"github.com/01moynul/homewareontap-golang/internal/pricing"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB        *sql.DB
	Addresses *address.Manager
	Pricing   *pricing.Calculator
	Coupons   pricing.CouponResolver
	Tokens    *auth.Tokens
	Log       *zap.Logger

	// Pending orders older than this are cancelled by ProcessOverdueOrders.
	OrderPendingTTL time.Duration

	Now func() time.Time
}

// New wires the handlers around one connection pool.
func New(db *sql.DB, calc *pricing.Calculator, tokens *auth.Tokens, log *zap.Logger, pendingTTL time.Duration) *Handlers {
	return &Handlers{
		DB:              db,
		Addresses:       address.NewManager(address.NewMySQLStore(db), log),
		Pricing:         calc,
		Coupons:         pricing.NewCouponStore(db),
		Tokens:          tokens,
		Log:             log,
		OrderPendingTTL: pendingTTL,
		Now:             time.Now,
	}
}

// statusFor maps an error kind to the HTTP status the pages expect.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindCouponNotFound:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// logFailure records storage failures with the request's context. Expected
// outcomes are not logged here; the request logger already has their status.
func (h *Handlers) logFailure(c *gin.Context, err error) {
	if !apperr.Is(err, apperr.KindStorage) {
		return
	}
	rc := middleware.FromContext(c)
	h.Log.Error("request failed",
		zap.Error(err),
		zap.String("route", c.FullPath()),
		zap.String("request_id", rc.RequestID),
		zap.Int64("user_id", rc.UserID),
	)
	_ = c.Error(err)
}

// respondError writes {"error": ...} for err.
func (h *Handlers) respondError(c *gin.Context, err error) {
	h.logFailure(c, err)

	body := gin.H{"error": apperr.Message(err)}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Field != "" && ae.Kind == apperr.KindValidation {
		body["field"] = ae.Field
	}
	c.JSON(statusFor(err), body)
}

// respondFailure writes {"success": false, "message": ...} for the AJAX
// endpoints (cart, wishlist).
func (h *Handlers) respondFailure(c *gin.Context, err error) {
	h.logFailure(c, err)
	c.JSON(statusFor(err), gin.H{"success": false, "message": apperr.Message(err)})
}

func init() {
	// Report binding failures under the JSON names clients send.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// bindJSON decodes the request body into dst, turning binding failures into
// a validation error naming the first offending field.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return apperr.Validation(fe.Field(), fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag()))
	}
	return apperr.Validation("body", "Invalid input: "+err.Error())
}

// paramID parses a positive integer path parameter. Malformed ids are
// reported as not found, the same as ids owned by someone else.
func paramID(c *gin.Context, name, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound(what)
	}
	return id, nil
}

// currentUser returns the authenticated user id set by the auth middleware.
func currentUser(c *gin.Context) int64 {
	return middleware.UserID(c)
}
