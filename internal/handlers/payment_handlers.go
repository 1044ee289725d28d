package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Saved Payment Methods ---
//
// Cards are tokenised by the payment provider in the browser. This service
// only ever sees the provider token and display metadata.
//

// PaymentMethodResponse adds the derived expiry flag.
type PaymentMethodResponse struct {
	models.PaymentMethod
	Expired bool `json:"expired"`
}

// GetPaymentMethods is the handler for GET /v1/payment-methods
func (h *Handlers) GetPaymentMethods(c *gin.Context) {
	query := `
		SELECT id, user_id, provider, provider_token, brand, last4, exp_month, exp_year,
			cardholder_name, is_default, created_at
		FROM payment_methods
		WHERE user_id = ?
		ORDER BY is_default DESC, created_at DESC`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, currentUser(c))
	if err != nil {
		h.respondError(c, apperr.Storage("payment.list", err))
		return
	}
	defer rows.Close()

	now := h.Now()
	methods := []PaymentMethodResponse{}
	for rows.Next() {
		var p models.PaymentMethod
		if err := rows.Scan(&p.ID, &p.UserID, &p.Provider, &p.ProviderToken, &p.Brand, &p.Last4,
			&p.ExpMonth, &p.ExpYear, &p.CardholderName, &p.IsDefault, &p.CreatedAt); err != nil {
			h.respondError(c, apperr.Storage("payment.list.scan", err))
			return
		}
		methods = append(methods, PaymentMethodResponse{PaymentMethod: p, Expired: p.Expired(now)})
	}
	if err := rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("payment.list.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

// AddPaymentMethodInput is the saved-card form after provider tokenisation.
// CardNumber and CVV exist only so that requests carrying them can be refused.
type AddPaymentMethodInput struct {
	Provider       string `json:"provider" binding:"required,max=50"`
	ProviderToken  string `json:"provider_token" binding:"required,max=255"`
	Brand          string `json:"brand" binding:"required,max=30"`
	Last4          string `json:"last4" binding:"required,len=4,numeric"`
	ExpMonth       int    `json:"exp_month" binding:"required,min=1,max=12"`
	ExpYear        int    `json:"exp_year" binding:"required,min=2000,max=2100"`
	CardholderName string `json:"cardholder_name" binding:"required,max=100"`
	IsDefault      bool   `json:"is_default"`

	CardNumber string `json:"card_number"`
	CVV        string `json:"cvv"`
}

// setDefaultPaymentMethod makes id the only default card of userID.
func setDefaultPaymentMethod(ctx context.Context, q database.Querier, userID, id int64) error {
	_, err := q.ExecContext(ctx, "UPDATE payment_methods SET is_default = (id = ?) WHERE user_id = ?", id, userID)
	return apperr.Storage("payment.set_default", err)
}

// AddPaymentMethod is the handler for POST /v1/payment-methods
func (h *Handlers) AddPaymentMethod(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input AddPaymentMethodInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}
	if input.CardNumber != "" || input.CVV != "" {
		h.respondError(c, apperr.Validation("card_number",
			"Card numbers and security codes cannot be stored. Please tokenise the card with the payment provider."))
		return
	}

	now := h.Now()
	pm := models.PaymentMethod{
		UserID:         userID,
		Provider:       strings.ToLower(strings.TrimSpace(input.Provider)),
		ProviderToken:  input.ProviderToken,
		Brand:          strings.TrimSpace(input.Brand),
		Last4:          input.Last4,
		ExpMonth:       input.ExpMonth,
		ExpYear:        input.ExpYear,
		CardholderName: strings.TrimSpace(input.CardholderName),
		CreatedAt:      now,
	}
	if pm.Expired(now) {
		h.respondError(c, apperr.Validation("exp_year", "This card has expired"))
		return
	}

	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM payment_methods WHERE user_id = ? FOR UPDATE", userID).
			Scan(&existing); err != nil {
			return apperr.Storage("payment.add.count", err)
		}

		query := `
			INSERT INTO payment_methods
			(user_id, provider, provider_token, brand, last4, exp_month, exp_year, cardholder_name, is_default, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`
		result, err := tx.ExecContext(ctx, query,
			pm.UserID, pm.Provider, pm.ProviderToken, pm.Brand, pm.Last4, pm.ExpMonth, pm.ExpYear, pm.CardholderName, pm.CreatedAt)
		if err != nil {
			if database.IsDuplicateEntry(err) {
				return apperr.Conflict("This card is already saved")
			}
			return apperr.Storage("payment.add", err)
		}
		if pm.ID, err = result.LastInsertId(); err != nil {
			return apperr.Storage("payment.add.id", err)
		}

		// The first card becomes the default.
		if input.IsDefault || existing == 0 {
			pm.IsDefault = true
			return setDefaultPaymentMethod(ctx, tx, userID, pm.ID)
		}
		return nil
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Payment method saved", "payment_method": pm})
}

// SetDefaultPaymentMethod is the handler for POST /v1/payment-methods/:id/default
func (h *Handlers) SetDefaultPaymentMethod(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	id, err := paramID(c, "id", "payment method")
	if err != nil {
		h.respondError(c, err)
		return
	}

	err = database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		var found int64
		err := tx.QueryRowContext(ctx, "SELECT id FROM payment_methods WHERE id = ? AND user_id = ? FOR UPDATE", id, userID).
			Scan(&found)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("payment method")
			}
			return apperr.Storage("payment.set_default.lock", err)
		}
		return setDefaultPaymentMethod(ctx, tx, userID, id)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default payment method updated"})
}

// DeletePaymentMethod is the handler for DELETE /v1/payment-methods/:id
func (h *Handlers) DeletePaymentMethod(c *gin.Context) {
	id, err := paramID(c, "id", "payment method")
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(),
		"DELETE FROM payment_methods WHERE id = ? AND user_id = ?", id, currentUser(c))
	if err != nil {
		h.respondError(c, apperr.Storage("payment.delete", err))
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		h.respondError(c, apperr.NotFound("payment method"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Payment method removed"})
}
