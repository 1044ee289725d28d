package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/address"
	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone,
	marketing_opt_in, order_emails, created_at, updated_at`

func (h *Handlers) getUser(ctx context.Context, q database.Querier, userID int64) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", userID).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone,
		&u.MarketingOptIn, &u.OrderEmails, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("account")
		}
		return nil, apperr.Storage("user.get", err)
	}
	return &u, nil
}

// GetSettings is the handler for GET /v1/account/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	user, err := h.getUser(c.Request.Context(), h.DB, currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateSettingsInput is the profile form. Nil preferences are left as-is.
type UpdateSettingsInput struct {
	FirstName      string  `json:"first_name" binding:"required,max=100"`
	LastName       string  `json:"last_name" binding:"required,max=100"`
	Phone          *string `json:"phone"`
	MarketingOptIn *bool   `json:"marketing_opt_in"`
	OrderEmails    *bool   `json:"order_emails"`
}

// UpdateSettings is the handler for PUT /v1/account/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input UpdateSettingsInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	var phone *string
	if input.Phone != nil {
		if p := strings.TrimSpace(*input.Phone); p != "" {
			if !address.ValidPhone(p) {
				h.respondError(c, apperr.Validation("phone", "phone number is invalid"))
				return
			}
			phone = &p
		}
	}

	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		user, err := h.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		user.FirstName = strings.TrimSpace(input.FirstName)
		user.LastName = strings.TrimSpace(input.LastName)
		if input.Phone != nil {
			user.Phone = phone
		}
		if input.MarketingOptIn != nil {
			user.MarketingOptIn = *input.MarketingOptIn
		}
		if input.OrderEmails != nil {
			user.OrderEmails = *input.OrderEmails
		}

		query := `
			UPDATE users
			SET first_name = ?, last_name = ?, phone = ?, marketing_opt_in = ?, order_emails = ?, updated_at = ?
			WHERE id = ?`
		_, err = tx.ExecContext(ctx, query,
			user.FirstName, user.LastName, user.Phone, user.MarketingOptIn, user.OrderEmails, h.Now(), userID)
		return apperr.Storage("user.settings", err)
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Settings saved"})
}

// ChangePasswordInput is the change-password form.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" binding:"required,eqfield=NewPassword"`
}

// ChangePassword is the handler for PUT /v1/account/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	userID := currentUser(c)
	ctx := c.Request.Context()

	var input ChangePasswordInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	err := database.WithTx(ctx, h.DB, nil, func(tx *sql.Tx) error {
		user, err := h.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		current := models.Password{Hash: user.PasswordHash}
		match, err := current.Matches(input.CurrentPassword)
		if err != nil {
			return apperr.Storage("user.password.compare", err)
		}
		if !match {
			return apperr.Validation("current_password", "Current password is incorrect")
		}

		var next models.Password
		if err := next.Set(input.NewPassword); err != nil {
			return apperr.Storage("user.password.hash", err)
		}

		_, err = tx.ExecContext(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?", next.Hash, h.Now(), userID)
		if err != nil {
			return apperr.Storage("user.password", err)
		}
		return h.AddNotification(ctx, tx, userID, models.NotificationAccount, "Your password was changed.", "")
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
