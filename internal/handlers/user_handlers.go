package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

// --- User Registration ---

// RegisterInput is the sign-up form. It is separate from models.User so a
// client cannot set ids or flags.
type RegisterInput struct {
	FirstName      string `json:"first_name" binding:"required,max=100"`
	LastName       string `json:"last_name" binding:"required,max=100"`
	Email          string `json:"email" binding:"required,email,max=255"`
	Password       string `json:"password" binding:"required,min=8,max=72"`
	MarketingOptIn bool   `json:"marketing_opt_in"`
}

// Register is the handler for POST /v1/register.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	now := h.Now()
	user := &models.User{
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		MarketingOptIn: input.MarketingOptIn,
		OrderEmails:    true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		h.respondError(c, apperr.Storage("user.register.hash", err))
		return
	}
	user.PasswordHash = password.Hash

	query := `
		INSERT INTO users
		(email, password_hash, first_name, last_name, marketing_opt_in, order_emails, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := h.DB.ExecContext(c.Request.Context(), query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.MarketingOptIn, user.OrderEmails, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsDuplicateEntry(err) {
			h.respondError(c, apperr.Conflict("An account with this email address already exists"))
			return
		}
		h.respondError(c, apperr.Storage("user.register", err))
		return
	}
	if user.ID, err = result.LastInsertId(); err != nil {
		h.respondError(c, apperr.Storage("user.register.id", err))
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		h.respondError(c, apperr.Storage("user.register.token", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully",
		"token":   token,
		"user":    user,
	})
}

// --- User Login ---

// LoginInput defines the JSON data expected for a login.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /v1/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := bindJSON(c, &input); err != nil {
		h.respondError(c, err)
		return
	}

	var user models.User
	query := "SELECT id, password_hash FROM users WHERE email = ?"
	err := h.DB.QueryRowContext(c.Request.Context(), query, strings.ToLower(strings.TrimSpace(input.Email))).
		Scan(&user.ID, &user.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.respondError(c, apperr.Storage("user.login", err))
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		h.respondError(c, apperr.Storage("user.login.compare", err))
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		h.respondError(c, apperr.Storage("user.login.token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token})
}
