package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//
// --- Role-Based Middleware ---
//
// RequireRole runs AFTER AuthMiddleware. It reads the caller's role from
// the users table on every request, so a demotion takes effect immediately.
//

// User roles.
const (
	RoleCustomer      = "customer"
	RoleManager       = "manager"
	RoleAdministrator = "administrator"
)

const roleKey = "userRole"

// RoleLookup returns the role of a user. sql.ErrNoRows means no such user.
type RoleLookup func(ctx context.Context, userID int64) (string, error)

// DBRoleLookup reads users.role.
func DBRoleLookup(db *sql.DB) RoleLookup {
	return func(ctx context.Context, userID int64) (string, error) {
		var role string
		err := db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = ?", userID).Scan(&role)
		return role, err
	}
}

// RequireRole lets the request through only when the caller has one of roles.
func RequireRole(lookup RoleLookup, log *zap.Logger, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := UserID(c)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		role, err := lookup(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user"})
				return
			}
			log.Error("role lookup failed", zap.Int64("user_id", userID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error checking role"})
			return
		}

		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Set(roleKey, role)
		c.Next()
	}
}

// Role returns the role stored by RequireRole, or "" on routes without it.
func Role(c *gin.Context) string {
	return c.GetString(roleKey)
}
