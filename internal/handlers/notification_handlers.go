package handlers

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/01moynul/homewareontap-golang/internal/apperr"
	"github.com/01moynul/homewareontap-golang/internal/database"
	"github.com/01moynul/homewareontap-golang/internal/models"
	"github.com/gin-gonic/gin"
)

//
// --- Notification Handlers ---
//

// AddNotification inserts a notification for userID. It is called by other
// handlers from inside their transaction so the notice commits with the change.
func (h *Handlers) AddNotification(ctx context.Context, q database.Querier, userID int64, kind, message, link string) error {
	var nullLink sql.NullString
	if link != "" {
		nullLink = sql.NullString{String: link, Valid: true}
	}

	query := `
		INSERT INTO notifications
		(user_id, type, message, link, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`

	if _, err := q.ExecContext(ctx, query, userID, kind, message, nullLink, h.Now()); err != nil {
		return apperr.Storage("notification.add", err)
	}
	return nil
}

// GetMyNotifications is the handler for GET /v1/notifications
// Unread first, then newest first.
func (h *Handlers) GetMyNotifications(c *gin.Context) {
	userID := currentUser(c)

	query := `
		SELECT id, user_id, type, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`

	rows, err := h.DB.QueryContext(c.Request.Context(), query, userID)
	if err != nil {
		h.respondError(c, apperr.Storage("notification.list", err))
		return
	}
	defer rows.Close()

	notifications := []models.Notification{}
	unread := 0
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			h.respondError(c, apperr.Storage("notification.list.scan", err))
			return
		}
		if !n.IsRead {
			unread++
		}
		notifications = append(notifications, n)
	}
	if err = rows.Err(); err != nil {
		h.respondError(c, apperr.Storage("notification.list.rows", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

func (h *Handlers) unreadNotificationCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := h.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID).Scan(&n)
	return n, apperr.Storage("notification.unread_count", err)
}

// GetUnreadNotificationCount is the handler for GET /v1/notifications/unread-count
// It feeds the header badge.
func (h *Handlers) GetUnreadNotificationCount(c *gin.Context) {
	n, err := h.unreadNotificationCount(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": n})
}

// MarkNotificationAsRead is the handler for PATCH /v1/notifications/:id/read
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	userID := currentUser(c)
	notificationID, err := paramID(c, "id", "notification")
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Scoped by user_id so one customer cannot touch another's notifications.
	query := `
		UPDATE notifications
		SET is_read = 1
		WHERE id = ? AND user_id = ?`

	result, err := h.DB.ExecContext(c.Request.Context(), query, notificationID, userID)
	if err != nil {
		h.respondError(c, apperr.Storage("notification.mark_read", err))
		return
	}
	if rowsAffected, err := result.RowsAffected(); err != nil {
		h.respondError(c, apperr.Storage("notification.mark_read.rows", err))
		return
	} else if rowsAffected == 0 {
		h.respondError(c, apperr.NotFound("notification"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllNotificationsAsRead is the handler for PATCH /v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsAsRead(c *gin.Context) {
	userID := currentUser(c)

	result, err := h.DB.ExecContext(c.Request.Context(),
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		h.respondError(c, apperr.Storage("notification.mark_all_read", err))
		return
	}
	updated, _ := result.RowsAffected()

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

// DeleteNotification is the handler for DELETE /v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID := currentUser(c)
	notificationID, err := paramID(c, "id", "notification")
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.DB.ExecContext(c.Request.Context(),
		"DELETE FROM notifications WHERE id = ? AND user_id = ?", notificationID, userID)
	if err != nil {
		h.respondError(c, apperr.Storage("notification.delete", err))
		return
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		h.respondError(c, apperr.NotFound("notification"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}
