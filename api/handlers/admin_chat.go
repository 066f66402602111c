package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kyy487/ruangcerita/api/apierrors"
	"github.com/Kyy487/ruangcerita/api/middleware"
	"github.com/Kyy487/ruangcerita/models"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/gin-gonic/gin"
)

type ReplyRequest struct {
	Text string `json:"text" binding:"required"`
}

func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(apierrors.BadRequest("Invalid message id"))
		return 0, false
	}
	return id, true
}

func findMessage(msgs []models.Message, id int64) (models.Message, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m, true
		}
	}
	return models.Message{}, false
}

// ListAdminMessagesHandler - moderation view filtered by ?user=<name|all>
func (h *ChatHandlers) ListAdminMessagesHandler(c *gin.Context) {
	selector := c.DefaultQuery("user", services.FilterAll)
	c.JSON(http.StatusOK, services.AdminProjection(h.backend.Store.Messages(), selector))
}

// ListSendersHandler - user list with unread badges
func (h *ChatHandlers) ListSendersHandler(c *gin.Context) {
	msgs := h.backend.Store.Messages()
	c.JSON(http.StatusOK, gin.H{
		"senders": services.Summarize(msgs),
		"unread":  services.UnreadCount(msgs),
		"total":   len(msgs),
	})
}

// ReplyHandler - answer one message
func (h *ChatHandlers) ReplyHandler(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		_ = c.Error(apierrors.BadRequest("Reply text must not be blank"))
		return
	}

	start := time.Now()
	changed, err := h.backend.Store.Reply(c.Request.Context(), id, req.Text, c.GetString(middleware.ContextAdminName))
	h.record("reply", start, changed, err)
	if err != nil {
		_ = c.Error(storeError(err))
		return
	}

	msg, found := findMessage(h.backend.Store.Messages(), id)
	switch {
	case !found:
		_ = c.Error(apierrors.NotFound("Message not found"))
		return
	case !changed:
		c.JSON(http.StatusConflict, gin.H{"error": "Message already answered", "data": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Reply sent",
		"data":    msg,
	})
}

// DeleteMessageHandler - remove a message; requires ?confirm=true
func (h *ChatHandlers) DeleteMessageHandler(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	if confirmed, _ := strconv.ParseBool(c.Query("confirm")); !confirmed {
		_ = c.Error(apierrors.ErrConfirmationRequired)
		return
	}

	start := time.Now()
	changed, err := h.backend.Store.Delete(c.Request.Context(), id)
	h.record("delete", start, changed, err)
	if err != nil {
		_ = c.Error(storeError(err))
		return
	}
	if !changed {
		_ = c.Error(apierrors.NotFound("Message not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}
