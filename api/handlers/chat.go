package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Kyy487/ruangcerita/api/apierrors"
	"github.com/Kyy487/ruangcerita/api/middleware"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/gin-gonic/gin"
)

// ChatHandlers serves the user chat view and the admin console over one
// process-level backend.
type ChatHandlers struct {
	backend *services.Backend
	service string
}

func NewChatHandlers(backend *services.Backend, serviceName string) *ChatHandlers {
	return &ChatHandlers{
		backend: backend,
		service: serviceName,
	}
}

func (h *ChatHandlers) record(operation string, start time.Time, changed bool, err error) {
	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case !changed:
		status = "noop"
	}
	middleware.RecordChatOperation(operation, status, h.service, time.Since(start), err)
}

// storeError maps store failures onto API errors.
func storeError(err error) error {
	if errors.Is(err, services.ErrWriteConflict) {
		return apierrors.ErrWriteConflict
	}
	return err
}

type SetNameRequest struct {
	Name string `json:"name" binding:"required"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// GetNameHandler - current display name of the session
func (h *ChatHandlers) GetNameHandler(c *gin.Context) {
	name, ok, err := h.backend.Session.DisplayName(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "set": ok})
}

// SetNameHandler - choose the display name before chatting
func (h *ChatHandlers) SetNameHandler(c *gin.Context) {
	var req SetNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apierrors.ErrInvalidRequest)
		return
	}
	ok, err := h.backend.Session.SetDisplayName(c.Request.Context(), c.GetString(middleware.ContextSessionID), req.Name)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apierrors.BadRequest("Name must not be blank"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": req.Name})
}

// ClearNameHandler - forget the display name and start over
func (h *ChatHandlers) ClearNameHandler(c *gin.Context) {
	if err := h.backend.Session.ClearDisplayName(c.Request.Context(), c.GetString(middleware.ContextSessionID)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// SendMessageHandler - submit a message under the session's display name
func (h *ChatHandlers) SendMessageHandler(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		_ = c.Error(apierrors.BadRequest("Message text must not be blank"))
		return
	}

	start := time.Now()
	msg, err := h.backend.Session.Submit(c.Request.Context(), h.backend.Store, c.GetString(middleware.ContextSessionID), req.Text)
	h.record("append", start, msg != nil, err)
	switch {
	case errors.Is(err, services.ErrDisplayNameRequired):
		_ = c.Error(apierrors.ErrDisplayNameRequired)
		return
	case err != nil:
		_ = c.Error(storeError(err))
		return
	case msg == nil:
		_ = c.Error(apierrors.ErrInvalidRequest)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent",
		"data":    msg,
	})
}

// ListMessagesHandler - the session's own messages with their replies
func (h *ChatHandlers) ListMessagesHandler(c *gin.Context) {
	name, ok, err := h.backend.Session.DisplayName(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apierrors.ErrDisplayNameRequired)
		return
	}
	c.JSON(http.StatusOK, services.UserProjection(h.backend.Store.Messages(), name))
}
