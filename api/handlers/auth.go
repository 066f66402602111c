package handlers

import (
	"net/http"

	"github.com/Kyy487/ruangcerita/api/apierrors"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Status string `json:"status"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}

// LoginHandler - stubbed admin credential check
func (h *ChatHandlers) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apierrors.ErrInvalidRequest)
		return
	}
	token, err := h.backend.Admin.Login(req.Name, req.Password)
	if err != nil {
		_ = c.Error(apierrors.Unauthorized("Invalid credentials"))
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Status: "ok", Name: req.Name, Token: token})
}
