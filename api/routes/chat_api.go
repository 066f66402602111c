package routes

import (
	"net/http"

	"github.com/Kyy487/ruangcerita/api/handlers"
	"github.com/Kyy487/ruangcerita/api/middleware"
	"github.com/Kyy487/ruangcerita/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatApi registers the user chat and admin moderation endpoints.
func ChatApi(router *gin.Engine, backend *services.Backend, serviceName string) *gin.RouterGroup {
	h := handlers.NewChatHandlers(backend, serviceName)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "views": backend.Views.Count()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1/")

	chat := api.Group("chat/", middleware.SessionMiddleware())
	{
		chat.GET("name", h.GetNameHandler)
		chat.PUT("name", h.SetNameHandler)
		chat.DELETE("name", h.ClearNameHandler)
		chat.GET("messages", h.ListMessagesHandler)
		chat.POST("messages", h.SendMessageHandler)
		chat.GET("ws", h.UserWSHandler)
	}

	api.POST("admin/login", h.LoginHandler)
	admin := api.Group("admin/", middleware.AdminAuthMiddleware(backend.Admin))
	{
		admin.GET("messages", h.ListAdminMessagesHandler)
		admin.GET("senders", h.ListSendersHandler)
		admin.POST("messages/:id/reply", h.ReplyHandler)
		admin.DELETE("messages/:id", h.DeleteMessageHandler)
		admin.GET("ws", h.AdminWSHandler)
	}
	return api
}

// NewRouter builds the engine with the shared middleware chain.
func NewRouter(backend *services.Backend, serviceName string, corsOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.PrometheusMiddleware(serviceName))
	router.Use(middleware.ErrorHandlerMiddleware())
	router.Use(middleware.CORSMiddleware(corsOrigins))

	ChatApi(router, backend, serviceName)
	return router
}
