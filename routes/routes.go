package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"posterminal/auth"
	"posterminal/controllers"
	"posterminal/middleware"
)

type Handlers struct {
	Gate         *auth.Gate
	LoginLimiter *middleware.RateLimiter
	Auth         *controllers.AuthController
	Items        *controllers.ItemController
	Orders       *controllers.OrderController
}

func InitializeRoutes(router *gin.Engine, h Handlers) {
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := router.Group("/api")

	login := []gin.HandlerFunc{h.Auth.Login}
	if h.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{h.LoginLimiter.Handler()}, login...)
	}
	api.POST("/auth/login", login...)
	api.POST("/auth/logout", h.Auth.Logout)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(h.Gate))
	{
		protected.GET("/auth/verify", h.Auth.Verify)

		protected.GET("/items", h.Items.ListItems)
		protected.POST("/items", h.Items.CreateItem)
		protected.GET("/items/:id", h.Items.GetItem)
		protected.PUT("/items/:id", h.Items.UpdateItem)
		protected.DELETE("/items/:id", h.Items.DeleteItem)

		protected.GET("/deleted-items", h.Items.ListDeletedItems)
		protected.POST("/deleted-items/:id/restore", h.Items.RestoreItem)
		protected.DELETE("/deleted-items/:id", h.Items.PurgeItem)

		protected.GET("/orders", h.Orders.ListPending)
		protected.POST("/orders", h.Orders.SubmitOrder)
		protected.GET("/orders/:id", h.Orders.GetOrder)
		protected.PUT("/orders/:id/total", h.Orders.AdjustTotal)
		protected.PUT("/orders/:id/discount", h.Orders.ApplyDiscount)
		protected.POST("/orders/:id/complete", h.Orders.CompleteOrder)
		protected.DELETE("/orders/:id", h.Orders.DeleteOrder)

		protected.GET("/completed-orders", h.Orders.CompletedOrders)
	}
}
