package api

import (
	"peermatch-service/internal/middleware"
	"peermatch-service/internal/service"
	"peermatch-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}

	r.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	matchGroup := r.Group("/match")
	matchGroup.Use(middleware.AuthRequired())
	{
		matchGroup.POST("/join", handler.JoinQueue)
		matchGroup.POST("/leave", handler.LeaveQueue)
		matchGroup.GET("/status/:userId", handler.GetStatus)
		matchGroup.POST("/disconnect", handler.HandleDisconnect)
	}
}
