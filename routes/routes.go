package routes

import (
	"slices"
	"time"

	"handyhub/handlers"
	"handyhub/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSocketRoute mounts the websocket endpoint.
func RegisterSocketRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/ws", hb.ServeWS)
}

// RegisterHealthRoute mounts the health check.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
}

// RegisterRecordRoutes mounts the durable record reads.
func RegisterRecordRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/records")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/booking/:bookingId", hb.GetRecordByBooking)
		api.GET("/id/:recordId", hb.GetRecordByID)
		api.GET("/user/:id", hb.ListUserRecords)
		api.GET("/provider/:id", hb.ListProviderRecords)
	}
}

// RegisterSessionRoutes mounts the live session snapshot.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sessions")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/:bookingId", hb.GetSession)
	}
}

// RegisterMessageRoutes mounts the chat history read.
func RegisterMessageRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/messages")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("/:conversationId", hb.GetConversation)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, allowedOrigins []string) {
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	RegisterSocketRoute(r, hb)
	RegisterHealthRoute(r, hb)
	RegisterRecordRoutes(r, hb)
	RegisterSessionRoutes(r, hb)
	RegisterMessageRoutes(r, hb)
}
