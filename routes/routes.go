package routes

import (
	"net/http"
	"time"

	"courtside/handlers"
	"courtside/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes sets up the booking lifecycle endpoints. Owner-side
// decisions (accept, reject) require the owner role.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("", hb.Booking.CreateBookingHandler)
		api.GET("", hb.Booking.ListBookingsHandler)
		api.GET("/:id", hb.Booking.GetBookingHandler)
		api.GET("/:id/watch", hb.Booking.WatchBookingHandler)
		api.POST("/:id/proof", hb.Booking.UploadProofHandler)
		api.POST("/:id/cancel", hb.Booking.CancelBookingHandler)

		owner := api.Group("")
		owner.Use(middleware.RequireRole("owner"))
		owner.POST("/:id/accept", hb.Booking.AcceptBookingHandler)
		owner.POST("/:id/reject", hb.Booking.RejectBookingHandler)
		owner.POST("/:id/complete", hb.Booking.CompleteBookingHandler)
		owner.POST("/:id/no-show", hb.Booking.NoShowBookingHandler)
	}
}

// RegisterAnalyticsRoutes sets up the venue owner reporting endpoints.
func RegisterAnalyticsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/venues")
	{
		api.Use(middleware.JWTAuthMiddleware(), middleware.RequireRole("owner"))
		api.GET("/:id/analytics", hb.Analytics.VenueReportHandler)
	}
}

// RegisterDeviceRoutes sets up push token registration.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/token", hb.Device.SetTokenHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterAnalyticsRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
}
