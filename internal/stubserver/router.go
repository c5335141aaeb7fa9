package stubserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-cli/internal/config"
	"github.com/stemsi/exstem-cli/internal/response"
)

// SetupRouter configures the Gin engine with all stub API routes.
func SetupRouter(cfg *config.Config, handler *Handler, issuer *TokenIssuer) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware runs globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", handler.Login)
		auth.POST("/refresh", handler.Refresh)
	}

	api := router.Group("/api/v1")
	api.Use(RequireAuth(issuer))
	{
		api.GET("/users/me", handler.Me)

		api.GET("/exams", handler.ListExams)
		api.GET("/exams/:exam_id", handler.GetExam)
		api.POST("/exams/:exam_id/sessions", handler.StartSession)
		api.GET("/exams/:exam_id/sessions/:session_id", handler.GetSessionDetail)
		api.POST("/exams/:exam_id/submit", handler.SubmitExam)
		api.GET("/exams/:exam_id/sessions/:session_id/result", handler.GetResult)

		// Answer upserts key on the session alone, so they live outside the
		// /exams tree.
		api.PUT("/sessions/:session_id/answers", handler.SaveAnswer)
	}

	return router
}
