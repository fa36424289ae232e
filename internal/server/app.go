package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"digitalparbhani/backend/internal/chat"
	"digitalparbhani/backend/internal/config"
	"digitalparbhani/backend/internal/conversation"
)

const requestIDHeader = "X-Request-ID"

type App struct {
	cfg    config.Config
	chat   *chat.Service
	store  *conversation.Store
	logger *log.Logger
}

func New(cfg config.Config, service *chat.Service, store *conversation.Store, logger *log.Logger) *App {
	return &App{cfg: cfg, chat: service, store: store, logger: logger}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(a.requestLogger(), gin.Recovery())
	router.Use(cors.New(a.corsConfig()))

	router.GET("/health", a.health)
	router.POST("/chat", a.postChat)

	return router
}

func (a *App) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	// Wildcard origins and credentials are mutually exclusive in gin-contrib/cors.
	if len(a.cfg.CORSAllowOrigins) == 0 || lo.Contains(a.cfg.CORSAllowOrigins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = a.cfg.CORSAllowOrigins
	cfg.AllowCredentials = true
	return cfg
}

func (a *App) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		started := time.Now()
		c.Next()

		fields := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(started).Round(time.Millisecond),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "err", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			a.logger.Error("request failed", fields...)
			return
		}
		a.logger.Info("request", fields...)
	}
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"service":       a.cfg.AppName,
		"provider":      a.cfg.AIProvider,
		"conversations": a.store.Users(),
	})
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// statusForError maps service errors onto HTTP statuses. Anything that is not
// a caller mistake surfaces as 500 with the underlying message.
func statusForError(err error) int {
	if errors.Is(err, chat.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
