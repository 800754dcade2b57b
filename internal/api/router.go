package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	ecoscan "github.com/anatolykoptev/go-ecoscan"
)

// RouterConfig holds the router dependencies.
type RouterConfig struct {
	Logger         *zap.Logger
	Metrics        http.Handler // served at /metrics when set
	RateLimitRPS   float64      // zero disables rate limiting
	RateLimitBurst int
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(1, cfg.RateLimitBurst))
	}

	r := gin.New()
	r.Use(
		RequestIDMiddleware(),
		RecoveryMiddleware(log),
		LoggerMiddleware(log),
		RateLimitMiddleware(limiter),
	)

	r.GET("/health", h.Health)
	r.POST("/predict", h.Predict)
	r.POST("/analyze-marketplace", h.AnalyzeFor(ecoscan.ContextMarketplace))
	r.POST("/analyze-profile", h.AnalyzeFor(ecoscan.ContextProfile))
	r.POST("/analyze-post", h.AnalyzeFor(ecoscan.ContextPost))
	r.POST("/analyze-batch", h.AnalyzeBatch)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorBody("not found"))
	})
	return r
}
