package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/middleware"
	"access-tool/internal/common/validation"
)

const APIPrefix = "/api/v1"

type RouterOptions struct {
	// Пустой Origin разрешает любые источники
	Origin    string
	AccessLog zerolog.Logger
	Logger    *zap.Logger
	// Sandbox mounts the unauthenticated helpers under /api/v1/sandbox.
	Sandbox bool
}

var registerValidation sync.Once

// NewRouter builds the gin engine serving h under /api/v1.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registerValidation.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			validation.Register(v)
		}
	})

	router := gin.New()

	// Порядок важен: RequestID нужен логгеру и обработчику ошибок
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(opts.AccessLog))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.HandleErrors(logger))

	corsConfig := cors.DefaultConfig()
	if opts.Origin == "" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{opts.Origin}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group(APIPrefix)
	h.RegisterRoutes(v1)
	if opts.Sandbox {
		h.RegisterSandboxRoutes(v1)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "access-sandbox",
		})
	})

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.New(apperrors.ErrCodeNotFound, "Not Found"))
	})

	return router
}
