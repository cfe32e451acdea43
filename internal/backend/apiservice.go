package backend

import (
	"net/http"

	"github.com/jo-hoe/imagehost/internal/auth"
	"github.com/jo-hoe/imagehost/internal/core"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const tokenCookieName = "token"

type APIService struct {
	config       *core.ServiceConfig
	imageService *core.ImageService
	authService  *auth.Service
}

func NewAPIService(config *core.ServiceConfig, imageService *core.ImageService, authService *auth.Service) *APIService {
	return &APIService{
		config:       config,
		imageService: imageService,
		authService:  authService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})

	api := e.Group(s.config.PathPrefix)
	requireAuth := s.requireAuth

	api.GET("", s.helloHandler)
	api.POST("/register", s.registerHandler)
	api.POST("/login", s.loginHandler)
	api.POST("/logout", s.logoutHandler, requireAuth)

	api.POST("/upload", s.uploadHandler, requireAuth, middleware.BodyLimit(s.config.Upload.MaxSize))
	api.GET("/images", s.listImagesHandler, requireAuth)
	api.GET("/:id", s.getImageHandler, requireAuth)
	api.PUT("/image/:id", s.updateImageHandler, requireAuth)
	api.GET("/:id/download", s.downloadImageHandler, requireAuth)
	api.DELETE("/:id", s.deleteImageHandler, requireAuth)
}

func (s *APIService) helloHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Hello World!")
}
