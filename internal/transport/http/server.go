package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"framecoach/internal/ai"
	appsvc "framecoach/internal/app"
	"framecoach/internal/bootstrap"
	"framecoach/internal/cache"
	"framecoach/internal/platform/rabbitmq"
	"framecoach/internal/repository"
	"framecoach/internal/transport/http/handler"
	"framecoach/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.DB)
	analysisRepo := repository.NewAnalysisRepository(app.DB)
	editRepo := repository.NewEditRepository(app.DB)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	critiqueService := appsvc.NewCritiqueService(
		analysisRepo,
		rabbitmq.NewAnalysisPublisher(app.MQConn, app.Config.RabbitMQ.AnalysisPersistQueue),
		cache.NewCritiqueCache(app.Redis, time.Duration(app.Config.Redis.CritiqueTTLSeconds)*time.Second),
		ai.NewGeminiClient(),
		app.Files,
		ai.GenerateConfig{
			BaseURL:     app.Config.LLM.BaseURL,
			APIKey:      app.Config.LLM.APIKey,
			Model:       app.Config.LLM.CritiqueModel,
			Temperature: app.Config.LLM.Temperature,
		},
		app.Config.Upload.MaxBytes,
	)
	editService := appsvc.NewEditService(analysisRepo, editRepo, editorOrNil(app), app.Files)

	authHandler := handler.NewAuthHandler(authService)
	photoHandler := handler.NewPhotoHandler(critiqueService, app.Config.Upload.MaxBytes)
	editHandler := handler.NewEditHandler(editService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	photoGroup := v1.Group("/photos")
	photoGroup.Use(middleware.OptionalAuthJWT(app.Config.Auth.JWTSecret))
	photoGroup.POST("/analyze", photoHandler.Analyze)
	photoGroup.GET("/analyses", photoHandler.History)
	photoGroup.GET("/analyses/:hash", photoHandler.GetByHash)
	photoGroup.DELETE("/analyses/:id", photoHandler.Delete)
	photoGroup.POST("/edits", editHandler.Create)
	photoGroup.GET("/edits/:hash", editHandler.ListByHash)

	return router
}

// editorOrNil keeps the edit pipeline optional: without an API key or edit
// model the service still produces the local enhancement variants.
func editorOrNil(app *bootstrap.App) appsvc.ImageEditor {
	if app.ImageEditor == nil {
		return nil
	}
	return app.ImageEditor
}
