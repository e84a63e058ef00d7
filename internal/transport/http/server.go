package http

import (
	"github.com/gin-gonic/gin"

	"legaldesk/internal/bootstrap"
	"legaldesk/internal/pkg/logger"
	"legaldesk/internal/transport/http/handler"
	"legaldesk/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	httpLog := logger.Named("http")
	router.Use(
		middleware.Recovery(httpLog),
		middleware.AccessLog(httpLog, app.Metrics),
		middleware.CORS(app.Config.App.CORSOrigins),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(app.Metrics.Handler()))

	caseHandler := handler.NewCaseHandler(app.Cases, app.Reports)
	photoHandler := handler.NewPhotoHandler(app.Photos)
	fileHandler := handler.NewFileHandler(app.Files)
	chatHandler := handler.NewChatHandler(app.Chat)

	api := router.Group("/api")

	cases := api.Group("/cases")
	cases.GET("", caseHandler.List)
	cases.POST("", caseHandler.Create)
	cases.GET("/archived", caseHandler.ListArchived)
	cases.GET("/:id", caseHandler.Get)
	cases.PUT("/:id", caseHandler.Update)
	cases.DELETE("/:id", caseHandler.Delete)
	cases.POST("/:id/archive", caseHandler.Archive)
	cases.POST("/:id/restore", caseHandler.Restore)
	cases.GET("/:id/pdf", caseHandler.TranscriptionPDF)
	cases.GET("/:id/chat", chatHandler.GetHistory)
	cases.POST("/:id/chat", chatHandler.SendMessage)
	cases.GET("/:id/sessions", chatHandler.ListSessions)
	cases.POST("/:id/sessions/close", chatHandler.CloseSession)
	cases.GET("/:id/additional-files", fileHandler.List)

	photos := api.Group("/photos")
	photos.POST("/upload", photoHandler.Upload)
	photos.GET("/:id/ocr-status", photoHandler.OCRStatus)
	photos.GET("/:id/ocr-details", photoHandler.OCRDetails)
	photos.GET("/:id/view", photoHandler.View)
	photos.GET("/:id/comments", photoHandler.ListComments)
	photos.POST("/:id/comments", photoHandler.AddComment)

	files := api.Group("/additional-files")
	files.POST("/upload", fileHandler.Upload)
	files.GET("/:id/download", fileHandler.Download)
	files.DELETE("/:id", fileHandler.Delete)

	return router
}
