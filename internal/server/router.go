package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Arize-ai/phoenix-sub001/internal/handlers"
	"github.com/Arize-ai/phoenix-sub001/internal/middleware"
)

type RouterConfig struct {
	ServiceName string

	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	IngestHandler     *handlers.IngestHandler
	DatasetHandler    *handlers.DatasetHandler
	ExperimentHandler *handlers.ExperimentHandler
	SecretHandler     *handlers.SecretHandler
	PromptHandler     *handlers.PromptHandler
	ModelHandler      *handlers.ModelHandler

	SpanAnnotationHandler     *handlers.AnnotationHandler
	TraceAnnotationHandler    *handlers.AnnotationHandler
	SessionAnnotationHandler  *handlers.AnnotationHandler
	DocumentAnnotationHandler *handlers.AnnotationHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:6006"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/register", cfg.AuthHandler.Register)
	router.POST("/auth/login", cfg.AuthHandler.Login)

	v1 := router.Group("/v1")
	v1.Use(cfg.AuthMiddleware.RequireAuth())

	v1.POST("/projects/:project/spans", cfg.IngestHandler.IngestSpans)

	annotationRoutes(v1, "span_annotations", cfg.SpanAnnotationHandler)
	annotationRoutes(v1, "trace_annotations", cfg.TraceAnnotationHandler)
	annotationRoutes(v1, "session_annotations", cfg.SessionAnnotationHandler)
	annotationRoutes(v1, "document_annotations", cfg.DocumentAnnotationHandler)

	v1.POST("/datasets", cfg.DatasetHandler.Create)
	v1.GET("/datasets/:id/examples", cfg.DatasetHandler.GetExamples)
	v1.POST("/datasets/:id/examples", cfg.DatasetHandler.AddExamples)
	v1.PATCH("/datasets/:id/examples", cfg.DatasetHandler.PatchExamples)
	v1.DELETE("/datasets/:id/examples", cfg.DatasetHandler.DeleteExamples)

	v1.POST("/experiments", cfg.ExperimentHandler.Create)
	v1.POST("/experiments/:id/runs", cfg.ExperimentHandler.RecordRuns)
	v1.GET("/experiments/:id/examples", cfg.ExperimentHandler.GetRevisions)

	v1.PUT("/secrets", cfg.SecretHandler.Set)
	v1.DELETE("/secrets/:name", cfg.SecretHandler.Delete)

	v1.POST("/prompts", cfg.PromptHandler.Create)
	v1.POST("/prompts/:name/versions", cfg.PromptHandler.AddVersion)
	v1.GET("/prompts/:name/versions", cfg.PromptHandler.GetVersions)

	v1.GET("/models", cfg.ModelHandler.List)

	return router
}

func annotationRoutes(group *gin.RouterGroup, path string, handler *handlers.AnnotationHandler) {
	group.POST("/"+path, handler.Create)
	group.PATCH("/"+path, handler.Patch)
	group.DELETE("/"+path, handler.Delete)
}
