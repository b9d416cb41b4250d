package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/vespa-learn/activity-api/api/swagger"
	"github.com/vespa-learn/activity-api/internal/dto"
	"github.com/vespa-learn/activity-api/internal/handler"
	"github.com/vespa-learn/activity-api/internal/middleware"
	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/recordstore"
	"github.com/vespa-learn/activity-api/internal/repository"
	"github.com/vespa-learn/activity-api/internal/service"
	"github.com/vespa-learn/activity-api/pkg/cache"
	"github.com/vespa-learn/activity-api/pkg/config"
	"github.com/vespa-learn/activity-api/pkg/jobs"
	"github.com/vespa-learn/activity-api/pkg/logger"
	corsmiddleware "github.com/vespa-learn/activity-api/pkg/middleware/cors"
	reqidmiddleware "github.com/vespa-learn/activity-api/pkg/middleware/requestid"
)

// @title VESPA Activity API
// @version 0.1.0
// @description Student activity player and staff roster console
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidations()

	metricsSvc := service.NewMetricsService()

	store := recordstore.New(cfg.RecordStore, logr, metricsSvc)

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis only backs resume snapshots and the catalog cache; the
		// record store remains the source of truth.
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	activityRepo := repository.NewActivityRepository(store)
	questionRepo := repository.NewQuestionRepository(store)
	responseRepo := repository.NewResponseRepository(store)
	progressRepo := repository.NewProgressRepository(store)
	achievementRepo := repository.NewAchievementRepository(store)
	studentRepo := repository.NewStudentRepository(store)
	catalogRepo := repository.NewCatalogRepository(cfg.Catalog, logr)

	achievementSvc := service.NewAchievementService(achievementRepo, cfg.Achievements.Enabled, logr)
	progressSvc := service.NewProgressService(progressRepo, achievementSvc, logr)
	responseSvc := service.NewResponseService(responseRepo, questionRepo, progressSvc, logr)
	authSvc := service.NewAuthService(cfg.JWT.Secret, logr)
	rosterSvc := service.NewRosterService(studentRepo, activityRepo, progressRepo, logr)

	activitySvc := service.NewActivityService(activityRepo, studentRepo, catalogRepo, cacheRepo, nil, cfg.Catalog.CacheTTL, logr)
	catalogQueue := jobs.NewQueue("catalog", activitySvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.BufferSize,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		Logger:     logr,
	})
	activitySvc.SetQueue(catalogQueue)

	wizardSvc := service.NewWizardService(
		activityRepo,
		questionRepo,
		responseRepo,
		studentRepo,
		cacheRepo,
		wrapSave(responseSvc, metricsSvc),
		service.WizardConfig{
			Debounce:         cfg.Autosave.Debounce,
			AutosaveInterval: cfg.Autosave.Interval,
			GracePeriod:      cfg.Autosave.GracePeriod,
		},
		logr,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalogQueue.Start(rootCtx)
	activitySvc.WarmCatalog(rootCtx)

	activityHandler := handler.NewActivityHandler(activitySvc)
	wizardHandler := handler.NewWizardHandler(wizardSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	achievementHandler := handler.NewAchievementHandler(achievementSvc, progressSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/activities", activityHandler.List)
		api.GET("/activities/:id", activityHandler.Get)
		api.GET("/achievements", achievementHandler.Catalog)

		students := api.Group("/students")
		{
			students.GET("", middleware.RequireRole(models.RoleStaff), rosterHandler.ListStudents)
			students.GET("/:studentId/activities", middleware.RequireRole(models.RoleStaff, "SELF"), activityHandler.ForStudent)
			students.GET("/:studentId/achievements", middleware.RequireRole(models.RoleStaff, "SELF"), achievementHandler.StudentAwards)
			students.GET("/:studentId/progress", middleware.RequireRole(models.RoleStaff, "SELF"), achievementHandler.StudentProgress)
			students.GET("/:studentId/stats", middleware.RequireRole(models.RoleStaff, "SELF"), achievementHandler.StudentStats)

			students.GET("/:studentId/roster", middleware.RequireRole(models.RoleStaff), rosterHandler.Link)
			students.POST("/:studentId/roster", middleware.RequireRole(models.RoleStaff), rosterHandler.Assign)
			students.DELETE("/:studentId/roster/:activityId", middleware.RequireRole(models.RoleStaff), rosterHandler.Unassign)
			students.POST("/:studentId/roster/:activityId/complete", middleware.RequireRole(models.RoleStaff), rosterHandler.MarkComplete)
			students.DELETE("/:studentId/roster/:activityId/complete", middleware.RequireRole(models.RoleStaff), rosterHandler.UnmarkComplete)
		}

		wizard := api.Group("/wizard", middleware.RequireRole(models.RoleStudent))
		{
			wizard.POST("/sessions", wizardHandler.Start)
			wizard.GET("/sessions/:sessionId", wizardHandler.State)
			wizard.POST("/sessions/:sessionId/answers", wizardHandler.Answer)
			wizard.POST("/sessions/:sessionId/navigate", wizardHandler.Navigate)
			wizard.POST("/sessions/:sessionId/next-page", wizardHandler.NextPage)
			wizard.POST("/sessions/:sessionId/prev-page", wizardHandler.PrevPage)
			wizard.POST("/sessions/:sessionId/exit", wizardHandler.Exit)
			wizard.POST("/sessions/:sessionId/complete", wizardHandler.Complete)
		}

		admin := api.Group("/admin", middleware.RequireRole(models.RoleStaff))
		{
			admin.POST("/catalog/refresh", activityHandler.RefreshCatalog)
			admin.GET("/metrics", metricsHandler.Snapshot)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown", "error", err)
	}
	wizardSvc.Shutdown()
	catalogQueue.Stop()
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck
	}
}

// wrapSave feeds save outcomes into the metrics service on the way through.
func wrapSave(responses *service.ResponseService, metrics *service.MetricsService) service.SaveFunc {
	return func(ctx context.Context, p service.SavePayload) (*service.SaveOutcome, error) {
		outcome, err := responses.Save(ctx, p)
		metrics.RecordSave(err == nil)
		return outcome, err
	}
}
