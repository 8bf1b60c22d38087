package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/surveychain/backend/internal/analytics"
	"github.com/surveychain/backend/internal/auth"
	"github.com/surveychain/backend/internal/exports"
	"github.com/surveychain/backend/internal/ledger"
	"github.com/surveychain/backend/internal/middleware"
	"github.com/surveychain/backend/internal/notifications"
	"github.com/surveychain/backend/internal/realtime"
	"github.com/surveychain/backend/internal/screening"
	"github.com/surveychain/backend/internal/surveys"
	"github.com/surveychain/backend/pkg/response"
)

type routerDeps struct {
	ledger        *ledger.Ledger
	jwt           *auth.JWTService
	hub           *realtime.Hub
	notifications *notifications.Service
	objectStore   exports.ObjectStore // nil: exports are returned inline
	corsOrigins   []string
	logger        *zap.Logger
}

func newRouter(d routerDeps) *gin.Engine {
	authHandler := auth.NewHandler(d.jwt, d.logger)
	surveyHandler := surveys.NewHandler(d.ledger, d.logger)
	screeningHandler := screening.NewHandler(d.ledger, d.logger)
	analyticsHandler := analytics.NewHandler(d.ledger, d.hub, d.logger)
	exportHandler := exports.NewHandler(d.ledger, d.objectStore, d.logger)
	notificationHandler := notifications.NewHandler(d.notifications, d.logger)

	jwtValidate := func(token string) (string, error) {
		claims, err := d.jwt.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.Address, nil
	}
	versionLookup := func(ctx context.Context, surveyID string) (int64, error) {
		s, err := d.ledger.GetSurveyByID(ctx, surveyID)
		if err != nil {
			return 0, err
		}
		return s.Version, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.corsOrigins))
	router.Use(middleware.Logger(d.logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/session", authHandler.Session)

	// Public survey reads
	router.GET("/surveys", surveyHandler.List)
	router.GET("/surveys/:id", surveyHandler.Get)
	router.GET("/surveys/:id/settlement", surveyHandler.Settlement)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(d.jwt))
	{
		// Surveys
		api.POST("/surveys", surveyHandler.Create)
		api.PATCH("/surveys/:id", surveyHandler.Update)
		api.GET("/surveys/:id/access", surveyHandler.Access)
		api.POST("/surveys/:id/responses", surveyHandler.Submit)
		api.POST("/surveys/:id/finalize", surveyHandler.Finalize)
		api.GET("/surveys/:id/analytics", analyticsHandler.GetBySurvey)
		api.POST("/surveys/:id/export", exportHandler.Export)

		// Screening
		api.POST("/surveys/:id/applications", screeningHandler.Apply)
		api.POST("/surveys/:id/applicants/:address/accept", screeningHandler.Accept)
		api.POST("/surveys/:id/applicants/:address/reject", screeningHandler.Reject)
		api.POST("/surveys/:id/open", screeningHandler.Open)

		// Caller's surveys
		api.GET("/me/surveys/created", surveyHandler.Created)
		api.GET("/me/surveys/answered", surveyHandler.Answered)
		api.GET("/me/surveys/applied", surveyHandler.Applied)
		api.GET("/me/dashboard", analyticsHandler.Dashboard)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
		api.DELETE("/notifications", notificationHandler.Clear)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(d.hub, d.logger, jwtValidate, versionLookup))

	return router
}
