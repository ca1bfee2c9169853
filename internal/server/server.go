package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"todoer/internal/board"
	"todoer/internal/docstore"
	"todoer/internal/repository"
	"todoer/internal/session"
)

// Deps are the long-lived components the HTTP shell presents.
type Deps struct {
	Session *session.Session
	Auth    *session.Authenticator
	Lists   *repository.Lists
	Tasks   *repository.Tasks
	Board   *board.Live
	Alerts  *Alerts
}

// Server provides HTTP handlers for the board.
type Server struct {
	engine    *gin.Engine
	session   *session.Session
	auth      *session.Authenticator
	lists     *repository.Lists
	tasks     *repository.Tasks
	board     *board.Live
	alerts    *Alerts
	logger    *slog.Logger
	staticDir string
}

// New constructs the HTTP server with routes and middleware configured.
func New(deps Deps, logger *slog.Logger, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Alerts == nil {
		deps.Alerts = NewAlerts(logger)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/api/healthz", "/api/board/stream"))

	srv := &Server{
		engine:    router,
		session:   deps.Session,
		auth:      deps.Auth,
		lists:     deps.Lists,
		tasks:     deps.Tasks,
		board:     deps.Board,
		alerts:    deps.Alerts,
		logger:    logger,
		staticDir: staticDir,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		api.GET("/session", s.handleGetSession)
		api.POST("/session", s.handleSignIn)
		api.DELETE("/session", s.handleSignOut)

		authed := api.Group("", s.requireSession)

		boardGroup := authed.Group("/board")
		{
			boardGroup.GET("", s.handleGetBoard)
			boardGroup.GET("/stream", s.handleBoardStream)
			boardGroup.PUT("/selection", s.handleSelect)
		}

		lists := authed.Group("/lists")
		{
			lists.GET("", s.handleListLists)
			lists.POST("", s.handleCreateList)
			lists.PUT(":id", s.handleUpdateList)
			lists.DELETE(":id", s.handleDeleteList)
		}

		tasks := authed.Group("/tasks")
		{
			tasks.GET("", s.handleListTasks)
			tasks.POST("", s.handleCreateTask)
			tasks.PUT(":id/title", s.handleUpdateTitle)
			tasks.POST(":id/cycle", s.handleCycleStatus)
			tasks.PUT(":id/details", s.handleUpdateDetails)
			tasks.DELETE(":id", s.handleDeleteTask)
		}
	}

	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireSession rejects requests while nobody is signed in.
func (s *Server) requireSession(c *gin.Context) {
	if _, ok := s.session.Current(); !ok {
		s.respondError(c, http.StatusUnauthorized, session.ErrUnauthenticated)
		c.Abort()
		return
	}
	c.Next()
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repository.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrUnauthorizedEmail), errors.Is(err, docstore.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status matching err.
func (s *Server) fail(c *gin.Context, err error) {
	s.respondError(c, statusFor(err), err)
}

// respondError logs the error and returns a JSON payload.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	} else {
		s.logger.Debug("request rejected", slog.String("path", c.FullPath()), slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
