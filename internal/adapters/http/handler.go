package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/PabloGalante/hospital-erp-agent/internal/adapters/ws"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/agentflow"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/audit"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/conversation"
	"github.com/PabloGalante/hospital-erp-agent/internal/app/session"
	"github.com/PabloGalante/hospital-erp-agent/internal/domain"
)

type Server struct {
	conv  *conversation.Service
	audit *audit.Service
	hub   *ws.Hub
}

// NewServer builds the echo instance with every route registered.
// hub may be nil, in which case /ws is not served.
func NewServer(conv *conversation.Service, auditSvc *audit.Service, hub *ws.Hub) *echo.Echo {
	s := &Server{conv: conv, audit: auditSvc, hub: hub}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	e.Use(withRequestID)
	e.Use(withLogging)

	s.RegisterRoutes(e)
	return e
}

func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	e.GET("/agents", s.ListAgents)

	e.GET("/conversation", s.GetConversation)
	e.POST("/conversation/messages", s.SendMessage)
	e.POST("/conversation/cancel", s.CancelTurn)

	e.POST("/credential", s.SubmitCredential)
	e.DELETE("/credential", s.ResetCredential)

	e.GET("/audit", s.ListAudit)

	if s.hub != nil {
		e.GET("/ws", s.hub.Handle)
	}
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type sendMessageRequest struct {
	Text string `json:"text"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

type conversationResponse struct {
	Messages []domain.Message   `json:"messages"`
	Activity agentflow.Activity `json:"activity"`
	Ready    bool               `json:"session_ready"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":        "ok",
		"session_ready": s.conv.Ready(),
	})
}

func (s *Server) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, domain.Profiles())
}

func (s *Server) GetConversation(c echo.Context) error {
	return c.JSON(http.StatusOK, conversationResponse{
		Messages: s.conv.Timeline(queryInt(c, "limit")),
		Activity: s.conv.Activity(),
		Ready:    s.conv.Ready(),
	})
}

func (s *Server) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
	}

	// the turn is finished even if the caller goes away; /conversation/cancel stops it
	ctx := context.WithoutCancel(c.Request().Context())

	res, err := s.conv.SendMessage(ctx, req.Text)
	switch {
	case errors.Is(err, agentflow.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "text is required"})
	case errors.Is(err, agentflow.ErrTurnInFlight):
		return c.JSON(http.StatusConflict, errorResponse{Error: "a message is already being processed"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}

	return c.JSON(http.StatusOK, res)
}

func (s *Server) CancelTurn(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"cancelled": s.conv.Cancel()})
}

func (s *Server) SubmitCredential(c echo.Context) error {
	var req credentialRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
	}

	err := s.conv.SubmitCredential(c.Request().Context(), req.APIKey)
	if err == nil {
		return c.NoContent(http.StatusNoContent)
	}

	if errors.Is(err, domain.ErrNoCredential) {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "api_key is required"})
	}

	kind := domain.KindOf(err)
	status := http.StatusBadGateway
	if kind == domain.ErrorKindAccessDenied {
		status = http.StatusUnauthorized
	}
	return c.JSON(status, errorResponse{Error: session.Describe(err), Kind: string(kind)})
}

func (s *Server) ResetCredential(c echo.Context) error {
	if err := s.conv.ResetCredential(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to reset credential"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) ListAudit(c echo.Context) error {
	entries, err := s.audit.Recent(c.Request().Context(), queryInt(c, "limit"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
	return c.JSON(http.StatusOK, entries)
}

func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
