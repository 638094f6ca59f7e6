package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/meditermin/booking-api/internal/middleware"
	"github.com/meditermin/booking-api/internal/model"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
	"github.com/meditermin/booking-api/pkg/httputil"
)

// Gater is the session capability the auth endpoints expose.
type Gater interface {
	Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error)
	Login(ctx context.Context, sessionID, email, password string) (*model.AuthSession, error)
	Logout(ctx context.Context, sessionID string) error
}

// PendingLoader reports the booking artifact waiting for confirmation,
// so a successful login can tell the client to resume there.
type PendingLoader interface {
	Pending(ctx context.Context, sessionID string) (*model.BookingArtifact, error)
}

type Handler struct {
	gate    Gater
	pending PendingLoader
}

func NewHandler(gate Gater, pending PendingLoader) *Handler {
	return &Handler{gate: gate, pending: pending}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth", middleware.BookingSession())
	{
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/session", h.Session)
	}
}

type loginResponse struct {
	Session *model.AuthSession     `json:"session"`
	Pending *model.BookingArtifact `json:"pendingBooking,omitempty"`
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("email and password are required", err))
		return
	}

	sessionID := c.GetString(middleware.ContextSessionID)
	session, err := h.gate.Login(c.Request.Context(), sessionID, req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp := loginResponse{Session: session}
	if h.pending != nil {
		if artifact, err := h.pending.Pending(c.Request.Context(), sessionID); err == nil {
			resp.Pending = artifact
		}
	}

	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.gate.Logout(c.Request.Context(), c.GetString(middleware.ContextSessionID)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"loggedOut": true})
}

func (h *Handler) Session(c *gin.Context) {
	session, _, err := h.gate.Current(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, session)
}
