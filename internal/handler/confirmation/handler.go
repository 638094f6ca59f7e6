package confirmation

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/meditermin/booking-api/internal/middleware"
	"github.com/meditermin/booking-api/internal/model"
	"github.com/meditermin/booking-api/pkg/httputil"
)

// Finalizer closes out a pending booking one way or the other.
type Finalizer interface {
	Pending(ctx context.Context, sessionID string) (*model.BookingArtifact, error)
	Confirm(ctx context.Context, sessionID string) (*model.ConfirmedAppointment, error)
	Reject(ctx context.Context, sessionID string) (*model.BookingDraft, error)
}

// SessionChecker provides the identity shown on the summary page.
type SessionChecker interface {
	Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error)
}

type Handler struct {
	service  Finalizer
	sessions SessionChecker
}

func NewHandler(service Finalizer, sessions SessionChecker) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	confirmation := r.Group("/confirmation", middleware.BookingSession())
	{
		confirmation.GET("", h.Pending)
		confirmation.POST("/confirm", h.Confirm)
		confirmation.POST("/reject", h.Reject)
	}
}

type pendingResponse struct {
	Booking *model.BookingArtifact `json:"booking"`
	Session *model.AuthSession     `json:"session,omitempty"`
}

func (h *Handler) Pending(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	artifact, err := h.service.Pending(c.Request.Context(), sessionID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp := pendingResponse{Booking: artifact}
	if h.sessions != nil {
		if session, _, err := h.sessions.Current(c.Request.Context(), sessionID); err == nil {
			resp.Session = session
		}
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Confirm(c *gin.Context) {
	appointment, err := h.service.Confirm(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appointment)
}

func (h *Handler) Reject(c *gin.Context) {
	draft, err := h.service.Reject(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}
