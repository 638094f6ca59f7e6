package booking

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/meditermin/booking-api/internal/middleware"
	"github.com/meditermin/booking-api/internal/model"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
	"github.com/meditermin/booking-api/pkg/httputil"
)

// Wizarder is the booking flow as the HTTP layer sees it.
type Wizarder interface {
	Start(ctx context.Context) (*model.BookingDraft, error)
	Get(ctx context.Context, sessionID string) (*model.BookingDraft, error)
	AnswerPatientStatus(ctx context.Context, sessionID string, returning bool) (*model.BookingDraft, error)
	ChooseInsurance(ctx context.Context, sessionID string, insurance model.Insurance) (*model.BookingDraft, error)
	ChooseDepartment(ctx context.Context, sessionID string, departmentID int64) (*model.BookingDraft, error)
	ChooseDoctor(ctx context.Context, sessionID string, doctorID int64) (*model.BookingDraft, error)
	DoctorDetail(ctx context.Context, doctorID int64) (*model.Doctor, error)
	ShowSlots(ctx context.Context, sessionID string) (*model.BookingDraft, error)
	SelectSlot(ctx context.Context, sessionID string, slotID int64) (*model.BookingDraft, error)
	Submit(ctx context.Context, sessionID string) (*model.BookingArtifact, error)
	Back(ctx context.Context, sessionID string) (*model.BookingDraft, error)
	Cancel(ctx context.Context, sessionID string) error
}

// SessionChecker answers whether the booking session already has a
// login, so submit can tell the client what comes next.
type SessionChecker interface {
	Current(ctx context.Context, sessionID string) (*model.AuthSession, string, error)
}

type Handler struct {
	service  Wizarder
	sessions SessionChecker
}

func NewHandler(service Wizarder, sessions SessionChecker) *Handler {
	return &Handler{service: service, sessions: sessions}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/booking", h.Start)

	booking := r.Group("/booking", middleware.BookingSession())
	{
		booking.GET("", h.Get)
		booking.DELETE("", h.Cancel)
		booking.POST("/patient-status", h.AnswerPatientStatus)
		booking.POST("/insurance", h.ChooseInsurance)
		booking.POST("/department", h.ChooseDepartment)
		booking.POST("/doctor", h.ChooseDoctor)
		booking.GET("/doctors/:id", h.DoctorDetail)
		booking.POST("/slots", h.ShowSlots)
		booking.POST("/slot", h.SelectSlot)
		booking.POST("/submit", h.Submit)
		booking.POST("/back", h.Back)
	}
}

type patientStatusRequest struct {
	Returning *bool `json:"returning" binding:"required"`
}

type insuranceRequest struct {
	Insurance model.Insurance `json:"insurance" binding:"required,insurance"`
}

type departmentRequest struct {
	DepartmentID int64 `json:"department_id" binding:"required"`
}

type doctorRequest struct {
	DoctorID int64 `json:"doctor_id" binding:"required"`
}

type slotRequest struct {
	SlotID int64 `json:"slot_id" binding:"required"`
}

type submitResponse struct {
	Booking       *model.BookingArtifact `json:"booking"`
	LoginRequired bool                   `json:"login_required"`
}

// Start opens a new booking session. The session ID is returned in the
// draft and echoed in the X-Booking-Session header.
func (h *Handler) Start(c *gin.Context) {
	draft, err := h.service.Start(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header(middleware.HeaderBookingSession, draft.SessionID)
	httputil.RespondWithCreated(c, draft)
}

func (h *Handler) Get(c *gin.Context) {
	draft, err := h.service.Get(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) AnswerPatientStatus(c *gin.Context) {
	var req patientStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("returning must be true or false", err))
		return
	}

	draft, err := h.service.AnswerPatientStatus(c.Request.Context(), c.GetString(middleware.ContextSessionID), *req.Returning)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) ChooseInsurance(c *gin.Context) {
	var req insuranceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("insurance must be PUBLIC or PRIVATE", err))
		return
	}

	draft, err := h.service.ChooseInsurance(c.Request.Context(), c.GetString(middleware.ContextSessionID), req.Insurance)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) ChooseDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("department_id is required", err))
		return
	}

	draft, err := h.service.ChooseDepartment(c.Request.Context(), c.GetString(middleware.ContextSessionID), req.DepartmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) ChooseDoctor(c *gin.Context) {
	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("doctor_id is required", err))
		return
	}

	draft, err := h.service.ChooseDoctor(c.Request.Context(), c.GetString(middleware.ContextSessionID), req.DoctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) DoctorDetail(c *gin.Context) {
	doctorID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor ID", err))
		return
	}

	doctor, err := h.service.DoctorDetail(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctor)
}

func (h *Handler) ShowSlots(c *gin.Context) {
	draft, err := h.service.ShowSlots(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) SelectSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("slot_id is required", err))
		return
	}

	draft, err := h.service.SelectSlot(c.Request.Context(), c.GetString(middleware.ContextSessionID), req.SlotID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

// Submit snapshots the selection and tells the client whether the
// confirmation still needs a login first.
func (h *Handler) Submit(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	artifact, err := h.service.Submit(c.Request.Context(), sessionID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	resp := submitResponse{Booking: artifact, LoginRequired: true}
	if h.sessions != nil {
		if _, _, err := h.sessions.Current(c.Request.Context(), sessionID); err == nil {
			resp.LoginRequired = false
		}
	}
	httputil.RespondWithCreated(c, resp)
}

func (h *Handler) Back(c *gin.Context) {
	draft, err := h.service.Back(c.Request.Context(), c.GetString(middleware.ContextSessionID))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, draft)
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.GetString(middleware.ContextSessionID)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"cancelled": true})
}
