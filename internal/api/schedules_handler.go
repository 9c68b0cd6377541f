package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/scheduler"
)

// ScheduleService manages schedule entries.
type ScheduleService interface {
	Create(ctx context.Context, req scheduler.CreateRequest) (*domain.ScheduleEntry, error)
	Get(ctx context.Context, id string) (*domain.ScheduleEntry, error)
	List(ctx context.Context) ([]*domain.ScheduleEntry, error)
	Enable(ctx context.Context, id string) error
	Disable(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateScheduleRequest is the body of POST /api/v1/schedules.
type CreateScheduleRequest struct {
	IntervalMinutes  int      `binding:"omitempty,min=1"                json:"intervalMinutes"`
	CronLikeInterval string   `json:"cronLikeInterval"`
	Sources          []string `binding:"required,min=1,dive,jobsource" json:"sources"`
	DateRange        string   `binding:"required,daterange"            json:"dateRange"`
	Keywords         string   `json:"keywords"`
}

// SchedulesHandler exposes schedule CRUD. Users only see their own entries.
type SchedulesHandler struct {
	schedules ScheduleService
}

// NewSchedulesHandler creates the handler.
func NewSchedulesHandler(schedules ScheduleService) *SchedulesHandler {
	return &SchedulesHandler{schedules: schedules}
}

// List handles GET /api/v1/schedules.
func (h *SchedulesHandler) List(c *gin.Context) {
	entries, err := h.schedules.List(c.Request.Context())
	if err != nil {
		respondInternalError(c, "failed to list schedules", err)
		return
	}

	user := UserFromContext(c)
	own := make([]*domain.ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.Owner == user {
			own = append(own, e)
		}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": own, "total": len(own)})
}

// Create handles POST /api/v1/schedules.
func (h *SchedulesHandler) Create(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	params := SubmitOperationRequest{
		Sources:   req.Sources,
		DateRange: req.DateRange,
		Keywords:  req.Keywords,
	}.Params(UserFromContext(c))

	entry, err := h.schedules.Create(c.Request.Context(), scheduler.CreateRequest{
		IntervalMinutes:  req.IntervalMinutes,
		CronLikeInterval: req.CronLikeInterval,
		Params:           params,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, "failed to create schedule", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Enable handles PUT /api/v1/schedules/:id/enable.
func (h *SchedulesHandler) Enable(c *gin.Context) {
	h.mutate(c, h.schedules.Enable)
}

// Disable handles PUT /api/v1/schedules/:id/disable.
func (h *SchedulesHandler) Disable(c *gin.Context) {
	h.mutate(c, h.schedules.Disable)
}

// Delete handles DELETE /api/v1/schedules/:id.
func (h *SchedulesHandler) Delete(c *gin.Context) {
	h.mutate(c, h.schedules.Delete)
}

func (h *SchedulesHandler) mutate(c *gin.Context, op func(context.Context, string) error) {
	ctx := c.Request.Context()
	id := c.Param("id")

	entry, err := h.schedules.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrScheduleNotFound):
		respondNotFound(c, "schedule")
		return
	case err != nil:
		respondInternalError(c, "failed to load schedule", err)
		return
	case entry.Owner != UserFromContext(c):
		respondNotFound(c, "schedule")
		return
	}

	if err = op(ctx, id); err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			respondNotFound(c, "schedule")
			return
		}
		respondInternalError(c, "failed to update schedule", err)
		return
	}

	if c.Request.Method == http.MethodDelete {
		c.Status(http.StatusNoContent)
		return
	}
	updated, err := h.schedules.Get(ctx, id)
	if err != nil {
		respondInternalError(c, "failed to load schedule", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
