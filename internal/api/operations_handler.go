package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
)

// TaskService submits operations and reports their results.
type TaskService interface {
	Submit(ctx context.Context, params domain.SearchParameters) (string, error)
	Result(ctx context.Context, id string) (domain.TaskResult, error)
}

// OperationHistory lists and deletes persisted operations.
type OperationHistory interface {
	ListByUser(ctx context.Context, user string, limit, offset int) ([]*domain.Operation, error)
	Delete(ctx context.Context, user, requestID string) error
}

// SubmitOperationRequest is the body of POST /api/v1/operations.
type SubmitOperationRequest struct {
	Sources   []string `binding:"required,min=1,dive,jobsource" json:"sources"`
	DateRange string   `binding:"required,daterange"            json:"dateRange"`
	Keywords  string   `json:"keywords"`
}

// Params converts the request into search parameters for user.
func (r SubmitOperationRequest) Params(user string) domain.SearchParameters {
	sources := make([]domain.Source, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = domain.Source(s)
	}
	return domain.SearchParameters{
		Sources:        sources,
		DateRange:      domain.DateRange(r.DateRange),
		Keywords:       r.Keywords,
		RequestingUser: user,
	}
}

// OperationsHandler handles operation submission, task polling and history.
type OperationsHandler struct {
	tasks   TaskService
	history OperationHistory
}

// NewOperationsHandler creates the handler. history may be nil when
// persistence is disabled.
func NewOperationsHandler(tasks TaskService, history OperationHistory) *OperationsHandler {
	return &OperationsHandler{tasks: tasks, history: history}
}

// Submit handles POST /api/v1/operations.
func (h *OperationsHandler) Submit(c *gin.Context) {
	var req SubmitOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, bindingMessage(err))
		return
	}

	taskID, err := h.tasks.Submit(c.Request.Context(), req.Params(UserFromContext(c)))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, "failed to submit operation", err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"taskId": taskID})
}

// GetTask handles GET /api/v1/tasks/:id.
func (h *OperationsHandler) GetTask(c *gin.Context) {
	result, err := h.tasks.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			respondNotFound(c, "task")
			return
		}
		respondInternalError(c, "failed to load task", err)
		return
	}
	if result.Owner != UserFromContext(c) {
		respondNotFound(c, "task")
		return
	}

	if !result.Status.IsTerminal() {
		c.JSON(http.StatusAccepted, gin.H{"taskId": result.TaskID, "status": result.Status})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete handles DELETE /api/v1/operations/:id.
func (h *OperationsHandler) Delete(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusNotImplemented, "operation history requires the database")
		return
	}

	err := h.history.Delete(c.Request.Context(), UserFromContext(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOperationNotFound) {
			respondNotFound(c, "operation")
			return
		}
		respondInternalError(c, "failed to delete operation", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List handles GET /api/v1/operations.
func (h *OperationsHandler) List(c *gin.Context) {
	if h.history == nil {
		respondError(c, http.StatusNotImplemented, "operation history requires the database")
		return
	}

	limit, offset := parseLimitOffset(c)
	ops, err := h.history.ListByUser(c.Request.Context(), UserFromContext(c), limit, offset)
	if err != nil {
		respondInternalError(c, "failed to list operations", err)
		return
	}
	if ops == nil {
		ops = []*domain.Operation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"operations": ops,
		"limit":      limit,
		"offset":     offset,
	})
}
