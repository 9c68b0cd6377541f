package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/jobsweep/internal/api"
	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/scheduler"
	"github.com/jonesrussell/jobsweep/internal/sse"
	"github.com/jonesrussell/jobsweep/internal/statemanager"
	"github.com/jonesrussell/jobsweep/internal/taskqueue"
)

const (
	testSecret = "test-secret-value"
	testIssuer = "jobsweep-test"
)

type closedSubscriber struct{}

func (closedSubscriber) Subscribe(context.Context, ...sse.ClientOption) (<-chan sse.Event, func()) {
	ch := make(chan sse.Event)
	close(ch)
	return ch, func() {}
}

type fakeHistory struct {
	user string
	ops  []*domain.Operation
}

func (f *fakeHistory) ListByUser(_ context.Context, user string, _, _ int) ([]*domain.Operation, error) {
	f.user = user
	return f.ops, nil
}

func (f *fakeHistory) Delete(_ context.Context, user, requestID string) error {
	for i, op := range f.ops {
		if op.RequestID == requestID && op.RequestingUser == user {
			f.ops = append(f.ops[:i], f.ops[i+1:]...)
			return nil
		}
	}
	return domain.ErrOperationNotFound
}

type harness struct {
	router  *gin.Engine
	queue   *taskqueue.MemoryQueue
	results *taskqueue.MemoryResultStore
	history *fakeHistory
	states  *statemanager.Manager
}

func newHarness(t *testing.T, checks map[string]api.HealthCheck) *harness {
	t.Helper()
	queue := taskqueue.NewMemoryQueue(8)
	results := taskqueue.NewMemoryResultStore()
	history := &fakeHistory{}
	states := statemanager.New([]domain.Source{domain.SourceKalibrr, domain.SourceJobStreet}, nil, nil)

	deps := api.Dependencies{
		Tasks:     taskqueue.NewService(queue, results, nil),
		History:   history,
		Schedules: scheduler.NewService(scheduler.NewMemoryRepository(), nil),
		Events:    closedSubscriber{},
		Snapshot:  states.Snapshot,
		Reset:     func(channel string) { states.Reset(channel) },
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
		Checks: checks,
	}
	router := api.NewRouter(api.Config{JWTSecret: testSecret, JWTIssuer: testIssuer}, deps, nil)
	return &harness{router: router, queue: queue, results: results, history: history, states: states}
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok, err := api.IssueToken(testSecret, testIssuer, user, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestAuth(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodGet, "/api/v1/platforms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	forged, err := api.IssueToken("other-secret", testIssuer, "mallory", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := api.IssueToken(testSecret, testIssuer, "alice", -time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/platforms", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodGet, "/api/v1/platforms", "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	platforms, ok := decode(t, w)["platforms"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", platforms["kalibrr"])
}

func TestSubmitOperation_AndPollTask(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/operations", "alice", map[string]any{
		"sources":   []string{"kalibrr", "jobstreet", "kalibrr"},
		"dateRange": "PAST_WEEK",
		"keywords":  " golang ",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	taskID, _ := decode(t, w)["taskId"].(string)
	require.NotEmpty(t, taskID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	task, _, err := h.queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, "alice", task.Params.RequestingUser)
	assert.Equal(t, []domain.Source{domain.SourceKalibrr, domain.SourceJobStreet}, task.Params.Sources)
	assert.Equal(t, "golang", task.Params.Keywords)

	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "alice", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "pending", decode(t, w)["status"])

	require.NoError(t, h.results.MarkRunning(ctx, taskID, "alice"))
	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "alice", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "running", decode(t, w)["status"])

	require.NoError(t, h.results.Save(ctx, domain.TaskResult{
		TaskID:        taskID,
		Owner:         "alice",
		Status:        domain.TaskPartial,
		ListingsCount: 1,
		Listings:      []domain.Listing{{Source: domain.SourceKalibrr, Title: "Go Developer", URL: "https://example.com/1"}},
		SourceErrors:  map[domain.Source]string{domain.SourceJobStreet: "timeout"},
	}))
	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "partial", body["status"])
	assert.EqualValues(t, 1, body["listingsCount"])
	assert.Equal(t, map[string]any{"jobstreet": "timeout"}, body["sourceErrors"])
}

func TestSubmitOperation_Validation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	tests := []struct {
		name    string
		body    map[string]any
		message string
	}{
		{name: "no sources", body: map[string]any{"sources": []string{}, "dateRange": "PAST_WEEK"}, message: "invalid sources"},
		{name: "unknown source", body: map[string]any{"sources": []string{"monster"}, "dateRange": "PAST_WEEK"}, message: `unknown source "monster"`},
		{name: "unknown range", body: map[string]any{"sources": []string{"kalibrr"}, "dateRange": "PAST_YEAR"}, message: "invalid dateRange"},
		{name: "missing range", body: map[string]any{"sources": []string{"kalibrr"}}, message: "invalid dateRange: is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, "/api/v1/operations", "alice", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			msg, _ := decode(t, w)["error"].(string)
			assert.Contains(t, msg, tt.message)
		})
	}
}

func TestSubmitOperation_AcceptsLegacyLabel(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/operations", "alice", map[string]any{
		"sources":   []string{"kalibrr"},
		"dateRange": "Past 24 hours",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestGetTask_Unknown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodGet, "/api/v1/tasks/does-not-exist", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTask_OtherUsersTaskIsNotFound(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/operations", "alice", map[string]any{
		"sources":   []string{"kalibrr"},
		"dateRange": "PAST_WEEK",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	taskID, _ := decode(t, w)["taskId"].(string)

	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, h.results.Save(context.Background(), domain.TaskResult{
		TaskID:   taskID,
		Owner:    "alice",
		Status:   domain.TaskSuccess,
		Listings: []domain.Listing{},
	}))
	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "a finished task stays private")

	w = h.do(t, http.MethodGet, "/api/v1/tasks/"+taskID, "alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteOperation_ScopedToCaller(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.history.ops = []*domain.Operation{{RequestID: "r1", RequestingUser: "alice", Outcome: domain.OutcomeSuccess}}

	w := h.do(t, http.MethodDelete, "/api/v1/operations/r1", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, h.history.ops, 1)

	w = h.do(t, http.MethodDelete, "/api/v1/operations/r1", "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, h.history.ops)

	w = h.do(t, http.MethodDelete, "/api/v1/operations/r1", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResetPlatforms(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.states.SetState("alice", domain.SourceKalibrr, domain.PlatformError)
	h.states.SetState("alice", domain.SourceJobStreet, domain.PlatformFinished)

	w := h.do(t, http.MethodPost, "/api/v1/platforms/reset", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	platforms, ok := decode(t, w)["platforms"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", platforms["kalibrr"])
	assert.Equal(t, "idle", platforms["jobstreet"])
	assert.Equal(t, domain.PlatformIdle, h.states.Snapshot()[domain.SourceKalibrr])

	w = h.do(t, http.MethodPost, "/api/v1/platforms/reset", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListOperations_ScopedToCaller(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.history.ops = []*domain.Operation{{RequestID: "r1", RequestingUser: "bob", Outcome: domain.OutcomeSuccess}}

	w := h.do(t, http.MethodGet, "/api/v1/operations?limit=5", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", h.history.user)
	body := decode(t, w)
	assert.EqualValues(t, 5, body["limit"])
	ops, _ := body["operations"].([]any)
	assert.Len(t, ops, 1)
}

func TestSchedules_CRUDAndOwnership(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/schedules", "alice", map[string]any{
		"intervalMinutes": 60,
		"sources":         []string{"jobstreet"},
		"dateRange":       "PAST_24_HOURS",
		"keywords":        "devops",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, true, created["enabled"])
	assert.Equal(t, "alice", created["owner"])

	w = h.do(t, http.MethodGet, "/api/v1/schedules", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = h.do(t, http.MethodGet, "/api/v1/schedules", "bob", nil)
	assert.EqualValues(t, 0, decode(t, w)["total"])

	w = h.do(t, http.MethodPut, "/api/v1/schedules/"+id+"/disable", "bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "other users cannot touch the entry")

	w = h.do(t, http.MethodPut, "/api/v1/schedules/"+id+"/disable", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])

	w = h.do(t, http.MethodPut, "/api/v1/schedules/"+id+"/enable", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["enabled"])

	w = h.do(t, http.MethodDelete, "/api/v1/schedules/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, http.MethodDelete, "/api/v1/schedules/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchedules_RejectsInvalidInterval(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodPost, "/api/v1/schedules", "alice", map[string]any{
		"sources":   []string{"kalibrr"},
		"dateRange": "PAST_WEEK",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	msg, _ := decode(t, w)["error"].(string)
	assert.Contains(t, msg, "intervalMinutes")
}

func TestEvents_SendsConnectSequence(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)

	w := h.do(t, http.MethodGet, "/api/v1/events", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	infoAt := strings.Index(body, "event: info")
	stateAt := strings.Index(body, "event: platform_state")
	require.GreaterOrEqual(t, infoAt, 0)
	require.Greater(t, stateAt, infoAt)
	assert.Contains(t, body, "Connection established")
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, map[string]api.HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	w := h.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = h.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newHarness(t, map[string]api.HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})
	w = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
