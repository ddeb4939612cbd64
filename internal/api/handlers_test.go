package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscout/backend/internal/engine"
	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

type stubRuns struct {
	mu   sync.Mutex
	runs map[string]*models.Run
}

func newStubRuns() *stubRuns { return &stubRuns{runs: map[string]*models.Run{}} }

func (s *stubRuns) CreateRun(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *stubRuns) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *run
	return &cp, nil
}

func (s *stubRuns) CompleteRun(_ context.Context, id string, summary *models.ResultSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok || run.Status != models.RunRunning {
		return repository.ErrRunFinalized
	}
	now := time.Now().UTC()
	run.Status = models.RunCompleted
	run.CompletedAt = &now
	run.Summary = summary
	return nil
}

func (s *stubRuns) FailRun(_ context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok || run.Status != models.RunRunning {
		return repository.ErrRunFinalized
	}
	now := time.Now().UTC()
	run.Status = models.RunFailed
	run.CompletedAt = &now
	run.ErrorMessage = message
	return nil
}

type stubDefs struct {
	mu   sync.Mutex
	defs map[string]*models.WorkflowDefinition
}

func newStubDefs() *stubDefs { return &stubDefs{defs: map[string]*models.WorkflowDefinition{}} }

func (s *stubDefs) GetDefinition(_ context.Context, id string) (*models.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return def, nil
}

func (s *stubDefs) ListDefinitions(_ context.Context, workspaceID string) ([]*models.WorkflowDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.WorkflowDefinition
	for _, def := range s.defs {
		if def.WorkspaceID == workspaceID {
			out = append(out, def)
		}
	}
	return out, nil
}

func (s *stubDefs) PutDefinition(_ context.Context, def *models.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[def.ID] = def
	return nil
}

type stubWorkspaces struct {
	ws map[string]*models.Workspace
}

func (s *stubWorkspaces) GetWorkspace(_ context.Context, id string) (*models.Workspace, error) {
	ws, ok := s.ws[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ws, nil
}

func (s *stubWorkspaces) CreateWorkspace(_ context.Context, ws *models.Workspace) error {
	s.ws[ws.ID] = ws
	return nil
}

type stubProcessed struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (s *stubProcessed) FilterProcessed(_ context.Context, workspaceID string, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := s.seen[workspaceID+"/"+id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (s *stubProcessed) InsertBatch(_ context.Context, records []models.ProcessedRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, r := range records {
		key := r.WorkspaceID + "/" + r.PostID
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		inserted++
	}
	return inserted, nil
}

type stubSource struct{ candidates []models.Candidate }

func (s *stubSource) Search(context.Context, string, models.SearchConfig) ([]models.Candidate, error) {
	return s.candidates, nil
}

type stubScorer struct{}

func (stubScorer) Score(context.Context, services.ScoreRequest) (*services.ScoreResult, error) {
	return &services.ScoreResult{Overall: 9.0, Recommend: true, Rationale: "good fit"}, nil
}

type stubGenerator struct{}

func (stubGenerator) Draft(context.Context, services.DraftRequest) (string, error) {
	return "drafted reply", nil
}

func testDefinition(id, workspaceID string) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:          id,
		WorkspaceID: workspaceID,
		Name:        "Engage",
		Stages: []models.StageSpec{
			{Kind: models.StageSearch, Search: &models.SearchConfig{Subreddit: "devops"}},
			{Kind: models.StageEvaluate, Evaluate: &models.EvaluateConfig{Threshold: 7}},
			{Kind: models.StageReply, Reply: &models.ReplyConfig{}},
			{Kind: models.StageRecord, Record: &models.RecordConfig{}},
		},
	}
}

// newTestServer wires the API over in-memory stores and a single-worker pool
// backed by stub services.
func newTestServer(t *testing.T) (*echo.Echo, *stubRuns, *stubDefs) {
	t.Helper()
	logger := logging.NewLogger()

	runs := newStubRuns()
	defs := newStubDefs()
	workspaces := &stubWorkspaces{ws: map[string]*models.Workspace{
		"ws-1": {ID: "ws-1", Name: "Acme", Keywords: []string{"deploy"}, Credential: "refresh"},
	}}
	processed := &stubProcessed{seen: map[string]struct{}{}}

	source := &stubSource{candidates: []models.Candidate{
		{ID: "p1", Subreddit: "devops", Title: "deploy keeps failing", CreatedAt: time.Now()},
	}}
	exec := engine.NewExecutor(runs, processed, source, stubScorer{}, stubGenerator{}, logger, engine.Options{})
	pool := engine.NewPool(exec, 1, 8, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})

	e := echo.New()
	srv := NewServer(runs, defs, workspaces, pool, logger)
	srv.RegisterRoutes(e.Group("/api/v1"))
	return e, runs, defs
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStartRunAcceptsAndCompletes(t *testing.T) {
	e, runs, defs := newTestServer(t)
	require.NoError(t, defs.PutDefinition(context.Background(), testDefinition("wf-1", "ws-1")))

	rec := doJSON(e, http.MethodPost, "/api/v1/runs", `{"workflow_id": "wf-1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp StartRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.RunID)

	// Completion is observed by polling the run resource.
	deadline := time.Now().Add(5 * time.Second)
	var run *models.Run
	for time.Now().Before(deadline) {
		var err error
		run, err = runs.GetRun(context.Background(), resp.RunID)
		require.NoError(t, err)
		if run.Status != models.RunRunning {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, models.RunCompleted, run.Status)

	rec = doJSON(e, http.MethodGet, "/api/v1/runs/"+resp.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Summary)
	assert.Equal(t, 1, got.Summary.Found)
	assert.Equal(t, 1, got.Summary.DraftsGenerated)
}

func TestStartRunValidation(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/runs", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/runs", `{"workflow_id": "missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutWorkflow(t *testing.T) {
	e, _, _ := newTestServer(t)

	body := `{
		"workspace_id": "ws-1",
		"name": "Engage",
		"stages": [{"kind": "search", "search": {"subreddit": "devops"}}]
	}`
	rec := doJSON(e, http.MethodPut, "/api/v1/workflows", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var def models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &def))
	assert.NotEmpty(t, def.ID, "server assigns an id when absent")

	// Definitions without a search stage are rejected.
	rec = doJSON(e, http.MethodPut, "/api/v1/workflows", `{
		"workspace_id": "ws-1",
		"name": "bad",
		"stages": [{"kind": "record", "record": {}}]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkflows(t *testing.T) {
	e, _, defs := newTestServer(t)
	require.NoError(t, defs.PutDefinition(context.Background(), testDefinition("wf-1", "ws-1")))
	require.NoError(t, defs.PutDefinition(context.Background(), testDefinition("wf-2", "other")))

	rec := doJSON(e, http.MethodGet, "/api/v1/workflows", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/workflows?workspace_id=ws-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []*models.WorkflowDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "wf-1", listed[0].ID)
}
