package engine

import (
	"context"
	"fmt"
	"sync"

	"threadscout/backend/internal/logging"
	"threadscout/backend/internal/repository"
	"threadscout/backend/internal/services"
	"threadscout/backend/pkg/models"
)

// fakeSource returns a fixed candidate list or a fixed error.
type fakeSource struct {
	candidates []models.Candidate
	err        error
}

func (f *fakeSource) Search(ctx context.Context, credential string, cfg models.SearchConfig) ([]models.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Candidate, len(f.candidates))
	copy(out, f.candidates)
	return out, nil
}

// fakeScorer delegates to a per-candidate function.
type fakeScorer struct {
	fn func(cand models.Candidate) (*services.ScoreResult, error)
}

func (f *fakeScorer) Score(ctx context.Context, req services.ScoreRequest) (*services.ScoreResult, error) {
	return f.fn(req.Candidate)
}

// fakeGenerator delegates to a per-request function.
type fakeGenerator struct {
	fn func(req services.DraftRequest) (string, error)
}

func (f *fakeGenerator) Draft(ctx context.Context, req services.DraftRequest) (string, error) {
	return f.fn(req)
}

// memRunStore is an in-memory RunStore with the same terminal-transition
// semantics as the Postgres implementation.
type memRunStore struct {
	mu          sync.Mutex
	runs        map[string]*models.Run
	completeErr error
}

func newMemRunStore() *memRunStore {
	return &memRunStore{runs: make(map[string]*models.Run)}
}

func (s *memRunStore) CreateRun(ctx context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *run
	s.runs[run.ID] = &clone
	return nil
}

func (s *memRunStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	clone := *run
	return &clone, nil
}

func (s *memRunStore) CompleteRun(ctx context.Context, id string, summary *models.ResultSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeErr != nil {
		return s.completeErr
	}
	run, ok := s.runs[id]
	if !ok || run.Status != models.RunRunning {
		return repository.ErrRunFinalized
	}
	run.Status = models.RunCompleted
	run.Summary = summary
	return nil
}

func (s *memRunStore) FailRun(ctx context.Context, id string, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok || run.Status != models.RunRunning {
		return repository.ErrRunFinalized
	}
	run.Status = models.RunFailed
	run.ErrorMessage = message
	return nil
}

// memProcessedStore is an in-memory ProcessedStore with insert-if-absent
// semantics.
type memProcessedStore struct {
	mu        sync.Mutex
	records   map[string]models.ProcessedRecord
	insertErr error
}

func newMemProcessedStore() *memProcessedStore {
	return &memProcessedStore{records: make(map[string]models.ProcessedRecord)}
}

func key(workspaceID, postID string) string {
	return workspaceID + "/" + postID
}

func (s *memProcessedStore) FilterProcessed(ctx context.Context, workspaceID string, ids []string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := s.records[key(workspaceID, id)]; ok {
			seen[id] = struct{}{}
		}
	}
	return seen, nil
}

func (s *memProcessedStore) InsertBatch(ctx context.Context, records []models.ProcessedRecord) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, r := range records {
		k := key(r.WorkspaceID, r.PostID)
		if _, ok := s.records[k]; ok {
			continue
		}
		s.records[k] = r
		inserted++
	}
	return inserted, nil
}

func (s *memProcessedStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testWorkspace() *models.Workspace {
	return &models.Workspace{
		ID:             "ws-1",
		Name:           "Acme Deploys",
		Description:    "Deployment tooling for small teams.",
		TargetAudience: "software engineers",
		BrandVoice:     "practical and direct",
		Keywords:       []string{"deployment", "ci"},
		Credential:     "refresh-token",
	}
}

func testDefinition() *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:          "def-1",
		WorkspaceID: "ws-1",
		Name:        "Engage r/devops",
		Stages: []models.StageSpec{
			{Kind: models.StageSearch, Search: &models.SearchConfig{
				Subreddit: "devops",
				Keywords:  []string{"deploy", "pipeline"},
				Limit:     25,
			}},
			{Kind: models.StageEvaluate, Evaluate: &models.EvaluateConfig{Threshold: 7.0}},
			{Kind: models.StageReply, Reply: &models.ReplyConfig{MaxLength: 600}},
			{Kind: models.StageRecord, Record: &models.RecordConfig{}},
		},
	}
}

func testCandidate(id, title, body string) models.Candidate {
	return models.Candidate{
		ID:        id,
		Subreddit: "devops",
		Title:     title,
		Body:      body,
		Author:    "someone",
		Permalink: "/r/devops/comments/" + id,
	}
}

func newTestExecutor(source services.ContentSource, scorer services.Scorer, gen services.Generator, opts Options) (*Executor, *memRunStore, *memProcessedStore) {
	runs := newMemRunStore()
	processed := newMemProcessedStore()
	exec := NewExecutor(runs, processed, source, scorer, gen, logging.NewLogger(), opts)
	return exec, runs, processed
}
