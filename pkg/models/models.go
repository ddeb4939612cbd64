// Package models defines the domain models for the engagement engine.
package models

import (
	"time"
)

// Candidate is one external discussion post eligible for evaluation.
// It is produced by the search stage and never mutated afterwards.
type Candidate struct {
	ID          string    `json:"id"`
	Subreddit   string    `json:"subreddit"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	Score       int       `json:"score"`
	NumComments int       `json:"num_comments"`
	CreatedAt   time.Time `json:"created_at"`
	Permalink   string    `json:"permalink"`
}

// Evaluation is the relevance verdict for a single candidate.
type Evaluation struct {
	CandidateID string  `json:"candidate_id"`
	Score       float64 `json:"score"` // 0-10
	Recommend   bool    `json:"recommend"`
	Rationale   string  `json:"rationale"`
}

// Draft is a generated reply for a recommended candidate. At most one per
// candidate, and only for candidates whose evaluation recommends engaging.
type Draft struct {
	CandidateID string `json:"candidate_id"`
	Text        string `json:"text,omitempty"`
	Succeeded   bool   `json:"succeeded"`
	Error       string `json:"error,omitempty"`
}

// ProcessedRecord is the durable row that prevents the same external post
// from being processed twice for a workspace. Keyed on (WorkspaceID, PostID).
type ProcessedRecord struct {
	WorkspaceID string    `json:"workspace_id"`
	PostID      string    `json:"post_id"`
	RunID       string    `json:"run_id"`
	Score       float64   `json:"score"`
	Recommend   bool      `json:"recommend"`
	Rationale   string    `json:"rationale"`
	DraftText   string    `json:"draft_text,omitempty"`
	Posted      bool      `json:"posted"`
	CreatedAt   time.Time `json:"created_at"`
}
