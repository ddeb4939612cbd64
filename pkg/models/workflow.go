package models

import (
	"fmt"
	"time"
)

// StageKind tags a stage spec with the stage it configures.
type StageKind string

const (
	StageSearch   StageKind = "search"
	StageEvaluate StageKind = "evaluate"
	StageReply    StageKind = "reply"
	StageRecord   StageKind = "record"
)

// SearchConfig configures the candidate search stage.
type SearchConfig struct {
	Subreddit  string   `json:"subreddit"`
	Keywords   []string `json:"keywords,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	TimeWindow string   `json:"time_window,omitempty"` // hour|day|week|month
}

// EvaluateConfig configures the relevance evaluation stage.
type EvaluateConfig struct {
	Threshold float64 `json:"threshold,omitempty"`
}

// ReplyConfig configures the reply drafting stage.
type ReplyConfig struct {
	MaxLength int    `json:"max_length,omitempty"`
	Tone      string `json:"tone,omitempty"`
}

// RecordConfig configures the recording stage.
type RecordConfig struct{}

// StageSpec is one entry in a workflow definition: a stage kind plus its
// kind-specific configuration. Exactly one config field matching Kind is set.
type StageSpec struct {
	Kind     StageKind       `json:"kind"`
	Search   *SearchConfig   `json:"search,omitempty"`
	Evaluate *EvaluateConfig `json:"evaluate,omitempty"`
	Reply    *ReplyConfig    `json:"reply,omitempty"`
	Record   *RecordConfig   `json:"record,omitempty"`
}

// Validate checks that the spec carries the config matching its kind.
func (s StageSpec) Validate() error {
	switch s.Kind {
	case StageSearch:
		if s.Search == nil {
			return fmt.Errorf("search stage missing search config")
		}
		if s.Search.Subreddit == "" {
			return fmt.Errorf("search stage missing subreddit")
		}
	case StageEvaluate, StageReply, StageRecord:
		// configs are optional for these kinds; defaults apply
	default:
		return fmt.Errorf("unknown stage kind %q", s.Kind)
	}
	return nil
}

// WorkflowDefinition is the ordered list of stages a run executes. A run
// always executes a frozen snapshot of the definition it was started from.
type WorkflowDefinition struct {
	ID          string      `json:"id"`
	WorkspaceID string      `json:"workspace_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Stages      []StageSpec `json:"stages"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Validate checks every stage spec and that the definition has at least a
// search stage to produce candidates.
func (d *WorkflowDefinition) Validate() error {
	if len(d.Stages) == 0 {
		return fmt.Errorf("definition has no stages")
	}
	hasSearch := false
	for i, s := range d.Stages {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
		if s.Kind == StageSearch {
			hasSearch = true
		}
	}
	if !hasSearch {
		return fmt.Errorf("definition has no search stage")
	}
	return nil
}

// SearchSpec returns the definition's search configuration, or nil.
func (d *WorkflowDefinition) SearchSpec() *SearchConfig {
	for _, s := range d.Stages {
		if s.Kind == StageSearch {
			return s.Search
		}
	}
	return nil
}

// EvaluateSpec returns the definition's evaluate configuration, or nil.
func (d *WorkflowDefinition) EvaluateSpec() *EvaluateConfig {
	for _, s := range d.Stages {
		if s.Kind == StageEvaluate {
			return s.Evaluate
		}
	}
	return nil
}

// ReplySpec returns the definition's reply configuration, or nil.
func (d *WorkflowDefinition) ReplySpec() *ReplyConfig {
	for _, s := range d.Stages {
		if s.Kind == StageReply {
			return s.Reply
		}
	}
	return nil
}
