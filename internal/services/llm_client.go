package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// LLMClient implements the Scorer and Generator interfaces over a
// chat-completions style HTTP API. All calls pass through a shared token
// bucket so concurrent runs respect the provider's rate limits.
type LLMClient struct {
	baseURL    string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewLLMClient creates a new LLMClient. requestsPerMinute and burst configure
// the token bucket shared by scoring and generation calls.
func NewLLMClient(baseURL, apiKey, model string, requestsPerMinute float64, burst int) *LLMClient {
	if burst <= 0 {
		burst = 1
	}
	return &LLMClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerMinute/60), burst),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const scoringSystemPrompt = `You evaluate whether a business should join a public discussion thread.
Respond with a single JSON object and nothing else:
{"relevance_score": 0-10, "engagement_potential_score": 0-10, "brand_alignment_score": 0-10, "overall_score": 0-10, "recommend": true|false, "rationale": "one or two sentences"}`

const draftingSystemPrompt = `You draft a reply to a public discussion post on behalf of a business.
Be genuinely helpful first. Do not open with the company name or any canned marketing phrase.
Match the tone of the community. Mention the business at most once, and only where it answers the question.
Respond with the reply text only.`

// Score builds a scoring prompt from workspace context and the candidate,
// calls the model, and validates the structured response.
func (c *LLMClient) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	prompt := fmt.Sprintf(
		"Business: %s\nAbout: %s\nTarget audience: %s\nBrand voice: %s\nKeyword focus: %s\n\nPost title: %s\nPost body: %s\nUpvotes: %d, comments: %d, age: %s",
		req.Workspace.Name, req.Workspace.Description, req.Workspace.TargetAudience,
		req.Workspace.BrandVoice, strings.Join(req.Workspace.Keywords, ", "),
		req.Candidate.Title, req.Candidate.Body,
		req.Candidate.Score, req.Candidate.NumComments,
		time.Since(req.Candidate.CreatedAt).Round(time.Minute))

	content, err := c.complete(ctx, scoringSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var result ScoreResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("scoring response is not valid JSON: %w", err)
	}
	if err := validateScore(&result); err != nil {
		return nil, fmt.Errorf("scoring response failed validation: %w", err)
	}
	return &result, nil
}

// validateScore rejects structurally valid JSON that violates the scoring
// schema. Malformed capability output must surface as an error, not be
// coerced downstream.
func validateScore(r *ScoreResult) error {
	for name, v := range map[string]float64{
		"relevance_score":            r.Relevance,
		"engagement_potential_score": r.EngagementPotential,
		"brand_alignment_score":      r.BrandAlignment,
		"overall_score":              r.Overall,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("%s out of range: %v", name, v)
		}
	}
	if strings.TrimSpace(r.Rationale) == "" {
		return fmt.Errorf("rationale is empty")
	}
	return nil
}

// Draft builds a generation prompt and returns the reply text.
func (c *LLMClient) Draft(ctx context.Context, req DraftRequest) (string, error) {
	maxLength := req.MaxLength
	if maxLength <= 0 {
		maxLength = 600
	}
	tone := req.Tone
	if tone == "" {
		tone = "conversational"
	}

	prompt := fmt.Sprintf(
		"Business: %s\nAbout: %s\nBrand voice: %s\nTone: %s\nLength cap: %d characters\n\nPost title: %s\nPost body: %s\n\nWhy this post was selected: %s",
		req.Workspace.Name, req.Workspace.Description, req.Workspace.BrandVoice,
		tone, maxLength,
		req.Candidate.Title, req.Candidate.Body,
		req.Rationale)

	content, err := c.complete(ctx, draftingSystemPrompt, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(content)
	if text == "" {
		return "", fmt.Errorf("generation returned empty reply")
	}
	return text, nil
}

func (c *LLMClient) complete(ctx context.Context, system, user string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
