package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscout/backend/pkg/models"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func scoreRequest() ScoreRequest {
	return ScoreRequest{
		Workspace: &models.Workspace{
			ID:       "ws-1",
			Name:     "Acme",
			Keywords: []string{"deployment"},
		},
		Candidate: models.Candidate{ID: "p1", Title: "deploy question", Body: "how"},
	}
}

// fast limiter so tests never wait on the token bucket
func testClient(url string) *LLMClient {
	return NewLLMClient(url, "test-key", "test-model", 60000, 100)
}

func TestScoreParsesValidResponse(t *testing.T) {
	payload := `{"relevance_score": 8, "engagement_potential_score": 7, "brand_alignment_score": 9, "overall_score": 8.2, "recommend": true, "rationale": "active thread, strong fit"}`
	srv := chatServer(t, payload, http.StatusOK)
	defer srv.Close()

	result, err := testClient(srv.URL).Score(context.Background(), scoreRequest())
	require.NoError(t, err)
	assert.Equal(t, 8.2, result.Overall)
	assert.True(t, result.Recommend)
	assert.Equal(t, "active thread, strong fit", result.Rationale)
}

func TestScoreRejectsInvalidOutput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I think this post scores about an 8 out of 10"},
		{"score out of range", `{"relevance_score": 8, "engagement_potential_score": 7, "brand_alignment_score": 9, "overall_score": 14, "recommend": true, "rationale": "x"}`},
		{"negative sub-score", `{"relevance_score": -1, "engagement_potential_score": 7, "brand_alignment_score": 9, "overall_score": 5, "recommend": false, "rationale": "x"}`},
		{"empty rationale", `{"relevance_score": 8, "engagement_potential_score": 7, "brand_alignment_score": 9, "overall_score": 8, "recommend": true, "rationale": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.content, http.StatusOK)
			defer srv.Close()

			_, err := testClient(srv.URL).Score(context.Background(), scoreRequest())
			require.Error(t, err)
		})
	}
}

func TestScorePropagatesHTTPFailure(t *testing.T) {
	srv := chatServer(t, "", http.StatusBadGateway)
	defer srv.Close()

	_, err := testClient(srv.URL).Score(context.Background(), scoreRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestDraftReturnsReplyText(t *testing.T) {
	srv := chatServer(t, "  That error usually means the runner lost its token.\n", http.StatusOK)
	defer srv.Close()

	text, err := testClient(srv.URL).Draft(context.Background(), DraftRequest{
		Workspace: &models.Workspace{ID: "ws-1", Name: "Acme"},
		Candidate: models.Candidate{ID: "p1", Title: "ci failing"},
		Rationale: "good fit",
	})
	require.NoError(t, err)
	assert.Equal(t, "That error usually means the runner lost its token.", text)
}

func TestDraftRejectsEmptyReply(t *testing.T) {
	srv := chatServer(t, "   ", http.StatusOK)
	defer srv.Close()

	_, err := testClient(srv.URL).Draft(context.Background(), DraftRequest{
		Workspace: &models.Workspace{ID: "ws-1"},
		Candidate: models.Candidate{ID: "p1"},
	})
	require.Error(t, err)
}

func TestValidateScoreBounds(t *testing.T) {
	ok := &ScoreResult{Relevance: 0, EngagementPotential: 10, BrandAlignment: 5, Overall: 5, Rationale: "fine"}
	require.NoError(t, validateScore(ok))

	for i, bad := range []*ScoreResult{
		{Overall: 10.1, Rationale: "x"},
		{BrandAlignment: 11, Overall: 5, Rationale: "x"},
		{Overall: 5, Rationale: ""},
	} {
		assert.Error(t, validateScore(bad), fmt.Sprintf("case %d", i))
	}
}
