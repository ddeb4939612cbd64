package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"threadscout/backend/pkg/models"
)

const defaultSearchLimit = 25

// RedditClient is an HTTP implementation of the ContentSource interface
// against Reddit's OAuth API. Each workspace supplies its own refresh
// credential; the client exchanges it for a short-lived access token on
// every search.
type RedditClient struct {
	baseURL    string
	userAgent  string
	oauth      *oauth2.Config
	httpClient *http.Client
}

// NewRedditClient creates a new RedditClient.
func NewRedditClient(baseURL, tokenURL, clientID, clientSecret, userAgent string) *RedditClient {
	return &RedditClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// redditListing mirrors the relevant slice of Reddit's listing envelope.
type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
}

// Search exchanges the credential for an access token and fetches recent
// posts from the configured subreddit. Upstream order is preserved; keyword
// filtering happens downstream in the search stage.
func (c *RedditClient) Search(ctx context.Context, credential string, cfg models.SearchConfig) ([]models.Candidate, error) {
	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: credential})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("credential exchange failed: %w", err)
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	// Only the top listing honors the t parameter; without a time window the
	// new listing gives the freshest threads.
	listing := "new"
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if cfg.TimeWindow != "" {
		listing = "top"
		query.Set("t", cfg.TimeWindow)
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s", c.baseURL, url.PathEscape(cfg.Subreddit), listing)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed redditListing
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.Data.Children))
	for _, child := range parsed.Data.Children {
		p := child.Data
		candidates = append(candidates, models.Candidate{
			ID:          p.ID,
			Subreddit:   p.Subreddit,
			Title:       p.Title,
			Body:        p.Selftext,
			Author:      p.Author,
			Score:       p.Score,
			NumComments: p.NumComments,
			CreatedAt:   time.Unix(int64(p.CreatedUTC), 0).UTC(),
			Permalink:   p.Permalink,
		})
	}
	return candidates, nil
}
