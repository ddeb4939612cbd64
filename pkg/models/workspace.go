package models

import (
	"time"
)

// Workspace is the tenant/business context that personalizes scoring and
// drafting: brand voice, audience, and the keyword focus of the business.
type Workspace struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	TargetAudience string    `json:"target_audience"`
	BrandVoice     string    `json:"brand_voice"`
	Keywords       []string  `json:"keywords"`
	// Credential is the opaque refresh credential for the content source.
	// It is exchanged for a short-lived access token before every search.
	Credential string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
