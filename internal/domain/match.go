package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Embedding is a fixed-length face representation produced by the embedding model
type Embedding []float64

// ReferenceEntry is one identity of the reference gallery
type ReferenceEntry struct {
	IdentityKey string            `json:"identity_key"`
	Embedding   Embedding         `json:"-"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// ScoredCandidate is a reference entry scored against the representative vector.
// Position is the entry's index in the reference table and drives tie-breaking.
type ScoredCandidate struct {
	IdentityKey       string  `json:"identity_key"`
	CosineSimilarity  float64 `json:"cosine_similarity"`
	EuclideanDistance float64 `json:"euclidean_distance"`
	SimilarityScore   float64 `json:"similarity_score"`
	Position          int     `json:"-"`
}

// ProfileInfo is the profile directory data attached to a match.
// Nil fields are serialized as JSON null.
type ProfileInfo struct {
	Name     *string `json:"name"`
	Group    *string `json:"group"`
	Age      *int    `json:"age"`
	ImageURL *string `json:"imageUrl"`
}

// RankedMatch is one record of the ranked, enriched result
type RankedMatch struct {
	ScoredCandidate
	ProfileInfo
}

// MatchResult is the outcome of one pipeline run
type MatchResult struct {
	MatchID         uuid.UUID     `json:"match_id"`
	Matches         []RankedMatch `json:"matches"`
	ProbeCount      int           `json:"probe_count"`
	ValidProbeCount int           `json:"valid_probe_count"`
	GallerySize     int           `json:"gallery_size"`
	LatencyMs       int64         `json:"latency_ms"`
}

// MatchAudit represents an audit log entry for a match run
type MatchAudit struct {
	ID                  uuid.UUID `json:"id"`
	ProbeCount          int       `json:"probe_count"`
	ValidProbeCount     int       `json:"valid_probe_count"`
	ResultsCount        int       `json:"results_count"`
	TopMatchIdentityKey *string   `json:"top_match_identity_key,omitempty"`
	TopMatchScore       *float64  `json:"top_match_score,omitempty"`
	TopK                int       `json:"top_k"`
	ErrorCode           *string   `json:"error_code,omitempty"`
	LatencyMs           int64     `json:"latency_ms"`
	ClientIP            string    `json:"client_ip"`
	CreatedAt           time.Time `json:"created_at"`
}

// Member is a row of the profile directory.
// GoodsLinks is kept as raw JSON, its shape belongs to the client.
type Member struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Group      *string         `json:"group"`
	Age        *int            `json:"age"`
	ImageURL   *string         `json:"imageUrl"`
	ImageNames []string        `json:"imageNames"`
	GoodsLinks json.RawMessage `json:"goodsLinks,omitempty"`
	ProfileURL *string         `json:"profileUrl,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Profile converts a member row into the four enrichment fields
func (m *Member) Profile() ProfileInfo {
	name := m.Name
	return ProfileInfo{
		Name:     &name,
		Group:    m.Group,
		Age:      m.Age,
		ImageURL: m.ImageURL,
	}
}

// SavedMatch is a result record kept as the latest diagnosis, with the
// member links resolved by name.
type SavedMatch struct {
	RankedMatch
	GoodsLinks json.RawMessage `json:"goodsLinks"`
	ProfileURL *string         `json:"profileUrl"`
}

// LatestResult is the most recently saved result list
type LatestResult struct {
	Matches []SavedMatch `json:"matches"`
	SavedAt time.Time    `json:"saved_at"`
}
