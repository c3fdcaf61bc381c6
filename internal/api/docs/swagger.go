package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
)

// MatchRecord is one entry of the ranked array
type MatchRecord struct {
	IdentityKey       string   `json:"identity_key" example:"member_0412.jpg"`
	CosineSimilarity  float64  `json:"cosine_similarity" example:"0.7071"`
	EuclideanDistance float64  `json:"euclidean_distance" example:"0.7071"`
	SimilarityScore   float64  `json:"similarity_score" example:"0.2828"`
	Name              *string  `json:"name" example:"Aiko"`
	Group             *string  `json:"group" example:"Blue Notes"`
	Age               *int     `json:"age" example:"21"`
	ImageURL          *string  `json:"imageUrl" example:"https://cdn.example.com/aiko.jpg"`
	GoodsLinks        []string `json:"goodsLinks,omitempty"`
	ProfileURL        *string  `json:"profileUrl,omitempty" example:"https://example.com/aiko"`
}

// SaveLatestResponse is returned after storing the latest result
type SaveLatestResponse struct {
	Success bool   `json:"success" example:"true"`
	SavedAt string `json:"saved_at" example:"2026-01-01T00:00:00Z"`
}

// HealthResponse is returned by the liveness and readiness probes
type HealthResponse struct {
	Status      string            `json:"status" example:"ready"`
	Version     string            `json:"version,omitempty" example:"0.1.0"`
	GallerySize int               `json:"gallery_size,omitempty" example:"1200"`
	Checks      map[string]string `json:"checks,omitempty"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error" example:"Request validation failed"`
	Code  string `json:"code" example:"VALIDATION_FAILED"`
}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Error: "An unexpected error occurred"}, "500", "Internal Server Error")

// NewSwagger creates and configures the Swagger documentation
func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Lookalike API",
		Version:     "v1.0.0",
		Description: "Ranks a reference gallery of faces by similarity to one or more probe photos",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /v1/match
		endpoint.New(
			endpoint.POST,
			"/v1/match",
			endpoint.WithTags("Match"),
			endpoint.WithSummary("Rank the gallery against probe photos"),
			endpoint.WithDescription("Upload 1 to MAX_PROBE_IMAGES photos (jpeg, png or webp, up to 10MB each) as repeated images form fields. Embeddings of the usable photos are fused by element-wise median and every gallery entry is scored as 1.2*cosine - 0.8*euclidean. Returns the top K entries, best first, with profile fields. The run id is returned in the X-Match-ID header."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]MatchRecord{}, "200", "Ranked matches"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "VALIDATION_FAILED", Error: "Request validation failed"}, "422", "No images field"),
				response.New(ErrorResponse{Code: "TOO_MANY_IMAGES", Error: "Too many probe images in a single request"}, "422", "Too many images"),
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Error: "Invalid image format or corrupted file"}, "422", "Rejected upload"),
				response.New(ErrorResponse{Code: "NO_VALID_PROBE", Error: "No usable face found in the submitted images"}, "422", "No usable probe"),
				response.New(ErrorResponse{Code: "SHAPE_MISMATCH", Error: "Embedding dimension mismatch"}, "422", "Embedding dimension mismatch"),
				response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Error: "Rate limit exceeded"}, "429", "Too Many Requests"),
				internalError,
				response.New(ErrorResponse{Code: "PROVIDER_UNAVAILABLE", Error: "Embedding provider is unavailable"}, "503", "Service Unavailable"),
			}),
		),

		// POST /v1/results/latest
		endpoint.New(
			endpoint.POST,
			"/v1/results/latest",
			endpoint.WithTags("Results"),
			endpoint.WithSummary("Save the latest result"),
			endpoint.WithDescription("Stores a ranked array as the latest diagnosis. goodsLinks and profileUrl are resolved from the member with the same name, null when no member matches."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithBody([]MatchRecord{}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SaveLatestResponse{}, "200", "Saved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Error: "Invalid request"}, "400", "Malformed JSON"),
				internalError,
			}),
		),

		// GET /v1/results/latest
		endpoint.New(
			endpoint.GET,
			"/v1/results/latest",
			endpoint.WithTags("Results"),
			endpoint.WithSummary("Get the latest result"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New([]MatchRecord{}, "200", "Latest saved matches"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "RESULT_NOT_FOUND", Error: "No saved result available"}, "404", "Not Found"),
				internalError,
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Process is up"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Ready once the gallery holds entries and the database answers a ping"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Ready"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(HealthResponse{Status: "not_ready"}, "503", "Not ready"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
