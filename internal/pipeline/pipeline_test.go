package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/gallery"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/matching"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
)

func ptr[T any](v T) *T {
	return &v
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEmbedder answers by image content: the image bytes are the lookup key
type fakeEmbedder struct {
	results  map[string]provider.ProbeResult
	errs     map[string]error
	maxDelay time.Duration
	calls    atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, image []byte) (provider.ProbeResult, error) {
	f.calls.Add(1)
	if f.maxDelay > 0 {
		time.Sleep(time.Duration(rand.Int64N(int64(f.maxDelay))))
	}
	if err, ok := f.errs[string(image)]; ok {
		return provider.ProbeResult{}, err
	}
	if res, ok := f.results[string(image)]; ok {
		return res, nil
	}
	return provider.NotFound("unknown image"), nil
}

// fakeDirectory returns a profile named after the key, with optional failures and latency
type fakeDirectory struct {
	missing  map[string]bool
	failing  map[string]bool
	maxDelay time.Duration
	calls    atomic.Int32
}

func (d *fakeDirectory) Lookup(ctx context.Context, key string) (*domain.ProfileInfo, error) {
	d.calls.Add(1)
	if d.maxDelay > 0 {
		time.Sleep(time.Duration(rand.Int64N(int64(d.maxDelay))))
	}
	if d.failing[key] {
		return nil, errors.New("directory unavailable")
	}
	if d.missing[key] {
		return nil, nil
	}
	return &domain.ProfileInfo{Name: ptr("name-" + key), Group: ptr("G"), Age: ptr(20), ImageURL: ptr("https://img/" + key)}, nil
}

func workedGallery(t *testing.T) *gallery.Gallery {
	t.Helper()
	g, err := gallery.New([]domain.ReferenceEntry{
		{IdentityKey: "A", Embedding: domain.Embedding{1, 0, 0}},
		{IdentityKey: "B", Embedding: domain.Embedding{0, 1, 1}},
	}, 3)
	require.NoError(t, err)
	return g
}

func workedEmbedder() *fakeEmbedder {
	return &fakeEmbedder{results: map[string]provider.ProbeResult{
		"p1": provider.Found(domain.Embedding{1, 0, 0}),
		"p2": provider.Found(domain.Embedding{0, 1, 0}),
	}}
}

func TestRun_WorkedExample(t *testing.T) {
	p := New(workedEmbedder(), workedGallery(t), &fakeDirectory{missing: map[string]bool{"B": true}}, discardLogger(), Options{})

	result, err := p.Run(context.Background(), []Probe{{Name: "p1", Image: []byte("p1")}, {Name: "p2", Image: []byte("p2")}})

	require.NoError(t, err)
	require.Len(t, result.Matches, 2)
	assert.NotEqual(t, uuid.Nil, result.MatchID)
	assert.Equal(t, 2, result.ProbeCount)
	assert.Equal(t, 2, result.ValidProbeCount)
	assert.Equal(t, 2, result.GallerySize)

	a := result.Matches[0]
	assert.Equal(t, "A", a.IdentityKey)
	assert.InDelta(t, 0.7071, a.CosineSimilarity, 1e-4)
	assert.InDelta(t, 0.7071, a.EuclideanDistance, 1e-4)
	assert.InDelta(t, 0.2828, a.SimilarityScore, 1e-4)
	assert.Equal(t, "name-A", *a.Name)

	b := result.Matches[1]
	assert.Equal(t, "B", b.IdentityKey)
	assert.InDelta(t, 0.5, b.CosineSimilarity, 1e-4)
	assert.InDelta(t, math.Sqrt(1.5), b.EuclideanDistance, 1e-4)
	assert.Nil(t, b.Name)
}

func TestRun_StageSequence(t *testing.T) {
	var mu sync.Mutex
	var stages []Stage
	hook := func(id uuid.UUID, s Stage) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, s)
	}

	p := New(workedEmbedder(), workedGallery(t), &fakeDirectory{}, discardLogger(), Options{Hook: hook})
	_, err := p.Run(context.Background(), []Probe{{Name: "p1", Image: []byte("p1")}})

	require.NoError(t, err)
	assert.Equal(t, []Stage{
		StageStart, StageExtracting, StageFusing, StageScoring, StageRanking, StageEnriching, StageDone,
	}, stages)
}

func TestRun_AllProbesFailedNeverReachesFusion(t *testing.T) {
	var stages []Stage
	hook := func(id uuid.UUID, s Stage) { stages = append(stages, s) }

	emb := &fakeEmbedder{results: map[string]provider.ProbeResult{
		"blank":   provider.NotFound("no face"),
		"corrupt": provider.DecodeError("bad bytes"),
	}}
	dir := &fakeDirectory{}
	p := New(emb, workedGallery(t), dir, discardLogger(), Options{Hook: hook})

	result, err := p.Run(context.Background(), []Probe{{Name: "blank", Image: []byte("blank")}, {Name: "corrupt", Image: []byte("corrupt")}})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNoValidProbe)
	assert.NotContains(t, stages, StageFusing)
	assert.Equal(t, StageFailed, stages[len(stages)-1])
	assert.Zero(t, dir.calls.Load())
}

func TestRun_FailedProbesAreExcludedFromFusion(t *testing.T) {
	emb := &fakeEmbedder{results: map[string]provider.ProbeResult{
		"good":  provider.Found(domain.Embedding{1, 0, 0}),
		"blank": provider.NotFound("no face"),
	}}
	p := New(emb, workedGallery(t), &fakeDirectory{}, discardLogger(), Options{})

	result, err := p.Run(context.Background(), []Probe{{Name: "blank", Image: []byte("blank")}, {Name: "good", Image: []byte("good")}})

	require.NoError(t, err)
	assert.Equal(t, 1, result.ValidProbeCount)
	assert.Equal(t, "A", result.Matches[0].IdentityKey)
	assert.InDelta(t, 1.2, result.Matches[0].SimilarityScore, 1e-9)
}

func TestRun_Errors(t *testing.T) {
	emptyGallery, err := gallery.New(nil, 3)
	require.NoError(t, err)

	tests := []struct {
		name    string
		emb     *fakeEmbedder
		gallery Gallery
		probes  []Probe
		wantErr error
	}{
		{
			name:    "no probes",
			emb:     workedEmbedder(),
			gallery: workedGallery(t),
			wantErr: domain.ErrNoValidProbe,
		},
		{
			name:    "empty gallery",
			emb:     workedEmbedder(),
			gallery: emptyGallery,
			probes:  []Probe{{Name: "p1", Image: []byte("p1")}},
			wantErr: domain.ErrEmptyGallery,
		},
		{
			name: "probe dimension mismatch",
			emb: &fakeEmbedder{results: map[string]provider.ProbeResult{
				"short": provider.Found(domain.Embedding{1, 0}),
			}},
			gallery: workedGallery(t),
			probes:  []Probe{{Name: "short", Image: []byte("short")}},
			wantErr: domain.ErrShapeMismatch,
		},
		{
			name: "probe with NaN component",
			emb: &fakeEmbedder{results: map[string]provider.ProbeResult{
				"p1":  provider.Found(domain.Embedding{1, 0, 0}),
				"nan": provider.Found(domain.Embedding{0, math.NaN(), 0}),
			}},
			gallery: workedGallery(t),
			probes:  []Probe{{Name: "p1", Image: []byte("p1")}, {Name: "nan", Image: []byte("nan")}},
			wantErr: domain.ErrShapeMismatch,
		},
		{
			name: "probe with infinite component",
			emb: &fakeEmbedder{results: map[string]provider.ProbeResult{
				"inf": provider.Found(domain.Embedding{math.Inf(-1), 0, 0}),
			}},
			gallery: workedGallery(t),
			probes:  []Probe{{Name: "inf", Image: []byte("inf")}},
			wantErr: domain.ErrShapeMismatch,
		},
		{
			name:    "provider failure",
			emb:     &fakeEmbedder{errs: map[string]error{"p1": errors.New("connection refused")}},
			gallery: workedGallery(t),
			probes:  []Probe{{Name: "p1", Image: []byte("p1")}},
			wantErr: domain.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.emb, tt.gallery, &fakeDirectory{}, discardLogger(), Options{})

			result, err := p.Run(context.Background(), tt.probes)

			assert.Nil(t, result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var appErr *domain.AppError
			assert.True(t, errors.As(err, &appErr))
		})
	}
}

func TestRun_ProviderFailureKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	emb := &fakeEmbedder{errs: map[string]error{"p1": cause}}
	p := New(emb, workedGallery(t), &fakeDirectory{}, discardLogger(), Options{})

	_, err := p.Run(context.Background(), []Probe{{Name: "p1", Image: []byte("p1")}})

	assert.ErrorIs(t, err, cause)
}

func TestRun_OrderPreservedUnderConcurrency(t *testing.T) {
	const n = 40
	entries := make([]domain.ReferenceEntry, n)
	for i := range entries {
		// strictly decreasing similarity to [1,0]
		angle := float64(i) * 0.03
		entries[i] = domain.ReferenceEntry{
			IdentityKey: fmt.Sprintf("id-%02d", i),
			Embedding:   domain.Embedding{math.Cos(angle), math.Sin(angle)},
		}
	}
	g, err := gallery.New(entries, 2)
	require.NoError(t, err)

	emb := &fakeEmbedder{maxDelay: 2 * time.Millisecond, results: map[string]provider.ProbeResult{}}
	probes := make([]Probe, 5)
	for i := range probes {
		key := fmt.Sprintf("probe-%d", i)
		emb.results[key] = provider.Found(domain.Embedding{1, 0})
		probes[i] = Probe{Name: key, Image: []byte(key)}
	}
	dir := &fakeDirectory{maxDelay: 3 * time.Millisecond}

	p := New(emb, g, dir, discardLogger(), Options{TopK: 25, ExtractWorkers: 4, EnrichWorkers: 8})
	result, err := p.Run(context.Background(), probes)

	require.NoError(t, err)
	require.Len(t, result.Matches, 25)
	for i, m := range result.Matches {
		assert.Equal(t, fmt.Sprintf("id-%02d", i), m.IdentityKey)
		require.NotNil(t, m.Name)
		assert.Equal(t, "name-"+m.IdentityKey, *m.Name)
	}
	assert.Equal(t, int32(5), emb.calls.Load())
	assert.Equal(t, int32(25), dir.calls.Load())
}

func TestRun_ResultBoundedByK(t *testing.T) {
	tests := []struct {
		name    string
		gallery int
		k       int
		want    int
	}{
		{name: "gallery larger than K", gallery: 15, k: 0, want: matching.DefaultTopK},
		{name: "gallery smaller than K", gallery: 3, k: 10, want: 3},
		{name: "custom K", gallery: 15, k: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]domain.ReferenceEntry, tt.gallery)
			for i := range entries {
				entries[i] = domain.ReferenceEntry{IdentityKey: fmt.Sprint(i), Embedding: domain.Embedding{float64(i), 1}}
			}
			g, err := gallery.New(entries, 2)
			require.NoError(t, err)

			emb := &fakeEmbedder{results: map[string]provider.ProbeResult{"p": provider.Found(domain.Embedding{1, 1})}}
			p := New(emb, g, &fakeDirectory{}, discardLogger(), Options{TopK: tt.k})

			result, err := p.Run(context.Background(), []Probe{{Name: "p", Image: []byte("p")}})
			require.NoError(t, err)
			assert.Len(t, result.Matches, tt.want)

			for i := 1; i < len(result.Matches); i++ {
				assert.GreaterOrEqual(t, result.Matches[i-1].SimilarityScore, result.Matches[i].SimilarityScore)
			}
		})
	}
}

func TestEnricher_ProfileFieldsAlwaysPresent(t *testing.T) {
	dir := &fakeDirectory{
		missing: map[string]bool{"miss": true},
		failing: map[string]bool{"broken": true},
	}
	e := NewEnricher(dir, 2, discardLogger())

	out := e.Enrich(context.Background(), []domain.ScoredCandidate{
		{IdentityKey: "hit", SimilarityScore: 3},
		{IdentityKey: "miss", SimilarityScore: 2},
		{IdentityKey: "broken", SimilarityScore: 1},
	})

	require.Len(t, out, 3)
	assert.Equal(t, []string{"hit", "miss", "broken"}, []string{out[0].IdentityKey, out[1].IdentityKey, out[2].IdentityKey})
	assert.Equal(t, "name-hit", *out[0].Name)

	for _, m := range out {
		raw, err := json.Marshal(m)
		require.NoError(t, err)

		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		for _, key := range []string{"identity_key", "cosine_similarity", "euclidean_distance", "similarity_score", "name", "group", "age", "imageUrl"} {
			assert.Contains(t, fields, key)
		}
	}
	assert.Nil(t, out[1].Name)
	assert.Nil(t, out[2].ImageURL)
}

func TestEnricher_Sequential(t *testing.T) {
	dir := &fakeDirectory{}
	e := NewEnricher(dir, 0, discardLogger())

	out := e.Enrich(context.Background(), []domain.ScoredCandidate{{IdentityKey: "x"}})

	require.Len(t, out, 1)
	assert.Equal(t, int32(1), dir.calls.Load())
}
