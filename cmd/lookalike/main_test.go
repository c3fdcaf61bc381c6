package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

type cliTestEnv struct {
	dir string
}

// setupCLITestEnv points the CLI at a three-entry CSV gallery, a member file
// and the deterministic mock embedder.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{dir: t.TempDir()}
	galleryPath := env.write(t, "gallery.csv", "image_name,v1,v2,v3\nA,1,0,0\nB,0,1,1\nC,0,0,1\n")
	membersPath := env.write(t, "members.json", `[{"name":"Aiko","group":"Blue Notes","imageNames":["A","B","C"]}]`)

	t.Setenv("ENV", "test")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROVIDER_TYPE", "mock")
	t.Setenv("PROBE_DETECTOR", "none")
	t.Setenv("EMBEDDING_DIM", "3")
	t.Setenv("TOP_K", "10")
	t.Setenv("MAX_PROBE_IMAGES", "3")
	t.Setenv("GALLERY_SOURCE", "csv")
	t.Setenv("GALLERY_CSV", galleryPath)
	t.Setenv("PROFILE_SOURCE", "file")
	t.Setenv("PROFILE_FILE", membersPath)

	return env
}

func (e *cliTestEnv) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// photo is big enough for the mock embedder to find a face
func (e *cliTestEnv) photo(t *testing.T, name string) string {
	return e.write(t, name, string(bytes.Repeat([]byte(name), 2048/len(name)+1)))
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestMatchCommand(t *testing.T) {
	t.Run("prints ranked array", func(t *testing.T) {
		env := setupCLITestEnv(t)

		code, stdout, stderr := run("match", env.photo(t, "front.jpg"), env.photo(t, "side.jpg"))

		require.Equal(t, exitOK, code, stderr)
		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &records))
		require.Len(t, records, 3)
		for i, r := range records {
			assert.Equal(t, "Aiko", r["name"])
			for _, field := range []string{"identity_key", "cosine_similarity", "euclidean_distance", "similarity_score", "group", "age", "imageUrl"} {
				assert.Contains(t, r, field)
			}
			if i > 0 {
				assert.LessOrEqual(t, r["similarity_score"], records[i-1]["similarity_score"])
			}
		}
	})

	t.Run("top-k flag bounds the output", func(t *testing.T) {
		env := setupCLITestEnv(t)

		code, stdout, _ := run("match", "-k", "1", env.photo(t, "front.jpg"))

		require.Equal(t, exitOK, code)
		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &records))
		assert.Len(t, records, 1)
	})

	t.Run("names stay unescaped", func(t *testing.T) {
		env := setupCLITestEnv(t)
		t.Setenv("PROFILE_FILE", env.write(t, "jp.json", `[{"name":"あいこ <A&B>","imageNames":["A","B","C"]}]`))

		code, stdout, _ := run("match", env.photo(t, "front.jpg"))

		require.Equal(t, exitOK, code)
		assert.Contains(t, stdout, "あいこ <A&B>")
	})

	t.Run("no usable probe", func(t *testing.T) {
		env := setupCLITestEnv(t)

		code, stdout, _ := run("match", env.write(t, "tiny.jpg", "tiny"), filepath.Join(env.dir, "missing.jpg"))

		assert.Equal(t, exitNoValidProbe, code)
		var out map[string]any
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.Equal(t, map[string]any{"error": domain.ErrNoValidProbe.Message}, out)
	})

	t.Run("empty gallery", func(t *testing.T) {
		env := setupCLITestEnv(t)
		t.Setenv("GALLERY_CSV", env.write(t, "empty.csv", "image_name,v1,v2,v3\n"))

		code, stdout, _ := run("match", env.photo(t, "front.jpg"))

		assert.Equal(t, exitGallery, code)
		assert.JSONEq(t, `{"error":"Reference gallery is empty"}`, stdout)
	})

	t.Run("unreadable gallery", func(t *testing.T) {
		env := setupCLITestEnv(t)
		t.Setenv("GALLERY_CSV", filepath.Join(env.dir, "missing.csv"))

		code, stdout, _ := run("match", env.photo(t, "front.jpg"))

		assert.Equal(t, exitGallery, code)
		assert.JSONEq(t, `{"error":"Reference gallery could not be read"}`, stdout)
	})

	t.Run("too many images", func(t *testing.T) {
		env := setupCLITestEnv(t)
		p := env.photo(t, "front.jpg")

		code, _, _ := run("match", p, p, p, p)

		assert.Equal(t, exitUsage, code)
	})

	t.Run("missing arguments", func(t *testing.T) {
		setupCLITestEnv(t)

		code, stdout, stderr := run("match")

		assert.Equal(t, exitUsage, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "requires at least 1 arg")
	})

	t.Run("unknown flag", func(t *testing.T) {
		env := setupCLITestEnv(t)

		code, _, _ := run("match", "--bogus", env.photo(t, "front.jpg"))

		assert.Equal(t, exitUsage, code)
	})
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	setupCLITestEnv(t)

	code, _, _ := run("frobnicate")

	assert.Equal(t, exitUsage, code)
}

func TestImportCommands_RequireDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	code, _, stderr := run("import-gallery", filepath.Join(env.dir, "gallery.csv"))
	assert.Equal(t, exitUnexpected, code)
	assert.Contains(t, stderr, "DATABASE_URL")

	code, _, stderr = run("import-members", filepath.Join(env.dir, "members.json"))
	assert.Equal(t, exitUnexpected, code)
	assert.Contains(t, stderr, "DATABASE_URL")
}

func TestImportGallery_RejectsBadCSVBeforeConnecting(t *testing.T) {
	env := setupCLITestEnv(t)
	bad := env.write(t, "bad.csv", "image_name,v1,v2\nA,1,0\n")

	code, _, stderr := run("import-gallery", bad)

	assert.Equal(t, exitGallery, code)
	assert.NotContains(t, stderr, "DATABASE_URL")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitUnexpected},
		{&usageError{err: errors.New("bad flag")}, exitUsage},
		{domain.ErrTooManyImages, exitUsage},
		{domain.ErrNoValidProbe.WithError(errors.New("x")), exitNoValidProbe},
		{domain.ErrEmptyGallery, exitGallery},
		{fmt.Errorf("load: %w", domain.ErrGalleryUnreadable), exitGallery},
		{domain.ErrShapeMismatch, exitShapeMismatch},
		{&reportedError{err: domain.ErrProviderUnavailable}, exitProviderUnavailable},
		{domain.ErrInternal, exitUnexpected},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
