package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validProfileTOML = `
resume_text = "Experienced backend engineer."
skills = ["Go", "Kubernetes"]
education = "BSc Computer Science"

[preferences]
work_type = "remote"
remote_preferred = true
keywords = ["backend"]
`

func writeTempProfile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileSource_LoadsAndCaches(t *testing.T) {
	path := writeTempProfile(t, validProfileTOML)
	src := NewFileSource(path)

	p, err := src.ActiveProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Kubernetes"}, p.Skills)
	assert.Equal(t, "remote", string(p.Preferences.WorkType))

	// Overwrite the file; cached value must not change until Reload.
	require.NoError(t, os.WriteFile(path, []byte(validProfileTOML+"\n"), 0o644))
	p2, err := src.ActiveProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p, p2)
}

func TestFileSource_ReloadPicksUpExternalEdits(t *testing.T) {
	path := writeTempProfile(t, validProfileTOML)
	src := NewFileSource(path)

	_, err := src.ActiveProfile(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
resume_text = "Updated resume."
skills = ["Rust"]

[preferences]
work_type = "office"
`), 0o644))

	require.NoError(t, src.Reload(context.Background()))
	p, err := src.ActiveProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, p.Skills)
	assert.Equal(t, "office", string(p.Preferences.WorkType))
}

func TestFileSource_InvalidProfileRejected(t *testing.T) {
	path := writeTempProfile(t, `resume_text = "no skills or preferences"`)
	src := NewFileSource(path)

	_, err := src.ActiveProfile(context.Background())
	assert.Error(t, err)
}

func TestFileSource_MissingFileErrors(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.toml"))
	_, err := src.ActiveProfile(context.Background())
	assert.Error(t, err)
}
