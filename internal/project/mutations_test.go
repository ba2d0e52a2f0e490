package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
)

func TestAddComponent_CopiesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstance(t, config.Options{InputDir: dir}, &fakeBuilder{}, &fakeTransport{})

	src := filepath.Join(t.TempDir(), "chart.js")
	require.NoError(t, os.WriteFile(src, []byte("export default 1"), 0o644))
	require.NoError(t, inst.AddComponent(src))

	dest := filepath.Join(dir, "components", "chart.js")
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "export default 1", string(got))

	// Same base name overwrites rather than duplicating.
	require.NoError(t, os.WriteFile(src, []byte("export default 2"), 0o644))
	require.NoError(t, inst.AddComponent(src))
	got, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "export default 2", string(got))

	components, err := inst.Components()
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "chart", components[0].Name)
}

func TestAddComponent_UnreadableSource(t *testing.T) {
	inst := newTestInstance(t, config.Options{}, &fakeBuilder{}, &fakeTransport{})

	err := inst.AddComponent(filepath.Join(t.TempDir(), "missing.js"))
	require.Error(t, err)
	var le *errors.LoomError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, errors.CategoryFileSystem, le.Category)
}

func TestAddDataset_ThenList(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstance(t, config.Options{InputDir: dir}, &fakeBuilder{}, &fakeTransport{})

	src := filepath.Join(t.TempDir(), "population.csv")
	require.NoError(t, os.WriteFile(src, []byte("year,count\n2020,10\n"), 0o644))
	require.NoError(t, inst.AddDataset(src))

	datasets, err := inst.Datasets()
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "population.csv", datasets[0].Name)
	assert.Equal(t, ".csv", datasets[0].Extension)
}

func TestDatasets_MissingDirectoryErrors(t *testing.T) {
	inst := newTestInstance(t, config.Options{}, &fakeBuilder{}, &fakeTransport{})

	_, err := inst.Datasets()
	require.Error(t, err)
}

func TestComponentsDirectory_ProjectDirLast(t *testing.T) {
	dir := t.TempDir()
	inst := newTestInstance(t, config.Options{InputDir: dir}, &fakeBuilder{}, &fakeTransport{})

	dirs, err := inst.ComponentsDirectory()
	require.NoError(t, err)
	require.NotEmpty(t, dirs)
	assert.Equal(t, filepath.Join(dir, "components"), dirs[len(dirs)-1])
}
