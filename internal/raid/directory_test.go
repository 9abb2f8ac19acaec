package raid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := Load(filepath.Join("testdata", "gyms.yaml"))
	require.NoError(t, err)
	return d
}

func TestLoadGymFile(t *testing.T) {
	d := testDirectory(t)
	assert.Equal(t, 3, d.Len())

	gyms := d.Gyms()
	assert.Equal(t, "Clock Tower", gyms[0].Name)
	assert.Equal(t, "Painted Parking Lot", gyms[1].Name)
	assert.Equal(t, "Riverside Fountain", gyms[2].Name)
}

func TestLoadRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gyms: []\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLookupExact(t *testing.T) {
	d := testDirectory(t)

	gym, err := d.Lookup("Painted Parking Lot")
	require.NoError(t, err)
	assert.Equal(t, "Painted Parking Lot", gym.Name)

	gym, err = d.Lookup("PAINTED LOT") // alias, case-insensitive
	require.NoError(t, err)
	assert.Equal(t, "Painted Parking Lot", gym.Name)
}

func TestLookupUniqueSubstring(t *testing.T) {
	d := testDirectory(t)

	gym, err := d.Lookup("painted")
	require.NoError(t, err)
	assert.Equal(t, "Painted Parking Lot", gym.Name)

	gym, err = d.Lookup("tower")
	require.NoError(t, err)
	assert.Equal(t, "Clock Tower", gym.Name)
}

func TestLookupFuzzy(t *testing.T) {
	d := testDirectory(t)

	gym, err := d.Lookup("panited lot") // transposed typo
	require.NoError(t, err)
	assert.Equal(t, "Painted Parking Lot", gym.Name)
}

func TestLookupAmbiguous(t *testing.T) {
	d := testDirectory(t)

	_, err := d.Lookup("er") // substring of several gyms
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestLookupNoMatch(t *testing.T) {
	d := testDirectory(t)

	_, err := d.Lookup("zzzzzz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no gym matches")

	_, err = d.Lookup("   ")
	assert.Error(t, err)
}

func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gyms:\n  - name: Old Gym\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())

	require.NoError(t, os.WriteFile(path, []byte("gyms: [unclosed"), 0o644))
	assert.Error(t, d.Reload())
	assert.Equal(t, 1, d.Len())

	_, err = d.Lookup("old gym")
	assert.NoError(t, err)
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gyms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gyms:\n  - name: Old Gym\n"), 0o644))

	d, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("gyms:\n  - name: Old Gym\n  - name: New Gym\n"), 0o644))
	require.NoError(t, d.Reload())
	assert.Equal(t, 2, d.Len())
}

func TestInPlaceGlobs(t *testing.T) {
	gym := Gym{Name: "Clock Tower", Places: []string{"downtown", "old-town"}}

	assert.True(t, gym.InPlace(nil))
	assert.True(t, gym.InPlace([]string{"downtown"}))
	assert.True(t, gym.InPlace([]string{"*town"}))
	assert.True(t, gym.InPlace([]string{"riverside", "old-*"}))
	assert.False(t, gym.InPlace([]string{"riverside"}))
}
