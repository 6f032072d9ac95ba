package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/evacguide/internal/adapters/catalog"
	"github.com/samirrijal/evacguide/internal/core/domain"
)

const yamlCatalog = `
shelters:
  - id: p-001
    name: Pohang Gymnasium
    lat: 36.0190
    lon: 129.3435
    category: gym
    capacity: "1,200"
  - name: Harbor School
    lat: 36.0321
    lon: 129.3650
    category: school
`

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelters.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlCatalog), 0o600))

	f, err := catalog.LoadFile(path)
	require.NoError(t, err)

	shelters, err := f.List(context.Background())
	require.NoError(t, err)
	require.Len(t, shelters, 2)
	assert.Equal(t, "p-001", shelters[0].ID)
	assert.Equal(t, "1,200", shelters[0].CapacityText)
	assert.Equal(t, "shelter_2", shelters[1].ID)
	assert.Equal(t, domain.Coordinate{Lat: 36.0321, Lon: 129.3650}, shelters[1].Location)
}

func TestParse_JSONList(t *testing.T) {
	f, err := catalog.Parse([]byte(`[{"id":"a","name":"A","lat":36.0,"lon":129.3,"category":"hall"}]`), false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
}

func TestParse_JSONDocument(t *testing.T) {
	f, err := catalog.Parse([]byte(`{"shelters":[{"id":"a","lat":36.0,"lon":129.3},{"id":"b","lat":36.1,"lon":129.4}]}`), false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad coordinate": `[{"id":"a","lat":123,"lon":129.3}]`,
		"duplicate id":   `[{"id":"a","lat":36,"lon":129},{"id":"a","lat":36.1,"lon":129.1}]`,
		"not json":       `shelters: nope`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(doc), false)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestFile_ListWithin(t *testing.T) {
	f, err := catalog.Parse([]byte(yamlCatalog), true)
	require.NoError(t, err)

	// Harbor School is about 2.3 km from the gymnasium.
	origin := domain.Coordinate{Lat: 36.0190, Lon: 129.3435}
	near, err := f.ListWithin(context.Background(), origin, 1000)
	require.NoError(t, err)
	require.Len(t, near, 1)
	assert.Equal(t, "p-001", near[0].ID)

	all, err := f.ListWithin(context.Background(), origin, 5000)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := f.ListWithin(context.Background(), domain.Coordinate{Lat: 37.5, Lon: 127.0}, 1000)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := catalog.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
