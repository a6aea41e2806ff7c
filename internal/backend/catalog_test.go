package backend

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-offline-sync/internal/logger"
)

const yamlCatalog = `
pois:
  - id: gate-a
    name:
      en: Gate A
      de: Tor A
    category: gate
    coordinates: {floor: 1, x: 10.5, y: 3}
rewards:
  - id: coffee
    point_cost: 30
    quantity_available: 5
balances:
  - id: u1
    points: 120
    tier_id: gold
`

const jsonCatalog = `{
  "rewards": [{"id": "coffee", "point_cost": 30, "quantity_available": 5, "version": 4}],
  "profiles": [{"id": "u1", "locale": "de", "preferences": {"theme": "dark"}}]
}`

func TestLoadCatalog_YAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/seed/catalog.yaml", []byte(yamlCatalog), 0o644))

	c, err := LoadCatalog(fs, "/seed/catalog.yaml")
	require.NoError(t, err)

	require.Len(t, c.POIs, 1)
	assert.Equal(t, "Tor A", c.POIs[0].Name["de"])
	assert.Equal(t, 1, c.POIs[0].Coordinates.Floor)
	require.Len(t, c.Rewards, 1)
	assert.Equal(t, int64(30), c.Rewards[0].PointCost)
	require.Len(t, c.Balances, 1)
	assert.Equal(t, int64(120), c.Balances[0].Points)

	l := NewLedger(logger.Nop())
	l.Seed(c)
	assert.Equal(t, int64(120), l.Balance("u1").Points)
	assert.Equal(t, int64(1), l.Balance("u1").VersionValue())
}

func TestLoadCatalog_JSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "catalog.json", []byte(jsonCatalog), 0o644))

	c, err := LoadCatalog(fs, "catalog.json")
	require.NoError(t, err)

	require.Len(t, c.Rewards, 1)
	assert.Equal(t, int64(4), c.Rewards[0].VersionValue())
	require.Len(t, c.Profiles, 1)
	assert.Equal(t, "dark", c.Profiles[0].Preferences.Theme)
}

func TestLoadCatalog_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "catalog.toml", []byte(`x = 1`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "broken.yaml", []byte("pois: [\n"), 0o644))

	_, err := LoadCatalog(fs, "catalog.toml")
	assert.ErrorIs(t, err, ErrUnsupportedCatalogFormat)

	_, err = LoadCatalog(fs, "broken.yaml")
	assert.Error(t, err)

	_, err = LoadCatalog(fs, "missing.json")
	assert.Error(t, err)
}
