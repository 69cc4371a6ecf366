package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
dialect: postgresql14
catalog:
  mode: static
  snapshot_path: /schema.yaml
completion:
  max_items: 50
`

func TestLoadDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := Load(fs, "")
	require.Error(t, err) // default mode is live, no connection string set
	_ = c
}

func TestLoadFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/sqlls.yaml", []byte(fixtureYAML), 0o644))

	c, err := Load(fs, "/sqlls.yaml")
	require.NoError(t, err)
	require.Equal(t, "postgresql14", c.Dialect)
	require.Equal(t, CatalogModeStatic, c.Catalog.Mode)
	require.Equal(t, 50, c.Completion.MaxItems)
	require.Equal(t, []string{".", " "}, c.Completion.TriggerCharacters)
}

func TestValidateRejectsUnknownDialect(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("dialect: oracle19\ncatalog:\n  mode: static\n  snapshot_path: /x.yaml\n"), 0o644))

	_, err := Load(fs, "/bad.yaml")
	require.Error(t, err)
}

func TestValidateRequiresConnectionStringForLiveMode(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/live.yaml", []byte("dialect: mysql8.0\ncatalog:\n  mode: live\n"), 0o644))

	_, err := Load(fs, "/live.yaml")
	require.Error(t, err)
}
