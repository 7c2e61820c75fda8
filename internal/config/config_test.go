package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "title_author", cfg.Matching.SearchType)
	assert.Equal(t, "similar", cfg.Matching.TitleMatch)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 6, cfg.Soundex.TitleLength)
}

func TestLoadConfigFromFile(t *testing.T) {
	yamlContent := `
logging:
  level: debug
  format: console

matching:
  search_type: identifier
  identifier_type: isbn
  sort_by_title: false

soundex:
  title_length: 4

store:
  driver: postgres
  dsn: "postgres://localhost/bookdupe"

paths:
  exemptions_file: "./data/exemptions.json"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "identifier", cfg.Matching.SearchType)
	assert.Equal(t, "isbn", cfg.Matching.IdentifierType)
	assert.False(t, cfg.Matching.SortByTitle)
	assert.Equal(t, 4, cfg.Soundex.TitleLength)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/bookdupe", cfg.Store.DSN)
	assert.Equal(t, "./data/exemptions.json", cfg.Paths.ExemptionsFile)

	// Fields absent from the file fall back to DefaultConfig's values.
	assert.Equal(t, 8, cfg.Soundex.AuthorLength)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Matching.SearchType, cfg.Matching.SearchType)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	yamlContent := "logging:\n  level: debug\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidateRejectsUnknownSearchType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matching.SearchType = "bogus"
	err := cfg.Validate()
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestValidateRequiresIdentifierTypeInIdentifierMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matching.SearchType = "identifier"
	cfg.Matching.IdentifierType = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresRemoteMetadataEndpointWhenEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoteMetadata.Enabled = true
	cfg.RemoteMetadata.Endpoint = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownStoreDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "oracle"
	require.Error(t, cfg.Validate())
}
