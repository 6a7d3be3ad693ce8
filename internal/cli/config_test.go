package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
database: /var/lib/refgraph.db
ids: sequence
allow_self_subscription: true
allow_duplicate_subscriptions: true
`))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Database:                    "/var/lib/refgraph.db",
		IDs:                         IDsSequence,
		AllowSelfSubscription:       true,
		AllowDuplicateSubscriptions: true,
	}, cfg)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestParseConfig_UnknownKey(t *testing.T) {
	_, err := ParseConfig([]byte("database: x.db\ncache: redis\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache")
}

func TestParseConfig_InvalidIDs(t *testing.T) {
	_, err := ParseConfig([]byte("ids: snowflake\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snowflake")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
