package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "refgraph", cmd.Use)
	assert.Contains(t, cmd.Long, "cascading account deletion")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"account", "list"}, {"account", "get"}, {"account", "create"}, {"account", "update"},
		{"account", "delete"}, {"account", "subscribe"}, {"account", "unsubscribe"}, {"account", "is-subscribed"},
		{"post", "list"}, {"post", "get"}, {"post", "create"}, {"post", "update"}, {"post", "delete"},
		{"profile", "list"}, {"profile", "get"}, {"profile", "create"}, {"profile", "update"}, {"profile", "delete"},
		{"member-type", "list"}, {"member-type", "get"}, {"member-type", "update"},
		{"seed"}, {"journal"}, {"validate"}, {"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(filepath.Join(path...), func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, DefaultDatabase, dbFlag.DefValue)

	idsFlag := cmd.PersistentFlags().Lookup("ids")
	require.NotNil(t, idsFlag)
	assert.Equal(t, IDsUUID, idsFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMutatingCommandsRequireData(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"account", "create"}, {"account", "update"},
		{"post", "create"}, {"post", "update"},
		{"profile", "create"}, {"profile", "update"},
		{"member-type", "update"},
	} {
		subCmd, _, err := cmd.Find(path)
		require.NoError(t, err)
		flag := subCmd.Flags().Lookup("data")
		require.NotNil(t, flag, "%v should have --data", path)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestInvalidFormat(t *testing.T) {
	r := runCLI(t, "member-type", "list", "--db", ":memory:", "--format", "xml")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	assert.Contains(t, r.err.Error(), "invalid format")
}

func TestInvalidIDs(t *testing.T) {
	r := runCLI(t, "member-type", "list", "--db", ":memory:", "--ids", "random")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestMissingArgsIsCommandError(t *testing.T) {
	r := runCLI(t, "account", "get", "--db", ":memory:")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "accepts 1 arg")
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	assert.False(t, IsReported(r.err))
}

func TestConfigFileAppliesDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "from-config.db")
	cfg := filepath.Join(dir, "refgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+db+"\nids: sequence\n"), 0644))

	r := runCLI(t, "account", "create", "--config", cfg, "--format", "json",
		"--data", `{"firstName":"Ada","lastName":"L","email":"ada@example.com"}`)
	require.NoError(t, r.err, "stderr: %s", r.stderr)
	assert.Equal(t, "account-1", r.record(t)["id"])

	_, err := os.Stat(db)
	assert.NoError(t, err, "config database should be created")
}

func TestFlagOverridesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgDB := filepath.Join(dir, "config.db")
	flagDB := filepath.Join(dir, "flag.db")
	cfg := filepath.Join(dir, "refgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("database: "+cfgDB+"\n"), 0644))

	r := runCLI(t, "member-type", "list", "--config", cfg, "--db", flagDB)
	require.NoError(t, r.err, "stderr: %s", r.stderr)

	_, err := os.Stat(flagDB)
	assert.NoError(t, err)
	_, err = os.Stat(cfgDB)
	assert.True(t, os.IsNotExist(err))
}

func TestConfigEnablesSelfSubscription(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "refgraph.db")
	cfg := filepath.Join(dir, "refgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("allow_self_subscription: true\n"), 0644))

	id := createAccount(t, db, "ada")

	r := runCLI(t, "account", "subscribe", id, id, "--db", db, "--format", "json")
	require.Error(t, r.err)
	assert.Equal(t, ExitClientError, GetExitCode(r.err))

	r = runCLI(t, "account", "subscribe", id, id, "--db", db, "--config", cfg, "--format", "json")
	require.NoError(t, r.err, "stderr: %s", r.stderr)
	assert.Equal(t, []any{id}, r.record(t)["subscribedToUserIds"])
}

func TestBadConfigIsCommandError(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "refgraph.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("databse: typo.db\n"), 0644))

	r := runCLI(t, "member-type", "list", "--config", cfg, "--db", ":memory:")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	assert.Contains(t, r.err.Error(), "failed to load config")
}
