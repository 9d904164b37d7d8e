package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRegistry = "0x1000000000000000000000000000000000000001"
const testEntryPoint = "0x1000000000000000000000000000000000000004"

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
feed:
  rpc_url: "http://localhost:8545"
  chunk_size: 1000
  start_block: 42
  finality: latest
  finalized_lag: 6
  poll_interval: "5s"
  contracts:
    registry: "`+testRegistry+`"
    entry_point: "`+testEntryPoint+`"
db:
  path: "/tmp/rep.db"
ingest:
  skip_malformed: true
logging:
  default_level: debug
  component_levels:
    feed: warn
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8545", cfg.Feed.RPCURL)
	assert.EqualValues(t, 1000, cfg.Feed.ChunkSize)
	assert.EqualValues(t, 42, cfg.Feed.StartBlock)
	assert.Equal(t, "latest", cfg.Feed.Finality)
	assert.EqualValues(t, 6, cfg.Feed.FinalizedLag)
	assert.Equal(t, 5*time.Second, cfg.Feed.PollInterval.Duration)
	assert.True(t, cfg.Ingest.SkipMalformed)
	assert.Equal(t, "debug", cfg.Logging.GetDefaultLevel())
	assert.Equal(t, "warn", cfg.Logging.GetComponentLevel("feed"))
	assert.Equal(t, "debug", cfg.Logging.GetComponentLevel("store"))

	// Defaults fill what the file leaves out.
	assert.Equal(t, "WAL", cfg.DB.JournalMode)
	assert.EqualValues(t, 20, cfg.Scoring.TxCountWeight)
	assert.EqualValues(t, 25, cfg.Scoring.SuccessRateWeight)
	assert.EqualValues(t, 90, cfg.Scoring.RecencyWindowDays)
}

func TestLoadFromJSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.json", `{
  "feed": {
    "rpc_url": "http://localhost:8545",
    "contracts": {
      "registry": "`+testRegistry+`",
      "entry_point": "`+testEntryPoint+`"
    }
  },
  "db": {"path": "/tmp/rep.db"},
  "scoring": {"tx_count_weight": 30}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 30, cfg.Scoring.TxCountWeight)
	assert.Equal(t, "finalized", cfg.Feed.Finality)
	assert.EqualValues(t, 5000, cfg.Feed.ChunkSize)
}

func TestLoadFromTOML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", `
[feed]
rpc_url = "http://localhost:8545"

[feed.contracts]
registry = "`+testRegistry+`"
entry_point = "`+testEntryPoint+`"

[db]
path = "/tmp/rep.db"

[feed.retry]
max_attempts = 3
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Feed.Retry)
	assert.Equal(t, 3, cfg.Feed.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Feed.Retry.InitialBackoff.Duration)
	assert.Equal(t, 2.0, cfg.Feed.Retry.BackoffMultiplier)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile("config.ini")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "missing rpc url",
			yaml: `
feed:
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
`,
			wantErr: "feed.rpc_url is required",
		},
		{
			name: "missing registry",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
`,
			wantErr: "feed.contracts.registry is required",
		},
		{
			name: "invalid entry point address",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "not-an-address"
db:
  path: "/tmp/rep.db"
`,
			wantErr: "not a valid hex address",
		},
		{
			name: "invalid finality",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  finality: pending
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
`,
			wantErr: "feed.finality",
		},
		{
			name: "missing db path",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
`,
			wantErr: "db.path is required",
		},
		{
			name: "negative scoring weight",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
scoring:
  tx_count_weight: -5
`,
			wantErr: "must be non-negative",
		},
		{
			name: "unknown logging component",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
logging:
  component_levels:
    nosuch: debug
`,
			wantErr: "unknown component",
		},
		{
			name: "invalid wal checkpoint mode",
			yaml: `
feed:
  rpc_url: "http://localhost:8545"
  contracts:
    registry: "` + testRegistry + `"
    entry_point: "` + testEntryPoint + `"
db:
  path: "/tmp/rep.db"
  maintenance:
    enabled: true
    wal_checkpoint_mode: AGGRESSIVE
`,
			wantErr: "wal_checkpoint_mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, "config.yaml", tt.yaml)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
