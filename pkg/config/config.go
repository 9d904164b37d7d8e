package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	intcommon "github.com/goran-ethernal/ReputationIndexor/internal/common"
	"github.com/goran-ethernal/ReputationIndexor/internal/logger"
)

// Config represents the complete configuration for the reputation indexer.
type Config struct {
	// Feed contains the blockchain event feed configuration
	Feed FeedConfig `yaml:"feed" json:"feed" toml:"feed"`

	// Scoring contains the reputation scoring weight/cap table
	Scoring ScoringConfig `yaml:"scoring" json:"scoring" toml:"scoring"`

	// Ingest contains the ingestion driver configuration
	Ingest IngestConfig `yaml:"ingest" json:"ingest" toml:"ingest"`

	// DB contains the entity store database configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the read API server configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// FeedConfig represents the configuration for the ordered on-chain event feed.
type FeedConfig struct {
	// RPCURL is the Ethereum RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// ChunkSize is the block range per eth_getLogs call
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// StartBlock is the block number to start ingesting from
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// Finality specifies the finality mode: "finalized", "safe", or "latest"
	Finality string `yaml:"finality" json:"finality" toml:"finality"`

	// FinalizedLag is the number of blocks behind head to consider finalized
	// Only used when Finality is set to "latest"
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	// PollInterval is how long to wait before re-polling when caught up with the head
	PollInterval intcommon.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// Contracts identifies the contracts whose events are consumed
	Contracts ContractsConfig `yaml:"contracts" json:"contracts" toml:"contracts"`
}

// ContractsConfig identifies the source contracts of the five consumed event kinds.
type ContractsConfig struct {
	// Registry is the domain registry contract (NameRegistered, BatchRegistered)
	Registry string `yaml:"registry" json:"registry" toml:"registry"`

	// WalletFactory is the agent wallet factory contract (AgentWalletDeployed)
	WalletFactory string `yaml:"wallet_factory" json:"wallet_factory" toml:"wallet_factory"`

	// Token is the USDC token contract (Transfer)
	Token string `yaml:"token" json:"token" toml:"token"`

	// EntryPoint is the ERC-4337 EntryPoint contract (UserOperationEvent).
	// It doubles as the classifier: registrations routed through it mark the
	// owner as an agent.
	EntryPoint string `yaml:"entry_point" json:"entry_point" toml:"entry_point"`
}

// EntryPointAddress returns the parsed EntryPoint address.
func (c *ContractsConfig) EntryPointAddress() common.Address {
	return common.HexToAddress(c.EntryPoint)
}

// ApplyDefaults sets default values for optional feed configuration fields.
func (f *FeedConfig) ApplyDefaults() {
	if f.ChunkSize == 0 {
		f.ChunkSize = 5000
	}
	if f.Finality == "" {
		f.Finality = "finalized"
	}
	if f.PollInterval.Duration == 0 {
		f.PollInterval = intcommon.NewDuration(12 * time.Second) //nolint:mnd // one Ethereum block time
	}
	if f.Retry != nil {
		f.Retry.ApplyDefaults()
	}
}

// ScoringConfig is the weight/cap table of the reputation score formula.
// Each factor contributes `min(value/target, 1) * weight` points, except the
// success-rate factor (a plain ratio) and the recency factor (a linear decay
// over RecencyWindowDays). Weights are expressed in score points.
type ScoringConfig struct {
	TxCountWeight int64 `yaml:"tx_count_weight" json:"tx_count_weight" toml:"tx_count_weight"`
	TxCountTarget int64 `yaml:"tx_count_target" json:"tx_count_target" toml:"tx_count_target"`

	SuccessRateWeight int64 `yaml:"success_rate_weight" json:"success_rate_weight" toml:"success_rate_weight"`

	AccountAgeWeight     int64 `yaml:"account_age_weight" json:"account_age_weight" toml:"account_age_weight"`
	AccountAgeTargetDays int64 `yaml:"account_age_target_days" json:"account_age_target_days" toml:"account_age_target_days"` //nolint:lll

	VolumeWeight     int64 `yaml:"volume_weight" json:"volume_weight" toml:"volume_weight"`
	VolumeTargetUSDC int64 `yaml:"volume_target_usdc" json:"volume_target_usdc" toml:"volume_target_usdc"`

	DiversityWeight int64 `yaml:"diversity_weight" json:"diversity_weight" toml:"diversity_weight"`
	DiversityTarget int64 `yaml:"diversity_target" json:"diversity_target" toml:"diversity_target"`

	RecencyWeight     int64 `yaml:"recency_weight" json:"recency_weight" toml:"recency_weight"`
	RecencyWindowDays int64 `yaml:"recency_window_days" json:"recency_window_days" toml:"recency_window_days"`
}

// ApplyDefaults sets the documented default weight/cap table.
func (s *ScoringConfig) ApplyDefaults() {
	if s.TxCountWeight == 0 {
		s.TxCountWeight = 20
	}
	if s.TxCountTarget == 0 {
		s.TxCountTarget = 100
	}
	if s.SuccessRateWeight == 0 {
		s.SuccessRateWeight = 25
	}
	if s.AccountAgeWeight == 0 {
		s.AccountAgeWeight = 15
	}
	if s.AccountAgeTargetDays == 0 {
		s.AccountAgeTargetDays = 365
	}
	if s.VolumeWeight == 0 {
		s.VolumeWeight = 20
	}
	if s.VolumeTargetUSDC == 0 {
		s.VolumeTargetUSDC = 10000
	}
	if s.DiversityWeight == 0 {
		s.DiversityWeight = 10
	}
	if s.DiversityTarget == 0 {
		s.DiversityTarget = 20
	}
	if s.RecencyWeight == 0 {
		s.RecencyWeight = 10
	}
	if s.RecencyWindowDays == 0 {
		s.RecencyWindowDays = 90
	}
}

// Validate checks if the scoring configuration is valid.
func (s *ScoringConfig) Validate() error {
	weights := map[string]int64{
		"tx_count_weight":     s.TxCountWeight,
		"success_rate_weight": s.SuccessRateWeight,
		"account_age_weight":  s.AccountAgeWeight,
		"volume_weight":       s.VolumeWeight,
		"diversity_weight":    s.DiversityWeight,
		"recency_weight":      s.RecencyWeight,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("scoring.%s must be non-negative", name)
		}
	}

	targets := map[string]int64{
		"tx_count_target":         s.TxCountTarget,
		"account_age_target_days": s.AccountAgeTargetDays,
		"volume_target_usdc":      s.VolumeTargetUSDC,
		"diversity_target":        s.DiversityTarget,
		"recency_window_days":     s.RecencyWindowDays,
	}
	for name, target := range targets {
		if target <= 0 {
			return fmt.Errorf("scoring.%s must be positive", name)
		}
	}

	return nil
}

// IngestConfig represents the configuration for the ingestion driver.
type IngestConfig struct {
	// SkipMalformed makes the driver log and skip malformed events instead of
	// halting at the offending feed position
	SkipMalformed bool `yaml:"skip_malformed" json:"skip_malformed" toml:"skip_malformed"`

	// CommitRetry contains retry configuration for the per-event commit
	CommitRetry *RetryConfig `yaml:"commit_retry,omitempty" json:"commit_retry,omitempty" toml:"commit_retry,omitempty"`
}

// ApplyDefaults sets default values for optional ingest configuration fields.
func (i *IngestConfig) ApplyDefaults() {
	if i.CommitRetry != nil {
		i.CommitRetry.ApplyDefaults()
	}
}

// RetryConfig represents retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff intcommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff intcommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = intcommon.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = intcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	// NORMAL provides a good balance between safety and performance
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	if d.Maintenance != nil {
		d.Maintenance.ApplyDefaults()
	}
	// EnableForeignKeys defaults to false (zero value)
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval intcommon.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = intcommon.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("maintenance.wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}

	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components: feed, ingest, store, api, maintenance
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[intcommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := intcommon.AllComponents[intcommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[intcommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return level
	}
	return intcommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return intcommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the read API HTTP server.
type APIConfig struct {
	// Enabled controls whether the read API server is started
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout intcommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes
	WriteTimeout intcommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request
	IdleTimeout intcommon.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`

	// CORS contains cross-origin resource sharing settings
	CORS CORSConfig `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig configures cross-origin resource sharing for the API server.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for optional API configuration fields.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = intcommon.NewDuration(10 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = intcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = intcommon.NewDuration(60 * time.Second) //nolint:mnd
	}
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Feed.ApplyDefaults()
	c.Scoring.ApplyDefaults()
	c.Ingest.ApplyDefaults()
	c.DB.ApplyDefaults()

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}

	if c.API != nil {
		c.API.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Feed.RPCURL == "" {
		return fmt.Errorf("feed.rpc_url is required")
	}

	if c.Feed.Finality != "finalized" && c.Feed.Finality != "safe" && c.Feed.Finality != "latest" {
		return fmt.Errorf("feed.finality must be one of: 'finalized', 'safe', or 'latest'")
	}

	if c.Feed.Contracts.Registry == "" {
		return fmt.Errorf("feed.contracts.registry is required")
	}
	if c.Feed.Contracts.EntryPoint == "" {
		return fmt.Errorf("feed.contracts.entry_point is required")
	}
	if !common.IsHexAddress(c.Feed.Contracts.EntryPoint) {
		return fmt.Errorf("feed.contracts.entry_point is not a valid hex address")
	}
	for name, addr := range map[string]string{
		"registry":       c.Feed.Contracts.Registry,
		"wallet_factory": c.Feed.Contracts.WalletFactory,
		"token":          c.Feed.Contracts.Token,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("feed.contracts.%s is not a valid hex address", name)
		}
	}

	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	if c.DB.JournalMode != "" && c.DB.JournalMode != "WAL" &&
		c.DB.JournalMode != "DELETE" && c.DB.JournalMode != "TRUNCATE" &&
		c.DB.JournalMode != "PERSIST" && c.DB.JournalMode != "MEMORY" {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if c.DB.Synchronous != "" && c.DB.Synchronous != "FULL" &&
		c.DB.Synchronous != "NORMAL" && c.DB.Synchronous != "OFF" {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	if c.DB.Maintenance != nil {
		if err := c.DB.Maintenance.Validate(); err != nil {
			return fmt.Errorf("db.maintenance: %w", err)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
