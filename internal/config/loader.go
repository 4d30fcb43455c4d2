package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "MOLPROP"

// newViper builds a pre-configured Viper instance: YAML file type, MOLPROP_
// env prefix, automatic env binding, and a key replacer that maps "." to "_"
// so that nested keys like "database.host" resolve to MOLPROP_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load reads the YAML file at configPath, merges MOLPROP_* environment
// overrides, applies defaults for unset fields, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// configKeys lists every settable key.  Viper's AutomaticEnv only surfaces
// environment variables through Unmarshal for keys it already knows about, so
// LoadFromEnv binds each one explicitly.
var configKeys = []string{
	"server.host", "server.port", "server.mode", "server.read_timeout",
	"server.write_timeout", "server.max_upload_bytes", "server.shutdown_timeout",
	"database.host", "database.port", "database.user", "database.password",
	"database.db_name", "database.ssl_mode", "database.max_conns",
	"database.min_conns", "database.conn_max_lifetime", "database.migration_path",
	"redis.addr", "redis.password", "redis.db", "redis.pool_size",
	"redis.dial_timeout", "redis.read_timeout", "redis.write_timeout",
	"redis.default_ttl", "redis.key_prefix",
	"kafka.brokers", "kafka.jobs_topic", "kafka.group_id",
	"kafka.producer_retries", "kafka.batch_timeout", "kafka.min_bytes", "kafka.max_bytes",
	"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.bucket",
	"minio.use_ssl", "minio.presign_expiry",
	"milvus.addr", "milvus.collection_prefix", "milvus.fingerprint_bits",
	"milvus.index_type", "milvus.default_top_k",
	"runs.base_dir", "runs.retention", "runs.archive_bundles",
	"toolkit.calc_command", "toolkit.report_command", "toolkit.picklists_command",
	"toolkit.step_timeout",
	"worker.concurrency", "worker.max_retries", "worker.retry_backoff",
	"worker.commit_interval",
	"log.level", "log.format", "log.output",
}

// LoadFromEnv builds a Config entirely from MOLPROP_* environment variables,
// with no config file required.  This is the preferred strategy for
// containerised deployments.
func LoadFromEnv() (*Config, error) {
	v := newViper()
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return unmarshalAndFinalize(v)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the newly parsed Config
// whenever the file changes on disk.  Intended for hot-reloading non-critical
// settings such as log level; callers apply only the safe subset at runtime.
//
// Watch is non-blocking; viper manages the background goroutine.  A changed
// file that fails to parse or validate does not trigger onChange.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first, so errors here
	// only mean the watcher starts against an empty state.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad wraps Load and panics on error; for use in main() where a
// config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
