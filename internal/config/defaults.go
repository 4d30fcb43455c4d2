package config

import "time"

// Default value constants.
const (
	DefaultServerHost = "127.0.0.1"
	DefaultServerPort = 8585
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBUser     = "molprop"
	DefaultDBName     = "molprop"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "molprop:"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaTopic   = "molprop.analysis.jobs"
	DefaultKafkaGroupID = "molprop-workers"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molprop-runs"

	DefaultMilvusAddr             = "localhost:19530"
	DefaultMilvusCollectionPrefix = "molprop_"
	DefaultFingerprintBits        = 2048
	DefaultMilvusTopK             = 20

	DefaultRunsBaseDir = "runs"

	DefaultCalcCommand      = "molprop-calc-v5"
	DefaultReportCommand    = "molprop-report"
	DefaultPicklistsCommand = "molprop-picklists"

	DefaultWorkerConcurrency = 4

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default.  Fields already set by the caller are left unchanged, so explicit
// configuration always wins.  Must run after unmarshalling and before
// Validate so defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ───────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 256 << 20 // results tables can be large
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// ── Database ─────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = DefaultDBUser
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 15 * time.Minute
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}

	// ── Kafka ────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.JobsTopic == "" {
		cfg.Kafka.JobsTopic = DefaultKafkaTopic
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.ProducerRetries == 0 {
		cfg.Kafka.ProducerRetries = 3
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10 << 20
	}

	// ── MinIO ────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = time.Hour
	}

	// ── Milvus ───────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultMilvusCollectionPrefix
	}
	if cfg.Milvus.FingerprintBits == 0 {
		cfg.Milvus.FingerprintBits = DefaultFingerprintBits
	}
	if cfg.Milvus.IndexType == "" {
		cfg.Milvus.IndexType = "BIN_IVF_FLAT"
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}

	// ── Runs ─────────────────────────────────────────────────────────────────
	if cfg.Runs.BaseDir == "" {
		cfg.Runs.BaseDir = DefaultRunsBaseDir
	}
	if cfg.Runs.Retention == 0 {
		cfg.Runs.Retention = 30 * 24 * time.Hour
	}

	// ── Toolkit ──────────────────────────────────────────────────────────────
	if cfg.Toolkit.CalcCommand == "" {
		cfg.Toolkit.CalcCommand = DefaultCalcCommand
	}
	if cfg.Toolkit.ReportCommand == "" {
		cfg.Toolkit.ReportCommand = DefaultReportCommand
	}
	if cfg.Toolkit.PicklistsCommand == "" {
		cfg.Toolkit.PicklistsCommand = DefaultPicklistsCommand
	}
	if cfg.Toolkit.StepTimeout == 0 {
		cfg.Toolkit.StepTimeout = 30 * time.Minute
	}

	// ── Worker ───────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 2 * time.Second
	}
	if cfg.Worker.CommitInterval == 0 {
		cfg.Worker.CommitInterval = time.Second
	}

	// ── Log ──────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
