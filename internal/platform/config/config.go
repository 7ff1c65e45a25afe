package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"exodus/internal/identity"
)

// Config captures everything a migration run needs from the environment.
// Management credentials are required; the rest degrade gracefully when
// absent (no attribute source, no redis cache, no audit stream, no ops
// server).
type Config struct {
	// Target identity platform.
	TargetBaseURL string
	ProjectID     string
	ManagementKey string

	// Source provider export API.
	SourceDBURL string

	// Local artifacts.
	HashParamsFile string
	LogDir         string

	// Optional infrastructure.
	RedisURL     string
	KafkaBrokers []string
	AuditTopic   string
	OpsAddr      string

	RequestTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file is honored when present; real environment variables win over
// file entries.
func FromEnv(envFile string) (Config, error) {
	if envFile != "" {
		// Missing .env is fine, the environment may be set directly.
		_ = godotenv.Load(envFile)
	}

	cfg := Config{
		TargetBaseURL:  getenv("TARGET_BASE_URL", "https://api.target.example.com"),
		ProjectID:      os.Getenv("TARGET_PROJECT_ID"),
		ManagementKey:  os.Getenv("TARGET_MANAGEMENT_KEY"),
		SourceDBURL:    os.Getenv("SOURCE_DB_URL"),
		HashParamsFile: getenv("HASH_PARAMS_FILE", "creds/hash_params.json"),
		LogDir:         getenv("MIGRATION_LOG_DIR", "logs"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AuditTopic:     getenv("AUDIT_TOPIC", "identity-migration-audit"),
		OpsAddr:        os.Getenv("OPS_ADDR"),
		RequestTimeout: 10 * time.Second,
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.ProjectID == "" || cfg.ManagementKey == "" {
		return Config{}, fmt.Errorf("TARGET_PROJECT_ID and TARGET_MANAGEMENT_KEY must be set")
	}
	if cfg.SourceDBURL == "" {
		return Config{}, fmt.Errorf("SOURCE_DB_URL must be set")
	}

	return cfg, nil
}

// LoadHashParams reads the password-hash import parameters from a local JSON
// file. The file is a required startup artifact; a missing or malformed file
// aborts the run before any user is processed.
func LoadHashParams(path string) (identity.HashParams, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return identity.HashParams{}, fmt.Errorf("read hash params file %q: %w", path, err)
	}

	var params identity.HashParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return identity.HashParams{}, fmt.Errorf("parse hash params file %q: %w", path, err)
	}
	return params, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
