package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exodus/internal/identity"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TARGET_PROJECT_ID", "proj")
	t.Setenv("TARGET_MANAGEMENT_KEY", "key")
	t.Setenv("SOURCE_DB_URL", "https://source.example.com")
}

func TestFromEnv(t *testing.T) {
	t.Run("requires management credentials", func(t *testing.T) {
		t.Setenv("TARGET_PROJECT_ID", "")
		t.Setenv("TARGET_MANAGEMENT_KEY", "")
		t.Setenv("SOURCE_DB_URL", "https://source.example.com")

		_, err := FromEnv("")
		assert.Error(t, err)
	})

	t.Run("requires a source URL", func(t *testing.T) {
		t.Setenv("TARGET_PROJECT_ID", "proj")
		t.Setenv("TARGET_MANAGEMENT_KEY", "key")
		t.Setenv("SOURCE_DB_URL", "")

		_, err := FromEnv("")
		assert.Error(t, err)
	})

	t.Run("defaults apply when optional vars are unset", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("REDIS_URL", "")

		cfg, err := FromEnv("")
		require.NoError(t, err)
		assert.Equal(t, "logs", cfg.LogDir)
		assert.Equal(t, "creds/hash_params.json", cfg.HashParamsFile)
		assert.Empty(t, cfg.KafkaBrokers)
		assert.Empty(t, cfg.RedisURL)
	})

	t.Run("kafka brokers split on commas", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

		cfg, err := FromEnv("")
		require.NoError(t, err)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	})
}

func TestLoadHashParams(t *testing.T) {
	t.Run("reads the params file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hash_params.json")
		payload := `{
			"algorithm": "SCRYPT",
			"signer_key": "signer",
			"salt_separator": "Bw==",
			"rounds": 8,
			"mem_cost": 14
		}`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

		params, err := LoadHashParams(path)
		require.NoError(t, err)
		assert.Equal(t, identity.HashParams{
			Algorithm:     "SCRYPT",
			SignerKey:     "signer",
			SaltSeparator: "Bw==",
			Rounds:        8,
			MemCost:       14,
		}, params)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadHashParams(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

		_, err := LoadHashParams(path)
		assert.Error(t, err)
	})
}
