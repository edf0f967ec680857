package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
storage_driver: "memory"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "localhost:8080", cfg.Address)
	assert.Equal(t, 4*time.Second, cfg.HTTPServer.Timeout)
	assert.Equal(t, 48*time.Hour, cfg.Scheduling.RequestTTL)
	assert.Equal(t, time.Hour, cfg.Scheduling.Cutoffs.MentorCancelCutoff)
	assert.Equal(t, 2*time.Hour, cfg.Scheduling.Cutoffs.MenteeCancelCutoff)
	assert.Equal(t, 2*time.Hour, cfg.Scheduling.Cutoffs.MentorRescheduleCutoff)
	assert.Equal(t, 4*time.Hour, cfg.Scheduling.Cutoffs.MenteeRescheduleCutoff)
	assert.Equal(t, 24*time.Hour, cfg.Scheduling.Cutoffs.NoShowWindow)
	assert.Equal(t, DefaultPolicies(), cfg.Policies)
	assert.Equal(t, 4, cfg.Effects.Workers)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
}

func TestLoad_PoliciesAndOverrides(t *testing.T) {
	path := writeConfig(t, `
storage_driver: "postgres"
storage_path: "postgres://localhost/scheduler"
scheduling:
  request_ttl: 12h
  cutoffs:
    mentee_cancel: 3h
policies:
  mentee:
    free_cancellation_hours: 48
    cancellation_cutoff_hours: 6
    partial_refund_percentage: 70
    late_cancellation_refund_percentage: 10
`)
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 12*time.Hour, cfg.Scheduling.RequestTTL)
	assert.Equal(t, 3*time.Hour, cfg.Scheduling.Cutoffs.MenteeCancelCutoff)
	assert.Equal(t, 48.0, cfg.Policies.Mentee.FreeCancellationHours)
	assert.Equal(t, 70, cfg.Policies.Mentee.PartialRefundPercentage)
	assert.Equal(t, DefaultPolicies().Mentor, cfg.Policies.Mentor)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"postgres without path": `storage_driver: "postgres"`,
		"unknown driver":        `storage_driver: "cassandra"`,
		"bad policy": `
storage_driver: "memory"
policies:
  mentee:
    free_cancellation_hours: 2
    cancellation_cutoff_hours: 24
    partial_refund_percentage: 50
`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLocalConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "local.yaml"))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
}
