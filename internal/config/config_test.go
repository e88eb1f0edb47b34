package config

import (
	"testing"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "user=invoicer password=invoicer dbname=invoicer host=localhost port=5432 sslmode=disable", cfg.Postgres.GetDSN())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Configuration)
	}{
		{
			name:   "unknown lock backend",
			mutate: func(c *Configuration) { c.Locker.Backend = types.LockBackend("zookeeper") },
		},
		{
			name:   "webhook sink without url",
			mutate: func(c *Configuration) { c.Notification.Sink = types.NotificationSinkWebhook },
		},
		{
			name:   "zero lock timeout",
			mutate: func(c *Configuration) { c.Invoicing.LockTimeout = 0 },
		},
		{
			name:   "currency code length",
			mutate: func(c *Configuration) { c.Invoicing.DefaultCurrency = "dollars" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewConfigEnvOverride(t *testing.T) {
	t.Setenv("INVOICER_LOCKER_BACKEND", "memory")
	t.Setenv("INVOICER_INVOICING_PARALLELISM", "3")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, types.LockBackendMemory, cfg.Locker.Backend)
	assert.Equal(t, 3, cfg.Invoicing.Parallelism)
}
