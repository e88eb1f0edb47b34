package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsAreOrdered(t *testing.T) {
	migrations, err := Migrations()
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "0001_billing_events", migrations[0].Version)
	assert.Equal(t, "0002_invoices", migrations[1].Version)
	assert.Equal(t, "0003_invoice_notification_outbox", migrations[2].Version)
	assert.Contains(t, migrations[1].SQL, "uq_invoices_idempotency_key")
	assert.Contains(t, migrations[2].SQL, "dedupe_key")
}
