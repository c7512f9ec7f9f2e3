package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esgss-backend/infrastructure/persistence/schema"
)

func TestMigrateRegistryPayload_CurrentKeyPassesThrough(t *testing.T) {
	payload := []byte(`{"node-1":{}}`)

	out, migrated, err := schema.MigrateRegistryPayload(schema.RegistryKey, payload)

	require.NoError(t, err)
	assert.False(t, migrated)
	assert.Equal(t, payload, out)
}

func TestMigrateRegistryPayload_UnknownKeyIsRejected(t *testing.T) {
	_, _, err := schema.MigrateRegistryPayload("esgss_evolution_matrix_v0", []byte(`{}`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown registry schema key")
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, schema.ValidatePayload([]byte(`{"a":1}`)))
	assert.Error(t, schema.ValidatePayload([]byte(`{broken`)))
}
