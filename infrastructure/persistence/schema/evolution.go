package schema

import (
	"encoding/json"
	"fmt"
)

// RegistryKey is the current registry storage key. The suffix is the
// payload schema version; bumping it requires a migration below.
const RegistryKey = "esgss_evolution_matrix_v1"

// knownKeys lists every registry key ever written, oldest first
var knownKeys = []string{
	"esgss_evolution_matrix_v1",
}

// Migration rewrites a registry payload from one schema key to the
// next
type Migration struct {
	FromKey     string
	ToKey       string
	Description string
	Up          func(payload []byte) ([]byte, error)
}

// migrations holds the forward chain. v1 is the first schema, so the
// chain is empty until a v2 lands.
var migrations = []Migration{}

// MigrateRegistryPayload brings a stored payload up to the current
// schema. Returns the payload, whether any migration ran, and an error
// when the stored key is unknown or a step fails.
func MigrateRegistryPayload(storedKey string, payload []byte) ([]byte, bool, error) {
	if storedKey == RegistryKey {
		return payload, false, nil
	}
	if !isKnownKey(storedKey) {
		return nil, false, fmt.Errorf("unknown registry schema key: %s", storedKey)
	}

	migrated := false
	key := storedKey
	for key != RegistryKey {
		step := findMigration(key)
		if step == nil {
			return nil, false, fmt.Errorf("no migration from registry schema %s", key)
		}
		next, err := step.Up(payload)
		if err != nil {
			return nil, false, fmt.Errorf("migration %s -> %s failed: %w", step.FromKey, step.ToKey, err)
		}
		payload = next
		key = step.ToKey
		migrated = true
	}
	return payload, migrated, nil
}

// ValidatePayload checks a payload is decodable JSON before it is
// written under the current key
func ValidatePayload(payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("registry payload is not valid JSON")
	}
	return nil
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

func findMigration(fromKey string) *Migration {
	for i := range migrations {
		if migrations[i].FromKey == fromKey {
			return &migrations[i]
		}
	}
	return nil
}
