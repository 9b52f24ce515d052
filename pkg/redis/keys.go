package redis

// Key construction helpers for the telemetry keyspace

// SignalRegistryKey returns the key holding the cached signal registry (JSON list)
func SignalRegistryKey() string {
	return "telemetry:registry:signals"
}

// RegistryMetaKey returns the key for registry metadata (hash)
func RegistryMetaKey() string {
	return "telemetry:registry:meta"
}
