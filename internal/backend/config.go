package backend

import (
	"fmt"

	"spendwise/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	c := Config{
		DataType:        BackendType(appConfig.DataBackend),
		CacheType:       BackendType(appConfig.CacheBackend),
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		CacheMaxEntries: appConfig.CacheMaxEntries,
		CacheTTL:        appConfig.CacheTTL,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.DataType.IsValid() {
		return fmt.Errorf("invalid data backend type: %s", c.DataType)
	}
	if !c.CacheType.IsValid() {
		return fmt.Errorf("invalid cache backend type: %s", c.CacheType)
	}
	if c.usesSQLite() && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}

func (c Config) usesSQLite() bool {
	return c.DataType == SQLiteBackend || c.CacheType == SQLiteBackend
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String()}
}
