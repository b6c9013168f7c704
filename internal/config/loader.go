package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config captures environment driven configuration values for the inventory service.
type Config struct {
	HTTPPort  int
	SQLiteDSN string
	SeedData  bool
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields and reports every
// invalid entry in one error rather than stopping at the first.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:  8080,
		SQLiteDSN: "file:inventory.db",
		SeedData:  false,
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("INVENTORY_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "INVENTORY_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("INVENTORY_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if seedValue := strings.TrimSpace(os.Getenv("INVENTORY_SEED_DATA")); seedValue != "" {
		seed, err := strconv.ParseBool(seedValue)
		if err != nil {
			invalid = append(invalid, "INVENTORY_SEED_DATA")
		} else {
			cfg.SeedData = seed
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
