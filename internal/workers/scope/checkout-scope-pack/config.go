// internal/workers/scope/checkout-scope-pack/config.go
package checkoutscopepack

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
