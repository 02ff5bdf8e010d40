// internal/workers/scope/check-purchase-eligibility/config.go
package checkpurchaseeligibility

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
