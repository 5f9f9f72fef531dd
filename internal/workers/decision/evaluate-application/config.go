// internal/workers/decision/evaluate-application/config.go
package evaluateapplication

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		CacheTTL: 10 * time.Minute,
	}
}
