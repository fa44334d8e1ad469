package processvoicecommand

import "time"

type Config struct {
	// Timeout bounds the whole run, across all pipeline stages.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
