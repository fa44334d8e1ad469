package notifyfarmer

import "time"

type Config struct {
	SMSEnabled bool
	SenderID   string
	AWSRegion  string
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
