// internal/workers/decision/notify-review-queue/config.go
package notifyreviewqueue

import "time"

type Config struct {
	Timeout        time.Duration
	AWSRegion      string
	SenderEmail    string
	OfficerEmail   string
	ReviewQueueARN string
	EmailEnabled   bool
	QueueEnabled   bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		AWSRegion:    "us-east-1",
		EmailEnabled: true,
		QueueEnabled: true,
	}
}
