package mediapipe

import "time"

// Config holds the configuration for the analysis service client
type Config struct {
	BaseURL    string
	SocketURL  string
	Timeout    time.Duration
	RetryCount int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000",
		SocketURL:  "ws://localhost:8000/ws/analysis",
		Timeout:    8 * time.Second,
		RetryCount: 2,
	}
}
