package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:""`

	// Relay storage. DatabaseURL is required by the relay and migrate
	// binaries only; the agent runs without one. An empty RedisURL keeps
	// pairing sessions in process memory.
	DatabaseURL string        `envconfig:"DATABASE_URL" default:""`
	RedisURL    string        `envconfig:"REDIS_URL" default:""`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"10m"`

	// Relay limits
	MaxFrameBytes  int     `envconfig:"MAX_FRAME_BYTES" default:"2097152"`
	UploadRate     float64 `envconfig:"UPLOAD_RATE" default:"10"`
	UploadBurst    int     `envconfig:"UPLOAD_BURST" default:"20"`
	ForceConnected bool    `envconfig:"FORCE_CONNECTED" default:"false"`
	AllowOrigins   string  `envconfig:"CORS_ORIGINS" default:"*"`

	// Collaborator endpoints
	RelayURL          string `envconfig:"RELAY_URL" default:"http://localhost:3000"`
	AnalysisURL       string `envconfig:"ANALYSIS_URL" default:"http://localhost:8000"`
	AnalysisSocketURL string `envconfig:"ANALYSIS_SOCKET_URL" default:"ws://localhost:8000/ws/analysis"`
	ViolationsURL     string `envconfig:"VIOLATIONS_URL" default:""`

	// Provider
	ProviderType string `envconfig:"PROVIDER_TYPE" default:"mediapipe"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`

	// Session under proctoring
	TestID          string `envconfig:"TEST_ID" default:""`
	RemoteSessionID string `envconfig:"REMOTE_SESSION_ID" default:""`

	// Capture inputs for the agent binary (MJPEG streams)
	PrimaryStreamURL string `envconfig:"PRIMARY_STREAM_URL" default:""`
	ScreenStreamURL  string `envconfig:"SCREEN_STREAM_URL" default:""`

	// Cadences
	SampleInterval    time.Duration `envconfig:"SAMPLE_INTERVAL" default:"3s"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"150ms"`
	HeartbeatInterval time.Duration `envconfig:"HEARTBEAT_INTERVAL" default:"5s"`
	AnalysisTimeout   time.Duration `envconfig:"ANALYSIS_TIMEOUT" default:"8s"`

	// Violation pipeline
	ThrottleInterval    time.Duration `envconfig:"THROTTLE_INTERVAL" default:"5s"`
	DismissCooldown     time.Duration `envconfig:"DISMISS_COOLDOWN" default:"5s"`
	FrameRecency        time.Duration `envconfig:"FRAME_RECENCY" default:"15s"`
	FailureThreshold    int           `envconfig:"FAILURE_THRESHOLD" default:"3"`
	AnalysisEvery       int           `envconfig:"ANALYSIS_EVERY" default:"12"`
	GazeThreshold       float64       `envconfig:"GAZE_THRESHOLD" default:"0.5"`
	GazeSustained       int           `envconfig:"GAZE_SUSTAINED" default:"3"`
	CountDegraded       bool          `envconfig:"COUNT_DEGRADED_RESULTS" default:"true"`
	DegradedSeverityCap string        `envconfig:"DEGRADED_SEVERITY_CAP" default:"high"`
	ReacquireAttempts   int           `envconfig:"REACQUIRE_ATTEMPTS" default:"3"`

	// Frame encoding
	MaxFrameWidth int `envconfig:"MAX_FRAME_WIDTH" default:"640"`
	JPEGQuality   int `envconfig:"JPEG_QUALITY" default:"80"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
