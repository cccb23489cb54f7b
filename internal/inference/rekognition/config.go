package rekognition

// Config holds configuration for the AWS Rekognition provider
type Config struct {
	// Region is the AWS region where Rekognition is called (e.g., "us-east-1")
	Region string

	// MaxLabels caps how many object labels one frame may return
	MaxLabels int32

	// MinLabelConfidence drops labels below this confidence (0-100)
	MinLabelConfidence float32
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:             "us-east-1",
		MaxLabels:          25,
		MinLabelConfidence: 40,
	}
}
