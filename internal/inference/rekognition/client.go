package rekognition

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied        = "AccessDeniedException"
	errCodeThrottling          = "ThrottlingException"
	errCodeProvisionedExceeded = "ProvisionedThroughputExceededException"
	errCodeImageTooLarge       = "ImageTooLargeException"
	errCodeInvalidImageFormat  = "InvalidImageFormatException"
)

// rekognitionAPI captures the Rekognition operations the analyzer uses
type rekognitionAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
	DetectLabels(ctx context.Context, params *rekognition.DetectLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectLabelsOutput, error)
}

// Client wraps the AWS Rekognition client for frame analysis operations
type Client struct {
	api    rekognitionAPI
	creds  aws.CredentialsProvider
	config Config
}

// NewClient creates a new Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		api:    rekognition.NewFromConfig(awsCfg),
		creds:  awsCfg.Credentials,
		config: cfg,
	}, nil
}

// DetectFaces returns every face Rekognition sees in the frame, with full
// attributes so pose and eye state are available
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]types.FaceDetail, error) {
	input := &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: image,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	}

	output, err := c.api.DetectFaces(ctx, input)
	if err != nil {
		return nil, mapAPIError("detect faces", err)
	}

	return output.FaceDetails, nil
}

// DetectLabels returns object labels above the configured confidence
func (c *Client) DetectLabels(ctx context.Context, image []byte) ([]types.Label, error) {
	input := &rekognition.DetectLabelsInput{
		Image: &types.Image{
			Bytes: image,
		},
		MaxLabels:     aws.Int32(c.config.MaxLabels),
		MinConfidence: aws.Float32(c.config.MinLabelConfidence),
	}

	output, err := c.api.DetectLabels(ctx, input)
	if err != nil {
		return nil, mapAPIError("detect labels", err)
	}

	return output.Labels, nil
}

// mapAPIError translates AWS error codes into package errors
func mapAPIError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeAccessDenied:
			return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		case errCodeThrottling, errCodeProvisionedExceeded:
			return fmt.Errorf("%s: %w", op, ErrThrottled)
		case errCodeImageTooLarge, errCodeInvalidImageFormat:
			return fmt.Errorf("%s: %w", op, ErrInvalidImage)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
