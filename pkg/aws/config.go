package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// LoadAWSConfig loads the default SDK config. AWS_ENDPOINT, when set, points
// every client at a single endpoint (LocalStack in development).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if region := os.Getenv("AWS_REGION"); region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	if endpoint := Endpoint(); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}
	return cfg, nil
}

// Endpoint returns the configured endpoint override, if any.
func Endpoint() string {
	for _, key := range []string{"AWS_S3_ENDPOINT", "AWS_ENDPOINT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
