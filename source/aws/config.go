// Package aws provides read-only parameter sources backed by AWS. The whole
// parameter document is stored in one SSM parameter or one S3 object.
// SSM changes are detected by polling the parameter version, S3 changes by
// conditional GETs on the object's ETag.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Option is implemented by every option accepted by NewSSMSource and
// NewS3Source.
type Option interface {
	awsSourceOption()
}

type clientConfig struct {
	awsConfig *aws.Config
}

// ClientOption configures the AWS client.
type ClientOption func(*clientConfig)

func (ClientOption) awsSourceOption() {}

// WithAWSConfig sets the AWS configuration. Without it the default
// configuration chain (environment, shared files, IMDS) is used.
//
//	cfg, _ := config.LoadDefaultConfig(ctx, config.WithRegion("eu-central-1"))
//	src := aws.NewSSMSource("/fleet/params", aws.WithAWSConfig(cfg))
func WithAWSConfig(cfg aws.Config) ClientOption {
	return func(c *clientConfig) {
		c.awsConfig = &cfg
	}
}

func loadAWSConfig(ctx context.Context, cfg *clientConfig) (aws.Config, error) {
	if cfg.awsConfig != nil {
		return *cfg.awsConfig, nil
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}
