// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	datasyncv2 "github.com/aws/aws-sdk-go-v2/service/datasync"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	rdsv2 "github.com/aws/aws-sdk-go-v2/service/rds"
	redshiftv2 "github.com/aws/aws-sdk-go-v2/service/redshift"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tfctl/opsctl/internal/log"
)

// options holds optional overrides for AWS config loading.
type options struct {
	profile string
	region  string
	retryer func() awsv2.Retryer
}

// Option customizes how AWS config is loaded.
// Default behavior (no options) inherits the shell environment and shared
// config chain (AWS_PROFILE, ~/.aws/config, ~/.aws/credentials, IMDS, etc.).
type Option func(*options)

// LoadAWSConfig loads AWS SDK v2 config. By default it inherits the shell's
// AWS setup (AWS_PROFILE, shared config, env, IMDS). Options can override
// profile, region, and retryer without changing callers.
func LoadAWSConfig(ctx context.Context, opts ...Option) (awsv2.Config, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log.Debugf("opts applied: profile=%s, region=%s", o.profile, o.region)

	var loadOpts []func(*config.LoadOptions) error
	if o.profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(o.profile))
	}
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	if o.retryer != nil {
		loadOpts = append(loadOpts, config.WithRetryer(o.retryer))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.Debugf("config load err: err=%v", err)
		return awsv2.Config{}, Friendly(err, ErrorContext{Operation: "load aws config", Profile: o.profile})
	}
	log.Debugf("config loaded: region=%s", cfg.Region)
	return cfg, nil
}

// WithProfile sets the shared config profile. Defaults to AWS_PROFILE/env chain.
func WithProfile(profile string) Option {
	return func(o *options) { o.profile = profile }
}

// WithRegion sets the region override. Defaults to env/profile/metadata chain.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithRetryer injects a custom retryer; if not set, SDK defaults are used.
// The SDK retryer only covers transport-level retries of a single call; the
// workflow engine never re-issues a mutating call on its own.
func WithRetryer(newRetryer func() awsv2.Retryer) Option {
	return func(o *options) { o.retryer = newRetryer }
}

// WithMaxAttempts caps the SDK's attempts per call, the first one included,
// using the standard retryer. n <= 0 keeps the SDK default.
func WithMaxAttempts(n int) Option {
	if n <= 0 {
		return func(*options) {}
	}
	return WithRetryer(func() awsv2.Retryer {
		return retry.AddWithMaxAttempts(retry.NewStandard(), n)
	})
}

// Clients bundles the service clients a workflow may need. They are built
// once per run from a single config.
type Clients struct {
	Config   awsv2.Config
	EC2      *ec2v2.Client
	RDS      *rdsv2.Client
	Redshift *redshiftv2.Client
	DataSync *datasyncv2.Client
	STS      *stsv2.Client
}

// NewClients constructs every service client from cfg.
func NewClients(cfg awsv2.Config) *Clients {
	c := &Clients{
		Config:   cfg,
		EC2:      ec2v2.NewFromConfig(cfg),
		RDS:      rdsv2.NewFromConfig(cfg),
		Redshift: redshiftv2.NewFromConfig(cfg),
		DataSync: datasyncv2.NewFromConfig(cfg),
		STS:      stsv2.NewFromConfig(cfg),
	}
	log.Debugf("clients created: region=%s", cfg.Region)
	return c
}
