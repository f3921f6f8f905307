// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"context"
	"fmt"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	stsv2 "github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/tfctl/opsctl/internal/log"
)

// STSAPI is the subset of the STS client used to validate credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *stsv2.GetCallerIdentityInput, optFns ...func(*stsv2.Options)) (*stsv2.GetCallerIdentityOutput, error)
}

// Identity is the caller identity resolved for a profile.
type Identity struct {
	Account string
	Arn     string
}

// CheckIdentity confirms the credentials behind api are usable by calling
// GetCallerIdentity. It is the cheapest call that fails for a missing,
// expired or unauthorized profile.
func CheckIdentity(ctx context.Context, api STSAPI, profile string) (Identity, error) {
	out, err := api.GetCallerIdentity(ctx, &stsv2.GetCallerIdentityInput{})
	if err != nil {
		log.Warnf("AWS credentials profile %q is not available: %v", profile, err)
		return Identity{}, Friendly(err, ErrorContext{Operation: "get caller identity", Profile: profile})
	}

	id := Identity{
		Account: awsv2.ToString(out.Account),
		Arn:     awsv2.ToString(out.Arn),
	}
	if id.Account == "" {
		return Identity{}, fmt.Errorf("get caller identity: empty account for profile %q", profile)
	}
	log.Debugf("caller identity: account=%s arn=%s", id.Account, id.Arn)
	return id, nil
}
