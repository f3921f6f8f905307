// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
)

// ErrorContext carries input context for improving API error messages.
type ErrorContext struct {
	Profile   string
	Region    string
	Resource  string // e.g., "i-0abc", "redshift-cluster-1"
	Operation string // e.g., "stop instance", "describe clusters"
}

// notFoundCodes are the API error codes the services use for a missing
// resource. Most end in NotFound or NotFoundFault; these are the ones a
// workflow actually meets.
var notFoundCodes = []string{
	"ClusterNotFound",
	"ClusterNotFoundFault",
	"ClusterSnapshotNotFound",
	"DBInstanceNotFound",
	"DBInstanceNotFoundFault",
	"DBSnapshotNotFound",
	"InvalidInstanceID.NotFound",
	"InvalidVolume.NotFound",
	"InvalidSnapshot.NotFound",
}

var authCodes = []string{
	"AccessDenied",
	"AccessDeniedException",
	"UnauthorizedOperation",
	"InvalidClientTokenId",
	"ExpiredToken",
	"ExpiredTokenException",
	"RequestExpired",
}

// ErrorCode returns the API error code carried by err, or "".
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err is an API error saying the resource does not
// exist.
func IsNotFound(err error) bool {
	code := ErrorCode(err)
	if code == "" {
		return false
	}
	for _, c := range notFoundCodes {
		if code == c {
			return true
		}
	}
	return strings.HasSuffix(code, "NotFound") || strings.HasSuffix(code, "NotFoundFault")
}

// Friendly wraps an AWS error with a contextual, user-friendly message while
// preserving the original error for further inspection via errors.Is/As.
func Friendly(err error, ctx ErrorContext) error {
	if err == nil {
		return nil
	}

	op := nonEmpty(ctx.Operation, "request")

	var missingProfile config.SharedConfigProfileNotExistError
	if errors.As(err, &missingProfile) {
		return fmt.Errorf("%s: profile %q not found in shared config: %w",
			op, missingProfile.Profile, err)
	}

	code := ErrorCode(err)
	switch {
	case code == "":
	case IsNotFound(err):
		return fmt.Errorf("%s: %s not found (%s): %w", op, nonEmpty(ctx.Resource, "resource"), code, err)
	case contains(authCodes, code):
		return fmt.Errorf("%s: credentials for profile %q were rejected (%s). Check the profile or refresh the session: %w",
			op, nonEmpty(ctx.Profile, "default"), code, err)
	}

	if ctx.Resource != "" {
		return fmt.Errorf("%s for %s: %w", op, ctx.Resource, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
