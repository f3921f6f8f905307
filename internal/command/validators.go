// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "yaml"}
	s, _ := value.(string)
	if !slices.Contains(validOutputFlagValues, s) {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}

func NonNegativeValidator(value any) error {
	if n, ok := value.(int); ok && n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

// PositiveDurationValidator rejects zero and negative durations.
func PositiveDurationValidator(value any) error {
	if d, ok := value.(time.Duration); ok && d <= 0 {
		return fmt.Errorf("must be positive, got %s", d)
	}
	return nil
}

// RetentionValidator accepts -1 (keep forever) or 1 to 3653 days, the range
// Redshift allows for a manual snapshot.
func RetentionValidator(value any) error {
	n, _ := value.(int)
	if n == -1 || (n >= 1 && n <= 3653) {
		return nil
	}
	return fmt.Errorf("must be -1 or between 1 and 3653, got %d", n)
}

// ARNValidator rejects values that are not ARNs.
func ARNValidator(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "arn:") {
		return fmt.Errorf("%q is not an ARN", s)
	}
	return nil
}
