// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package aws loads AWS SDK v2 configuration, builds the service clients used
// by the workflows, validates credentials, and turns API errors into messages
// an operator can act on.
package aws
