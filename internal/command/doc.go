// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package command defines the CLI command set for opsctl. Each AWS service is
// a command group whose subcommands either print what they find or run a
// workflow and record every finished item in a CSV result log.
package command
