// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package output provides sorting and emission utilities used by commands to
// present result rows and API documents as a table, json or yaml.
package output
