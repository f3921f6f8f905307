// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package config provides loading and typed accessors for opsctl's user
// configuration. The configuration is a YAML document located in the user's
// configuration directory, typically:
//   - Linux/macOS: $XDG_CONFIG_HOME/opsctl.yaml or $HOME/.config/opsctl.yaml
//   - Windows: %APPDATA%/opsctl.yaml
//
// Keys are namespaced by command path so that, for example, a poll interval
// can be set once globally and overridden for a single workflow:
//
//	region: ap-south-1
//	poll:
//	  interval: 15s
//	ec2:
//	  encrypt:
//	    device: /dev/xvda
//	    poll:
//	      interval: 20s
package config
