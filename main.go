// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/tfctl/opsctl/internal/command"
	"github.com/tfctl/opsctl/internal/config"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/version"
)

func main() {
	os.Exit(realMain())
}

// handleVersion checks for --version/-v and returns whether it was handled.
func handleVersion(args []string) bool {
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return true
		}
	}
	return false
}

// handleNakedCommand appends --help if no command is provided.
func handleNakedCommand(args []string) []string {
	if len(args) <= 1 {
		return append(args, "--help")
	}
	return args
}

// helpRequested reports whether --help appears anywhere.
func helpRequested(args []string) bool {
	return slices.ContainsFunc(args, func(a string) bool {
		return a == "--help" || a == "-h"
	})
}

// configSet reads a named argument set from the config file.
func configSet(key string) []string {
	set, _ := config.GetStringSlice(key)
	return set
}

// expandSet replaces an @name argument with the argument set stored in the
// config under <group>.<name>, e.g. "redshift.prod". Each entry may hold
// several words. Flags given after the @name win over the set's.
func expandSet(args []string, lookup func(key string) []string) []string {
	if len(args) < 3 || args[1] == "completion" {
		return args
	}

	idx := slices.IndexFunc(args[2:], func(a string) bool { return strings.HasPrefix(a, "@") })
	if idx == -1 {
		return args
	}
	idx += 2

	key := args[1] + "." + args[idx][1:]
	var expanded []string
	for _, entry := range lookup(key) {
		expanded = append(expanded, strings.Fields(entry)...)
	}
	log.Debugf("set %s: %v", key, expanded)

	return slices.Concat(args[:idx], expanded, args[idx+1:])
}

// initAndRunApp initializes the app and runs it, returning the exit code.
// Failures found before anything was changed exit 1, like a failed init; a
// failed run exits 2.
func initAndRunApp(ctx context.Context, args []string) int {
	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app init err: err=%v", err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.Debugf("app run err: err=%v", err)
		if command.IsPrecondition(err) {
			return 1
		}
		return 2
	}

	return 0
}

func realMain() int {
	log.InitLogger()

	args := os.Args
	log.Debugf("args captured: args=%v", args)

	if handleVersion(args) {
		return 0
	}

	args = handleNakedCommand(args)

	// If --help appears anywhere, skip set processing and let the CLI handle it.
	if !helpRequested(args) {
		args = expandSet(args, configSet)
		log.Debugf("args after set processing: args=%v", args)
	}

	// An interrupt cancels the run; the item in flight is recorded as failed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return initAndRunApp(ctx, args)
}
