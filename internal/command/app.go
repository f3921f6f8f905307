// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/tfctl/opsctl/internal/config"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// The arg[1] immediately following the binary (arg[0]) is the command group
	// and also represents the namespace key to be used when retrieving config
	// values. arg[1] could be -h/--help, so ignore it if it appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}
	config.Config.Namespace = ns

	// A missing config file is fine, every value has a flag or a default.
	cfg, err := config.Load()
	if err != nil {
		log.Debugf("no config: %v", err)
	}

	meta := meta.Meta{
		Args:      args,
		Config:    cfg,
		Context:   ctx,
		StartedAt: time.Now(),
	}

	app := &cli.Command{
		Name:  "opsctl",
		Usage: "AWS operations workflows",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "opsctl version info",
				HideDefault: true,
			},
		},
	}

	app.Commands = append(app.Commands,
		ec2CommandBuilder(meta),
		rdsCommandBuilder(meta),
		datasyncCommandBuilder(meta),
		redshiftCommandBuilder(meta),
		completionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, group := range app.Commands {
		for _, cmd := range append([]*cli.Command{group}, group.Commands...) {
			sort.Slice(cmd.Flags, func(i, j int) bool {
				return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
			})
		}
	}

	return app, nil
}
