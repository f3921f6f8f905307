// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"
)

// NewGlobalFlags returns the output flags shared by every command that prints
// rows or documents.
func NewGlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format (text, json, yaml)",
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.IntFlag{
			Name:  "padding",
			Usage: "spaces between text columns",
			Value: 2,
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
		},
		&cli.BoolFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Value:   false,
		},
	}
}

// NewAWSFlags returns the profile, region and SDK retry flags of a command
// group. They are read from the flag, the environment, then the config file
// under the group's namespace and globally.
func NewAWSFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
			Name:    "profile",
			Aliases: []string{"p"},
			Usage:   "AWS credentials profile",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OPSCTL_PROFILE"),
				cli.EnvVar("AWS_PROFILE"),
			),
		}),
		NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
			Name:    "region",
			Aliases: []string{"r"},
			Usage:   "AWS region",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("OPSCTL_REGION"),
				cli.EnvVar("AWS_REGION"),
			),
		}),
		&cli.IntFlag{
			Name:  "api-retries",
			Usage: "retries of a throttled or failed AWS call by the SDK. Defaults to the SDK's",
			Sources: cli.NewValueSourceChain(append([]cli.ValueSource{
				cli.EnvVar("OPSCTL_API_RETRIES"),
			}, configSources(ns, path, "api-retries")...)...),
			Validator: func(value int) error {
				return FlagValidators(value, NonNegativeValidator)
			},
		},
	}
}

// NewRunFlags returns the flags of a command that runs a workflow: where the
// result logs go and overrides for every step's polling.
func NewRunFlags(ns, path string) []cli.Flag {
	return []cli.Flag{
		NewOutDirFlag(ns, path),
		&cli.DurationFlag{
			Name:    "poll-interval",
			Usage:   "override the wait between status checks of every step",
			Sources: cli.NewValueSourceChain(configSources(ns, path, "poll-interval")...),
		},
		&cli.IntFlag{
			Name:    "max-attempts",
			Usage:   "override the number of status checks of every step",
			Sources: cli.NewValueSourceChain(configSources(ns, path, "max-attempts")...),
			Validator: func(value int) error {
				return FlagValidators(value, NonNegativeValidator)
			},
		},
	}
}

// NewResumeFlag constructs the flag naming the failure record of a
// single-target run to continue. It has no config source.
func NewResumeFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "resume",
		Usage: "failure record of an earlier run to continue from its checkpoint",
	}
}

// NewOutDirFlag constructs the flag naming the directory result logs are
// written to.
func NewOutDirFlag(ns, path string) *cli.StringFlag {
	return NameSpacedValueChainFlagFromConfigFile(ns, path, &cli.StringFlag{
		Name:    "out-dir",
		Usage:   "directory for result logs",
		Sources: cli.NewValueSourceChain(cli.EnvVar("OPSCTL_OUT_DIR")),
		Value:   ".",
	})
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	flag.Sources.Chain = append(flag.Sources.Chain, configSources(ns, path, flag.Name)...)
	return flag
}

// configSources returns the config file sources for a flag, namespaced first.
// There are none when no config file was found.
func configSources(ns, path, name string) []cli.ValueSource {
	if path == "" {
		return nil
	}
	var sources []cli.ValueSource
	if ns != "" {
		sources = append(sources, yaml.YAML(ns+"."+name, altsrc.StringSourcer(path)))
	}
	return append(sources, yaml.YAML(name, altsrc.StringSourcer(path)))
}
