// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tfctl/opsctl/internal/meta"
)

const bashCompletionScript = `# bash completion for opsctl
_opsctl()
{
    local cur prev group sub
    COMPREPLY=()
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "ec2 rds datasync redshift completion --help --version" -- "$cur") )
        return 0
    fi

    group=${COMP_WORDS[1]}
    if [[ ${COMP_CWORD} -eq 2 ]]; then
        case "$group" in
            ec2)        COMPREPLY=( $(compgen -W "discover encrypt-volumes encrypt-snapshots" -- "$cur") ) ;;
            rds)        COMPREPLY=( $(compgen -W "describe restore" -- "$cur") ) ;;
            datasync)   COMPREPLY=( $(compgen -W "run" -- "$cur") ) ;;
            redshift)   COMPREPLY=( $(compgen -W "status pause resume terminate" -- "$cur") ) ;;
            completion) COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") ) ;;
        esac
        return 0
    fi

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
        return 0
    fi

    sub=${COMP_WORDS[2]}
    local aws="--profile -p --region -r"
    local out="--color -c --output -o --padding --sort -s --titles -t"
    local run="--out-dir --poll-interval --max-attempts"
    local opts
    case "$group $sub" in
        "ec2 discover")          opts="$aws $out --state --tag-key --tag-values --device --out-dir" ;;
        "ec2 encrypt-volumes")   opts="$aws $out $run --device --kms-key-id --volume-type" ;;
        "ec2 encrypt-snapshots") opts="$aws $out $run --kms-key-id" ;;
        "rds describe")          opts="$aws $out --target --query -q" ;;
        "rds restore")           opts="$aws $run --source --target" ;;
        "datasync run")          opts="$aws $run --task" ;;
        "redshift status")       opts="$aws $out --cluster --watch -w --interval" ;;
        "redshift terminate")    opts="$aws $run --cluster --retention-days" ;;
        redshift*)               opts="$aws $run --cluster" ;;
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -f -- "$cur") )
    return 0
}

complete -F _opsctl opsctl
`

const zshCompletionScript = `#compdef opsctl

_opsctl() {
  local -a groups
  groups=(
    'ec2:EC2 instance and EBS volume operations'
    'rds:RDS instance operations'
    'datasync:DataSync task operations'
    'redshift:Redshift cluster operations'
    'completion:generate shell completion script'
  )

  local -a aws out run
  aws=(
    '(-p --profile)'{-p,--profile}'[AWS credentials profile]:profile'
    '(-r --region)'{-r,--region}'[AWS region]:region'
  )
  out=(
    '(-c --color)'{-c,--color}'[enable colored text]'
    '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
    '--padding[spaces between columns]:padding'
    '(-s --sort)'{-s,--sort}'[sort columns]:columns'
    '(-t --titles)'{-t,--titles}'[show titles]'
  )
  run=(
    '--out-dir[directory for result logs]:dir:_directories'
    '--poll-interval[wait between status checks]:duration'
    '--max-attempts[number of status checks]:attempts'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'opsctl commands' groups
    return
  fi

  if (( CURRENT == 3 )); then
    case $words[2] in
      ec2)        _values 'command' discover encrypt-volumes encrypt-snapshots ;;
      rds)        _values 'command' describe restore ;;
      datasync)   _values 'command' run ;;
      redshift)   _values 'command' status pause resume terminate ;;
      completion) _values 'shell' bash zsh ;;
    esac
    return
  fi

  case "$words[2] $words[3]" in
    "ec2 discover")
      _arguments $aws $out '--state[instance state]:state' '--tag-key[tag key]:key' \
        '--tag-values[tag values]:values' '--device[root device]:device' '--out-dir[directory]:dir:_directories'
      ;;
    "ec2 encrypt-volumes")
      _arguments $aws $out $run '--device[root device]:device' '--kms-key-id[KMS key]:key' \
        '--volume-type[volume type]:type' '1:input:_files -g "*.csv"'
      ;;
    "ec2 encrypt-snapshots")
      _arguments $aws $out $run '--kms-key-id[KMS key]:key' '::input:_files -g "*.csv"'
      ;;
    "rds describe")
      _arguments $aws $out '--target[DB instance]:id' '(-q --query)'{-q,--query}'[gjson path]:path'
      ;;
    "rds restore")
      _arguments $aws $run '--source[DB instance to snapshot]:id' '--target[DB instance to replace]:id'
      ;;
    "datasync run")
      _arguments $aws $run '*--task[task ARN]:arn'
      ;;
    "redshift status")
      _arguments $aws $out '--cluster[cluster]:id' '(-w --watch)'{-w,--watch}'[keep watching]' '--interval[interval]:duration'
      ;;
    "redshift terminate")
      _arguments $aws $run '--cluster[cluster]:id' '--retention-days[snapshot retention]:days'
      ;;
    redshift*)
      _arguments $aws $run '--cluster[cluster]:id'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys
# is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _opsctl opsctl
`

func completionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := stdout(cmd)
	shell := cmd.Args().First()
	if shell == "" {
		// Try to detect from SHELL.
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		fmt.Fprintln(os.Stderr, "usage: opsctl completion [bash|zsh]")
	}
	return nil
}

func completionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "opsctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: completionCommandAction,
	}
}
