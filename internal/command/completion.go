// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/holidayctl/internal/meta"
)

const bashCompletionScript = `# bash completion for holidayctl
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_holidayctl()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "countries holidays cache completion --help --version --no-persist" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --tldr"

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
        return 0
    fi

    case "$cmd" in
        countries)
            COMPREPLY=( $(compgen -W "$common" -- "$cur") )
            ;;
        holidays)
            COMPREPLY=( $(compgen -W "$common --strict" -- "$cur") )
            ;;
        cache)
            if [[ ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "ls clear" -- "$cur") )
            elif [[ ${COMP_WORDS[2]} == "clear" ]]; then
                COMPREPLY=( $(compgen -W "--all --country --year --pattern --countries" -- "$cur") )
            else
                COMPREPLY=( $(compgen -W "$common" -- "$cur") )
            fi
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            ;;
    esac
    return 0
}

complete -F _holidayctl holidayctl
`

const zshCompletionScript = `#compdef holidayctl

_holidayctl() {
  local -a cmds
  cmds=(
    'countries:list supported countries'
    'holidays:list public holidays'
    'cache:inspect and clear the local cache'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[attributes to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--tldr[show tldr page]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'holidayctl commands' cmds
    return
  fi

  case $words[2] in
    countries)
      _arguments -C $common
      ;;
    holidays)
      _arguments -C \
        $common \
        '--strict[fail when any year cannot be fetched]' \
        '1:country code:' \
        '*:year:'
      ;;
    cache)
      if (( CURRENT == 3 )); then
        _values 'cache commands' ls clear
        return
      fi
      case $words[3] in
        clear)
          _arguments -C \
            '--all[clear everything]' \
            '--country[country code]:country' \
            '--year[single year]:year' \
            '--pattern[key regex]:pattern' \
            '--countries[clear the country list]'
          ;;
        *)
          _arguments -C $common
          ;;
      esac
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _holidayctl holidayctl
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := cmd.Args().First()
	if shell == "" {
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	w := writer(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		return fmt.Errorf("usage: holidayctl completion [bash|zsh]")
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, m *meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "holidayctl completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": m,
		},
		Action: CompletionCommandAction,
	}
}
