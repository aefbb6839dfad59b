package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/staranto/dartrun/internal/meta"
	"github.com/urfave/cli/v3"
)

const bashCompletionScript = `# bash completion for dartrun
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_dartrun()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    local global="--aot --cache-dir --dart --frozen --offline --print-pubspec --refresh -U --verbose -v"

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        if [[ "$cur" == -* ]]; then
            COMPREPLY=( $(compgen -W "$global --help --version" -- "$cur") )
        else
            COMPREPLY=( $(compgen -W "run clean hash list completion" -- "$cur") $(compgen -f -X '!*.dart' -- "$cur") $(compgen -d -- "$cur") )
        fi
        return 0
    fi

    cmd=${COMP_WORDS[1]}

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "table json yaml" -- "$cur") )
        return 0
    fi
    if [[ "$prev" == "--cache-dir" ]]; then
        COMPREPLY=( $(compgen -d -- "$cur") )
        return 0
    fi

    case "$cmd" in
        clean)
            local opts="$global --all --older-than --stats --output -o"
            ;;
        hash)
            local opts="$global --canonical --output -o"
            ;;
        list|ls)
            local opts="$global --filter -f --sort -s --paths --output -o"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$global"
            ;;
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
        return 0
    fi

    COMPREPLY=( $(compgen -f -X '!*.dart' -- "$cur") $(compgen -d -- "$cur") )
    return 0
}

complete -F _dartrun dartrun
`

const zshCompletionScript = `#compdef dartrun

_dartrun() {
  local -a cmds
  cmds=(
    'run:run a script'
    'clean:evict cache entries or report cache usage'
    'hash:show the cache keys for a script'
    'list:list cache entries'
    'completion:generate shell completion script'
  )

  local -a global
  global=(
  '--aot[compile ahead of time]'
  '--cache-dir[cache root directory]:directory:_directories'
  '--dart[dart executable]:dart:_files'
  '--frozen[never resolve or compile]'
  '--offline[resolve from the local pub cache only]'
  '--print-pubspec[print the derived pubspec]'
  '(-U --refresh)'{-U,--refresh}'[re-resolve dependencies]'
  '*'{-v,--verbose}'[more logging]'
  )

  local -a outfmt
  outfmt=('(-o --output)'{-o,--output}'[output format]:format:(table json yaml)')

  if (( CURRENT == 2 )); then
    _describe -t commands 'dartrun commands' cmds
    _files -g '*.dart'
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    clean)
      _arguments -C \
        $global \
        $outfmt \
        '--all[remove the whole cache]' \
        '--older-than[days unused]:days' \
        '--stats[print counts and sizes]'
      ;;
    hash)
      _arguments -C \
        $global \
        $outfmt \
        '--canonical[print the canonical header]' \
        '1:script:_files -g "*.dart"'
      ;;
    list|ls)
      _arguments -C \
        $global \
        $outfmt \
        '(-f --filter)'{-f,--filter}'[filter expressions]:filter' \
        '(-s --sort)'{-s,--sort}'[sort key]:key:(kind key name path size modified age_days)' \
        '--paths[include entry paths]'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $global '1:script:_files -g "*.dart"' '*::args:_files'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _dartrun dartrun
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)

	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(m.Stdout, bashCompletionScript)
	case "zsh":
		fmt.Fprint(m.Stdout, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(m.Stdout, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(m.Stdout, bashCompletionScript)
		} else {
			fmt.Fprintln(m.Stderr, "usage: dartrun completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "dartrun completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
