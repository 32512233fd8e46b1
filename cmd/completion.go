package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	script, ok := completionScript(shell)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
	fmt.Print(script)
}

func completionScript(shell string) (string, bool) {
	switch shell {
	case "bash":
		return bashCompletion, true
	case "zsh":
		return zshCompletion, true
	case "fish":
		return fishCompletion, true
	}
	return "", false
}

const bashCompletion = `_boveda() {
    local cur prev words cword
    _init_completion || return

    local commands="init add ls list show edit rm passwd generate export import device link sync shell serve keyring compact completion help"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        add)
            COMPREPLY=($(compgen -W "--name --username --url --notes --generate" -- "$cur"))
            ;;
        show)
            COMPREPLY=($(compgen -W "--reveal --copy" -- "$cur"))
            ;;
        edit)
            COMPREPLY=($(compgen -W "--name --username --url --notes --password --generate" -- "$cur"))
            ;;
        rm)
            COMPREPLY=($(compgen -W "--force" -- "$cur"))
            ;;
        generate)
            COMPREPLY=($(compgen -W "-n" -- "$cur"))
            ;;
        export)
            if [[ "$prev" == "--qr" ]]; then
                _filedir png
            else
                COMPREPLY=($(compgen -W "--qr --qr-terminal --clipboard" -- "$cur"))
            fi
            ;;
        import)
            COMPREPLY=($(compgen -W "--clipboard --force -" -- "$cur"))
            ;;
        sync)
            COMPREPLY=($(compgen -W "--dry-run" -- "$cur"))
            ;;
        serve)
            COMPREPLY=($(compgen -W "--addr" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _boveda boveda
`

const zshCompletion = `#compdef boveda

_boveda() {
    local -a commands
    commands=(
        'init:Create a vault on this device'
        'add:Add a credential'
        'ls:List credentials'
        'list:List credentials'
        'show:Show a credential'
        'edit:Edit a credential'
        'rm:Remove credentials'
        'passwd:Change the master passphrase'
        'generate:Generate a random password'
        'export:Export the vault for another device'
        'import:Import a vault from another device'
        'device:Show the device id'
        'link:Sync with another device'
        'sync:Sync with the remote store'
        'shell:Start an interactive session'
        'serve:Run the sync server'
        'keyring:Manage passphrase in OS keyring'
        'compact:Compact vault to reclaim disk space'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'boveda commands' commands
            ;;
        args)
            case "${words[2]}" in
                add)
                    _arguments \
                        '--name[Record name]:name:' \
                        '--username[Login name]:username:' \
                        '--url[Site address]:url:' \
                        '--notes[Free text]:notes:' \
                        '--generate[Generate a password of this length]:length:'
                    ;;
                show)
                    _arguments \
                        '--reveal[Print the password]' \
                        '--copy[Copy the password to the clipboard]'
                    ;;
                export)
                    _arguments \
                        '--qr[Write a QR code PNG]:file:_files -g "*.png"' \
                        '--qr-terminal[Print a QR code]' \
                        '--clipboard[Copy to the clipboard]'
                    ;;
                import)
                    _arguments \
                        '--clipboard[Read from the clipboard]' \
                        '--force[Replace without asking]'
                    ;;
                sync)
                    _arguments '--dry-run[Only show what would happen]'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'boveda commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_boveda "$@"
`

const fishCompletion = `# boveda fish completions

set -l commands init add ls list show edit rm passwd generate export import device link sync shell serve keyring compact help completion

complete -c boveda -f

# Commands
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a vault'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a add -d 'Add a credential'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List credentials'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a show -d 'Show a credential'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a edit -d 'Edit a credential'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove credentials'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change passphrase'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a generate -d 'Generate a password'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a export -d 'Export for another device'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a import -d 'Import from another device'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a device -d 'Show device id'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a link -d 'Sync with another device'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a sync -d 'Sync with remote'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a shell -d 'Interactive session'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a serve -d 'Run sync server'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage passphrase in OS keyring'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c boveda -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# flags
complete -c boveda -n "__fish_seen_subcommand_from show" -l reveal -d 'Print the password'
complete -c boveda -n "__fish_seen_subcommand_from show" -l copy -d 'Copy the password'
complete -c boveda -n "__fish_seen_subcommand_from export" -l qr -r -F -d 'Write a QR code PNG'
complete -c boveda -n "__fish_seen_subcommand_from export" -l qr-terminal -d 'Print a QR code'
complete -c boveda -n "__fish_seen_subcommand_from export" -l clipboard -d 'Copy to clipboard'
complete -c boveda -n "__fish_seen_subcommand_from import" -l clipboard -d 'Read from clipboard'
complete -c boveda -n "__fish_seen_subcommand_from import" -l force -d 'Replace without asking'
complete -c boveda -n "__fish_seen_subcommand_from sync" -l dry-run -d 'Only show what would happen'

# keyring subcommands
complete -c boveda -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c boveda -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c boveda -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
