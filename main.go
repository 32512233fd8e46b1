package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/illarion/boveda/cmd"
	"github.com/illarion/boveda/internal/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "add":
		runAdd(ctx, os.Args[2:])
	case "ls", "list":
		runList(ctx, os.Args[2:])
	case "show":
		runShow(ctx, os.Args[2:])
	case "edit":
		runEdit(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "generate":
		runGenerate(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "device":
		runDevice(ctx, os.Args[2:])
	case "link":
		runLink(ctx, os.Args[2:])
	case "sync":
		runSync(ctx, os.Args[2:])
	case "shell":
		runShell(ctx, os.Args[2:])
	case "serve":
		runServe(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// parse parses args and exits on error. The flag package stops at the first
// positional argument, so flags placed after it are parsed too.
func parse(fs *flag.FlagSet, args []string) []string {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parse(fs, args)

	cmd.Init(ctx)
}

func runAdd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name := fs.String("name", "", "Record name")
	username := fs.String("username", "", "Login name")
	url := fs.String("url", "", "Site address")
	notes := fs.String("notes", "", "Free text")
	generate := fs.Int("generate", 0, "Generate a password of this length")
	parse(fs, args)

	cmd.Add(ctx, cmd.AddOptions{
		Name:     *name,
		Username: *username,
		URL:      *url,
		Notes:    *notes,
		Generate: *generate,
	})
}

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	terms := parse(fs, args)

	cmd.List(ctx, strings.Join(terms, " "))
}

func runShow(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	reveal := fs.Bool("reveal", false, "Print the password")
	copyPassword := fs.Bool("copy", false, "Copy the password to the clipboard")
	ids := parse(fs, args)
	if len(ids) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: boveda show <id> [--reveal] [--copy]")
		os.Exit(1)
	}

	cmd.Show(ctx, ids[0], *reveal, *copyPassword)
}

func runEdit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	fs.String("name", "", "New name")
	fs.String("username", "", "New login name")
	fs.String("url", "", "New site address")
	fs.String("notes", "", "New notes")
	password := fs.Bool("password", false, "Prompt for a new password")
	generate := fs.Int("generate", 0, "Replace the password with a generated one of this length")
	ids := parse(fs, args)
	if len(ids) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: boveda edit <id> [--name N] [--username U] [--url URL] [--notes T] [--password|--generate N]")
		os.Exit(1)
	}

	// Only flags given on the command line change the record.
	var patch vault.RecordPatch
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "name":
			patch.Name = &v
		case "username":
			patch.Username = &v
		case "url":
			patch.URL = &v
		case "notes":
			patch.Notes = &v
		}
	})

	cmd.Edit(ctx, ids[0], cmd.EditOptions{
		Patch:          patch,
		PromptPassword: *password,
		Generate:       *generate,
	})
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	force := fs.Bool("force", false, "Remove without confirmation")
	ids := parse(fs, args)

	cmd.Remove(ctx, ids, *force)
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parse(fs, args)

	cmd.Passwd(ctx)
}

func runGenerate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	n := fs.Int("n", vault.DefaultPasswordLength, "Password length")
	parse(fs, args)

	cmd.Generate(*n)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	qr := fs.String("qr", "", "Write the package as a QR code PNG to this file")
	qrTerminal := fs.Bool("qr-terminal", false, "Print the package as a QR code")
	clipboard := fs.Bool("clipboard", false, "Copy the package to the clipboard")
	parse(fs, args)

	cmd.Export(ctx, cmd.ExportOptions{
		QRFile:     *qr,
		QRTerminal: *qrTerminal,
		Clipboard:  *clipboard,
	})
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	clipboard := fs.Bool("clipboard", false, "Read the package from the clipboard")
	force := fs.Bool("force", false, "Replace the local vault without asking")
	rest := parse(fs, args)

	text := ""
	if len(rest) > 0 {
		text = strings.Join(rest, "")
	}
	cmd.Import(ctx, text, *clipboard, *force)
}

func runDevice(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("device", flag.ExitOnError)
	parse(fs, args)

	cmd.Device(ctx)
}

func runLink(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	ids := parse(fs, args)
	if len(ids) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: boveda link <device-id>")
		os.Exit(1)
	}

	cmd.Link(ctx, ids[0])
}

func runSync(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Show what a sync would do without changing anything")
	parse(fs, args)

	cmd.Sync(ctx, *dryRun)
}

func runShell(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	parse(fs, args)

	cmd.RunShell(ctx)
}

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (default from server.addr)")
	parse(fs, args)

	cmd.Serve(ctx, *addr)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: boveda keyring <save|delete|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "delete":
		cmd.KeyringDelete(ctx)
	case "status":
		cmd.KeyringStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parse(fs, args)

	cmd.Compact(ctx)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: boveda completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("boveda - Local-first encrypted credential vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  boveda <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a vault on this device")
	fmt.Println("  add         Add a credential")
	fmt.Println("  ls, list    List credentials, optionally filtered")
	fmt.Println("  show        Show a credential")
	fmt.Println("  edit        Edit a credential")
	fmt.Println("  rm          Remove credentials")
	fmt.Println("  passwd      Change the master passphrase")
	fmt.Println("  generate    Generate a random password")
	fmt.Println("  export      Export the vault for another device")
	fmt.Println("  import      Replace the vault with one exported elsewhere")
	fmt.Println("  device      Show this device's id and sync settings")
	fmt.Println("  link        Sync with another device's vault")
	fmt.Println("  sync        Sync with the remote store")
	fmt.Println("  shell       Start an interactive session")
	fmt.Println("  serve       Run the sync server")
	fmt.Println("  keyring     Manage passphrase in OS keyring")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  boveda init                          # Create new vault")
	fmt.Println("  boveda add --name Mail --username a  # Add a credential")
	fmt.Println("  boveda ls mail                       # Find credentials")
	fmt.Println("  boveda export --qr vault.png         # Move the vault to a phone")
	fmt.Println()
	fmt.Println("Use 'boveda help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("boveda init")
		fmt.Println()
		fmt.Println("Creates an empty vault protected by a master passphrase.")
		fmt.Println("The passphrase is not stored anywhere - you must remember it.")
		fmt.Println("BOVEDA_PASSWORD supplies it non-interactively.")
	case "add":
		fmt.Println("boveda add [--name N] [--username U] [--url URL] [--notes T] [--generate N]")
		fmt.Println()
		fmt.Println("Adds a credential. Missing name and username are asked for.")
		fmt.Println("An empty password generates one.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  boveda add --name Mail --username alice")
		fmt.Println("  boveda add --name Bank --username bob --generate 32")
	case "ls", "list":
		fmt.Println("boveda ls [term]")
		fmt.Println()
		fmt.Println("Lists credentials whose name, username or URL contains term,")
		fmt.Println("ignoring case. Without a term every credential is listed.")
	case "show":
		fmt.Println("boveda show <id> [--reveal] [--copy]")
		fmt.Println()
		fmt.Println("Shows one credential. The id may be any unique prefix.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --reveal   Print the password instead of a mask")
		fmt.Println("  --copy     Copy the password to the clipboard")
	case "edit":
		fmt.Println("boveda edit <id> [--name N] [--username U] [--url URL] [--notes T] [--password|--generate N]")
		fmt.Println()
		fmt.Println("Changes the given fields of a credential; others are kept.")
	case "rm":
		fmt.Println("boveda rm [--force] <id> [id...]")
		fmt.Println()
		fmt.Println("Removes credentials after confirmation.")
	case "passwd":
		fmt.Println("boveda passwd")
		fmt.Println()
		fmt.Println("Changes the master passphrase and re-encrypts the vault with a new salt.")
		fmt.Println("Linked devices must import the vault again afterwards.")
	case "generate":
		fmt.Println("boveda generate [-n N]")
		fmt.Println()
		fmt.Println("Prints a random password of N characters (default 16).")
	case "export":
		fmt.Println("boveda export [--qr file.png] [--qr-terminal] [--clipboard]")
		fmt.Println()
		fmt.Println("Encodes the encrypted vault as a single string for another device.")
		fmt.Println("No passphrase is needed; the package stays encrypted.")
	case "import":
		fmt.Println("boveda import [text|-] [--clipboard] [--force]")
		fmt.Println()
		fmt.Println("Replaces the local vault with a package from 'boveda export'.")
		fmt.Println("Use '-' to read the package from stdin, for example from a QR scanner.")
	case "device":
		fmt.Println("boveda device")
		fmt.Println()
		fmt.Println("Shows this device's id, which names its slot on the remote store.")
	case "link":
		fmt.Println("boveda link <device-id>")
		fmt.Println()
		fmt.Println("Uses another device's remote slot, so both sync one vault.")
	case "sync":
		fmt.Println("boveda sync [--dry-run]")
		fmt.Println()
		fmt.Println("Reconciles with the remote store. The newer vault wins as a whole;")
		fmt.Println("--dry-run shows which one and what would be discarded.")
	case "shell":
		fmt.Println("boveda shell")
		fmt.Println()
		fmt.Println("Keeps the vault unlocked between commands. It locks itself after")
		fmt.Println("security.idle_timeout without activity.")
	case "serve":
		fmt.Println("boveda serve [--addr host:port]")
		fmt.Println()
		fmt.Println("Serves vault containers over HTTP for devices using remote.kind http.")
	case "keyring":
		fmt.Println("boveda keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Caches the master passphrase in the OS keyring for this device.")
	case "compact":
		fmt.Println("boveda compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
		fmt.Println("Does not require a passphrase.")
	case "completion":
		fmt.Println("boveda completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(boveda completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(boveda completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  boveda completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
