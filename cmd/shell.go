package cmd

import (
	"bufio"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/illarion/boveda/internal/crypto"
	"github.com/illarion/boveda/internal/session"
	"github.com/illarion/boveda/internal/transfer"
	"github.com/illarion/boveda/internal/vault"
)

// lockedWriter serializes output from the REPL and the idle watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Shell is an interactive session that keeps the vault unlocked between
// commands until it is locked explicitly or by the idle timeout.
type Shell struct {
	mgr        *session.Manager
	in         *bufio.Reader
	out        io.Writer
	readSecret func(prompt string) ([]byte, error)
	copyText   func(string) error
}

// NewShell creates a shell reading commands from in and writing to out.
// readSecret reads passphrases and passwords without echo.
func NewShell(mgr *session.Manager, in io.Reader, out io.Writer, readSecret func(string) ([]byte, error)) *Shell {
	return &Shell{
		mgr:        mgr,
		in:         bufio.NewReader(in),
		out:        out,
		readSecret: readSecret,
		copyText:   transfer.CopyToClipboard,
	}
}

// RunShell opens the vault and starts the interactive shell on the terminal
func RunShell(ctx context.Context) {
	out := &lockedWriter{w: os.Stdout}
	a := OpenApp(ctx, AppOptions{
		OnIdleLock: func() {
			fmt.Fprintln(out, "\nVault locked after inactivity. Type 'unlock' to continue.")
		},
	})
	defer a.Close()
	a.UnlockOrExit(ctx)

	sh := NewShell(a.Manager, os.Stdin, out, ReadPassphrase)
	fmt.Fprintln(out, "Vault unlocked. Type 'help' for commands.")
	if err := sh.Run(ctx); err != nil {
		a.Fail(err)
	}
}

// Run processes commands until exit, end of input or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		s.printPrompt()
		line, err := readLine(s.in)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.out)
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if err := s.exec(ctx, fields[0], fields[1:]); err != nil {
			fmt.Fprint(s.out, errorMessage(err))
			if errors.Is(err, session.ErrLocked) {
				fmt.Fprintln(s.out, "Type 'unlock' to continue.")
			}
		}
	}
	return nil
}

func (s *Shell) printPrompt() {
	if s.mgr.State() == session.Unlocked {
		fmt.Fprint(s.out, "boveda> ")
		return
	}
	fmt.Fprint(s.out, "boveda (locked)> ")
}

func (s *Shell) exec(ctx context.Context, name string, args []string) error {
	// every command counts as activity, read-only ones included
	s.mgr.Touch()
	switch name {
	case "help", "?":
		s.help()
	case "ls", "list", "search":
		records, err := s.mgr.Search(strings.Join(args, " "))
		if err != nil {
			return err
		}
		printRecords(s.out, records)
	case "show", "reveal":
		rec, err := s.resolve(args)
		if err != nil {
			return err
		}
		printRecord(s.out, rec, name == "reveal")
	case "copy":
		rec, err := s.resolve(args)
		if err != nil {
			return err
		}
		if err := s.copyText(rec.Password); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Password of %s copied to clipboard\n", rec.Name)
	case "add":
		return s.add()
	case "edit":
		return s.edit(args)
	case "rm":
		rec, err := s.resolve(args)
		if err != nil {
			return err
		}
		if err := s.mgr.Remove(rec.ID); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Removed %s\n", rec.Name)
	case "gen", "generate":
		n := vault.DefaultPasswordLength
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%w: length must be a number", vault.ErrValidation)
			}
			n = v
		}
		pw, err := vault.GeneratePassword(rand.Reader, n)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, pw)
	case "sync":
		if err := s.mgr.Sync(ctx); err != nil {
			return err
		}
		printSyncStatus(s.out, s.mgr.SyncStatus())
	case "status":
		fmt.Fprintf(s.out, "Vault: %s\n", s.mgr.State())
		printSyncStatus(s.out, s.mgr.SyncStatus())
	case "lock":
		s.mgr.Lock()
		fmt.Fprintln(s.out, "Vault locked")
	case "unlock":
		passphrase, err := s.readSecret("Enter passphrase: ")
		if err != nil {
			return err
		}
		defer crypto.ClearBytes(passphrase)
		if err := s.mgr.Unlock(ctx, passphrase); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Vault unlocked")
	default:
		return fmt.Errorf("unknown command %q, type 'help'", name)
	}
	return nil
}

func (s *Shell) resolve(args []string) (vault.Record, error) {
	if len(args) != 1 {
		return vault.Record{}, fmt.Errorf("expected one record id")
	}
	records, err := s.mgr.Records()
	if err != nil {
		return vault.Record{}, err
	}
	return resolveID(records, args[0])
}

func (s *Shell) ask(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	return readLine(s.in)
}

func (s *Shell) add() error {
	// Fail before prompting when the vault is locked.
	if _, err := s.mgr.Records(); err != nil {
		return err
	}

	var in vault.RecordInput
	var err error
	if in.Name, err = s.ask("Name: "); err != nil {
		return err
	}
	if in.Username, err = s.ask("Username: "); err != nil {
		return err
	}
	if in.Password, err = s.password("Password (empty to generate): "); err != nil {
		return err
	}
	if in.URL, err = s.ask("URL: "); err != nil {
		return err
	}
	if in.Notes, err = s.ask("Notes: "); err != nil {
		return err
	}

	rec, err := s.mgr.Add(in)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s (%s)\n", rec.Name, shortID(rec.ID))
	return nil
}

func (s *Shell) edit(args []string) error {
	rec, err := s.resolve(args)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out, "Leave a field empty to keep it.")
	var patch vault.RecordPatch
	fields := []struct {
		label   string
		current string
		dst     **string
	}{
		{"Name", rec.Name, &patch.Name},
		{"Username", rec.Username, &patch.Username},
		{"URL", rec.URL, &patch.URL},
		{"Notes", rec.Notes, &patch.Notes},
	}
	for _, f := range fields {
		v, err := s.ask(fmt.Sprintf("%s [%s]: ", f.label, f.current))
		if err != nil {
			return err
		}
		if v != "" && v != f.current {
			*f.dst = &v
		}
	}

	secret, err := s.readSecret("Password (empty to keep): ")
	if err != nil {
		return err
	}
	if len(secret) > 0 {
		pw := string(secret)
		patch.Password = &pw
	}
	crypto.ClearBytes(secret)

	if patch.IsEmpty() {
		fmt.Fprintln(s.out, "Nothing changed")
		return nil
	}
	if err := s.mgr.Update(rec.ID, patch); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %s\n", rec.Name)
	return nil
}

// password reads a secret, generating one when the input is empty.
func (s *Shell) password(prompt string) (string, error) {
	secret, err := s.readSecret(prompt)
	if err != nil {
		return "", err
	}
	defer crypto.ClearBytes(secret)
	if len(secret) > 0 {
		return string(secret), nil
	}
	pw, err := vault.GeneratePassword(rand.Reader, vault.DefaultPasswordLength)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(s.out, "Generated password: %s\n", pw)
	return pw, nil
}

func (s *Shell) help() {
	fmt.Fprintln(s.out, "Commands:")
	fmt.Fprintln(s.out, "  ls [term]      List records, optionally filtered")
	fmt.Fprintln(s.out, "  show <id>      Show a record with the password masked")
	fmt.Fprintln(s.out, "  reveal <id>    Show a record including the password")
	fmt.Fprintln(s.out, "  copy <id>      Copy a password to the clipboard")
	fmt.Fprintln(s.out, "  add            Add a record")
	fmt.Fprintln(s.out, "  edit <id>      Edit a record")
	fmt.Fprintln(s.out, "  rm <id>        Remove a record")
	fmt.Fprintln(s.out, "  gen [n]        Generate a password")
	fmt.Fprintln(s.out, "  sync           Sync with the remote store")
	fmt.Fprintln(s.out, "  status         Show vault and sync state")
	fmt.Fprintln(s.out, "  lock, unlock   Lock or unlock the vault")
	fmt.Fprintln(s.out, "  exit           Leave the shell")
}
