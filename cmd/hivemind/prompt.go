package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/hivemind-swarm/hivemind/internal/adapter/evm"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// readPassword prompts on stderr and reads a line without echo.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // syscall.Stdin is uintptr on windows
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// confirmer asks "Sign <method>? [y/N]" on out and reads the answer from in.
// Anything but y or yes declines.
func confirmer(in io.Reader, out io.Writer) evm.ConfirmFunc {
	r := bufio.NewReader(in)
	return func(_ context.Context, method string) bool {
		fmt.Fprintf(out, "Sign %s? [y/N] ", method)
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}
