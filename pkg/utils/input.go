package utils

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
)

var ErrStdinNotRedirected = xerrors.New("stdin not redirected")

// ReadInput returns arg when it is given, otherwise everything piped to stdin.
// A terminal on stdin is an error rather than a prompt.
func ReadInput(arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return "", ErrStdinNotRedirected
	}
	return readInput(os.Stdin)
}

func readInput(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", xerrors.Errorf("stdin read error: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
