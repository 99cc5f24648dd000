package cli

import (
	"os"

	"golang.org/x/term"
)

// TerminalPassword returns a reader that prompts on f with echo off, or nil
// when f is not a terminal (piped input is then read line by line).
func TerminalPassword(f *os.File) PasswordReader {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
