package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// readSecret prompts on stderr and reads without echo. When stdin is not a
// terminal (pipes, scripts) it reads one plain line instead.
func readSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(b), nil
}

// secretFlag returns the flag value when set, otherwise prompts for it.
func secretFlag(val, prompt string) (string, error) {
	if val != "" {
		return val, nil
	}
	s, err := readSecret(prompt)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", errors.New("empty input")
	}
	return s, nil
}

// confirmedSecret prompts twice and requires both entries to match.
func confirmedSecret(prompt string) (string, error) {
	first, err := readSecret(prompt)
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("empty input")
	}
	second, err := readSecret("Repeat: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("entries do not match")
	}
	return first, nil
}

// startSpinner shows progress during network calls. Stop it before printing
// results.
func startSpinner(message string) (stop func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	_ = s.Color("cyan")
	s.Start()
	return s.Stop
}
