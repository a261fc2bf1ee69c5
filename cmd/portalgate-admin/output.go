package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	if len(args) == 0 {
		_, err := fmt.Fprintln(w)
		return err
	}
	_, err := fmt.Fprintln(w, args...)
	return err
}

// confirmAction asks on in/out before a destructive change unless yes is set.
func confirmAction(in io.Reader, out io.Writer, yes bool, action string) error {
	if yes {
		return nil
	}
	if err := writef(out, "About to %s.\nContinue? [y/N]: ", action); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}
	resp, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.New("aborted by user")
	}
	resp = strings.ToLower(strings.TrimSpace(resp))
	if resp != "y" && resp != "yes" {
		return errors.New("aborted by user")
	}
	return nil
}
