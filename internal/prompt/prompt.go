// Package prompt reads credentials from the controlling terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Password writes label to w and reads one line from in. When in is a
// terminal, echo is disabled for the duration of the read.
func Password(in *os.File, w io.Writer, label string) (string, error) {
	if _, err := io.WriteString(w, label); err != nil {
		return "", err
	}
	restore, err := disableEcho(in)
	if err == nil {
		defer func() {
			restore()
			_, _ = io.WriteString(w, "\n")
		}()
	}
	return ReadLine(in)
}

// ReadLine reads a single line from r without its line terminator. A final
// line without a newline is returned as is; an empty stream is io.EOF.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("prompt: %w", err)
		}
		if line == "" {
			return "", io.EOF
		}
	}
	return strings.TrimRight(line, "\r\n"), nil
}
