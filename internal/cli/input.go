package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetSimpleText prints a prompt to w and reads a single line of input from
// reader. The trailing newline is trimmed. If EOF occurs after some input
// was read, the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword reads a secret from the terminal without echo. A newline is
// printed after the read to keep the UI tidy.
func GetPassword(prompt string, w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetFields prompts for connection fields in "name=value" form, one per
// line, ending on an empty line. Numeric and boolean values are converted so
// they land in the typed config as the right JSON kind.
func GetFields(reader *bufio.Reader, w io.Writer) (map[string]any, error) {
	fmt.Fprintln(w, "Enter fields in the format name=value (empty line to finish)")

	fields := make(map[string]any)
	for {
		line, _ := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			fmt.Fprintf(w, "ignored (no '='): %s\n", line)
			continue
		}
		fields[strings.TrimSpace(name)] = coerce(strings.TrimSpace(value))
	}
	return fields, nil
}

func coerce(v string) any {
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
