package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/castship/castship/internal/destinations"
)

// commands is the minimal surface the REPL dispatches to. The real App type
// satisfies it; tests can provide a lightweight stub.
type commands interface {
	Create(ctx context.Context) error
	Show(ctx context.Context) error
	Update(ctx context.Context) error
	Test(ctx context.Context) error
	Deploy(ctx context.Context) error
	Delete(ctx context.Context) error
}

// runREPL reads a line, takes the first token as the command and dispatches
// to c. Handler errors are printed and the loop keeps going; it exits on EOF
// or "exit"/"quit".
func runREPL(ctx context.Context, c commands, scanner *bufio.Scanner, w io.Writer) {
	for {
		fmt.Fprint(w, "castship> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			fmt.Fprintln(w, "Available commands: create, show, update, test, deploy, delete, modes, exit")

		case "modes":
			names := make([]string, len(destinations.Modes))
			for i, m := range destinations.Modes {
				names[i] = string(m)
			}
			fmt.Fprintln(w, strings.Join(names, ", "))

		case "create":
			err = c.Create(ctx)
		case "show":
			err = c.Show(ctx)
		case "update":
			err = c.Update(ctx)
		case "test":
			err = c.Test(ctx)
		case "deploy":
			err = c.Deploy(ctx)
		case "delete":
			err = c.Delete(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}
}
