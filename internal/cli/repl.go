// Package cli implements the line-oriented deck console used by deckctl.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/magefree/deckplay-server-go/internal/session"
)

// ErrEmptyLine is returned by ParseLine for blank and comment lines.
var ErrEmptyLine = errors.New("empty line")

// ParseLine turns "name [id] [field=value | flag]..." into a Command.
//
//	adjustBaseCount B1 delta=2
//	returnAllDiscardToDeck shuffle to_top
//	discardFromHand M1 origin=played all
func ParseLine(line string) (session.Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return session.Command{}, ErrEmptyLine
	}
	fields := strings.Fields(line)
	cmd := session.Command{Name: fields[0]}

	for _, field := range fields[1:] {
		name, value, hasValue := strings.Cut(field, "=")
		if !hasValue {
			switch name {
			case "all":
				cmd.All = true
			case "confirm":
				cmd.Confirm = true
			case "shuffle":
				cmd.Shuffle = true
			case "to_top", "top":
				cmd.ToTop = true
			default:
				if cmd.ID != "" {
					return cmd, fmt.Errorf("unexpected argument %q", field)
				}
				cmd.ID = field
			}
			continue
		}

		switch name {
		case "id":
			cmd.ID = value
		case "origin":
			cmd.Origin = value
		case "delta", "count", "limit":
			n, err := strconv.Atoi(value)
			if err != nil {
				return cmd, fmt.Errorf("%s must be an integer: %w", name, err)
			}
			switch name {
			case "delta":
				cmd.Delta = n
			case "count":
				cmd.Count = n
			default:
				cmd.Limit = n
			}
		default:
			return cmd, fmt.Errorf("unknown field %q", name)
		}
	}
	return cmd, nil
}

// REPL reads commands from in and writes each response to out as JSON.
type REPL struct {
	Manager *session.Manager
	Key     string
	Prompt  string
}

// Run processes lines until EOF, "quit" or ctx is done. Parse errors are
// reported on out and do not stop the loop.
func (r *REPL) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	for {
		if r.Prompt != "" {
			fmt.Fprint(out, r.Prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Fprintln(out, "commands: "+strings.Join(session.CommandNames, " "))
			continue
		}

		cmd, err := ParseLine(line)
		if errors.Is(err, ErrEmptyLine) {
			continue
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		resp, err := r.Manager.Execute(ctx, r.Key, cmd)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
}
