package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"Micronet/pkg/commander"
	"Micronet/pkg/node"
)

// topology is what the interactive shell needs from a running network.
type topology interface {
	ShowNodes(w io.Writer)
	ShowLinks(w io.Writer)
	Lookup(name string) (node.Host, error)
}

// runShell reads commands line by line until "exit" or the end of in:
//
//	show nodes|links
//	exec <node> <shell line>
//	window <node> <shell line>
//	exit
func runShell(ctx context.Context, t topology, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "Enter command: ")
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) > 0 {
			switch fields[0] {
			case "exit":
				fmt.Fprintln(out, "Exiting...")
				return nil
			case "show":
				switch {
				case len(fields) == 2 && fields[1] == "nodes":
					t.ShowNodes(out)
				case len(fields) == 2 && fields[1] == "links":
					t.ShowLinks(out)
				default:
					fmt.Fprintln(out, "usage: show nodes|links")
				}
			case "exec":
				if len(fields) < 3 {
					fmt.Fprintln(out, "usage: exec <node> <command>")
					break
				}
				if err := execLine(ctx, t, fields[1], strings.Join(fields[2:], " "), out); err != nil {
					fmt.Fprintln(out, "Error:", err)
				}
			case "window":
				if len(fields) < 3 {
					fmt.Fprintln(out, "usage: window <node> <command>")
					break
				}
				if err := windowLine(ctx, t, fields[1], strings.Join(fields[2:], " ")); err != nil {
					fmt.Fprintln(out, "Error:", err)
				}
			default:
				fmt.Fprintf(out, "unknown command %q\n", fields[0])
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "Enter command: ")
	}
	return sc.Err()
}

func execLine(ctx context.Context, t topology, name, line string, out io.Writer) error {
	h, err := t.Lookup(name)
	if err != nil {
		return err
	}
	res, err := h.CmdStatus(ctx, commander.ShellLine(line), commander.MergeStderr())
	if err != nil {
		return err
	}
	fmt.Fprint(out, res.Stdout)
	if res.RC != 0 {
		fmt.Fprintf(out, "exit status %d\n", res.RC)
	}
	return nil
}

func windowLine(ctx context.Context, t topology, name, line string) error {
	h, err := t.Lookup(name)
	if err != nil {
		return err
	}
	return node.RunInWindow(ctx, h, line)
}
